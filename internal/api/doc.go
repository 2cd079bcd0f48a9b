// Package api provides the marketplace feed client.
//
// Endpoints (relative to https://api.hypixel.net):
//   - /skyblock/auctions?page=N   active auction pages
//   - /skyblock/auctions_ended    auctions completed in the last minute
//   - /skyblock/bazaar            bazaar product quick status
//   - /key                        key quota, used at startup
//
// Every response carries a lastUpdated epoch-millisecond timestamp; auction
// pages share one timestamp per feed regeneration.
package api
