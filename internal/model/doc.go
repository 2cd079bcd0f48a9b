// Package model defines shared data types used across the auction data
// gatherer.
//
// Conventions:
//   - Prices: coins as float64, per listing; UnitPrice divides by stack size
//   - Timestamps: time.Time in UTC, derived from feed epoch milliseconds
//   - IDs: uuid.UUID for auctions and players, string item identifiers
package model
