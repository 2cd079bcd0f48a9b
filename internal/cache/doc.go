// Package cache mirrors the most recent price summary of every item key
// into Redis so readers can serve current prices without touching the
// history store.
//
// Keys have the form "<series>:<ITEM_ID>:<RARITY>" and hold a JSON Entry.
// Each key expires after the configured TTL, so items that stop trading
// drop out on their own.
package cache
