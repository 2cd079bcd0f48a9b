// Package stream pushes buffer flushes to websocket clients.
//
// A Hub owns the client set and runs on a single goroutine. Each flush
// becomes one "flush" message per series; clients that cannot keep up are
// disconnected rather than allowed to stall the hub. New clients receive
// the most recent flush of each series on connect.
//
// Clients may narrow what they receive:
//
//	{"command": "subscribe", "items": ["HYPERION", "LION_PET"]}
//
// An empty items list restores the full feed.
package stream
