// Package poller acquires feed snapshots.
//
// The Acquirer:
//   - Probes page 0 for the feed timestamp and page count
//   - Aligns the fetch to the window after each feed update
//   - Fetches every page concurrently and verifies one shared timestamp
//   - Restarts the whole attempt after a fixed backoff on any page failure
//
// The Poller runs the active, ended and bazaar loops, each strictly
// sequential, and hands accepted snapshots to handlers.
package poller
