// Package metrics provides lightweight pipeline counters.
//
// Key metrics:
//   - Snapshot acquisitions, retries and dedup skips
//   - Listings decoded, dropped as malformed or filtered
//   - Buffer flushes and persistence failures
//   - Stream clients and dropped pushes
//
// Counters are atomic and exposed as JSON on the health server.
package metrics
