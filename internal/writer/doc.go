// Package writer persists price summaries, item metadata and bazaar reads.
//
// Gateways:
//   - PostgresGateway (pgx batches)
//   - SQLiteGateway (gorm, pure Go driver)
//
// Guard turns writes into no-ops in dry-run mode. QueueWriter takes work
// off the aggregation path and applies it to a gateway on its own
// goroutine.
//
// History tables are append-only. item_info is upserted, with per-rarity
// counters incremented on every snapshot.
package writer
