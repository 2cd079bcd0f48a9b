// Package database opens the storage backends behind the history gateway.
//
//   - PostgreSQL: pgx connection pool for shared deployments
//   - SQLite: gorm over a pure-Go driver for single-node and local runs
package database
