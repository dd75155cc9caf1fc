// Package migrations embeds the schema of every SQL backend and applies it.
//
// All statements are idempotent (IF NOT EXISTS), so applying them on every
// start is safe.
package migrations

import "embed"

// PostgresFS embeds all PostgreSQL migration files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds all ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// SQLiteFS embeds all SQLite migration files.
//
//go:embed sqlite/*.sql
var SQLiteFS embed.FS
