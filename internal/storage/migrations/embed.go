// Package migrations embeds the schema of the Postgres and ClickHouse stores
// and applies it.
package migrations

import "embed"

// PostgresFS embeds all PostgreSQL migration files (goose format).
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds all ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
