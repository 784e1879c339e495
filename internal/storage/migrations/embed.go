package migrations

import "embed"

// PostgresFS holds the reserve/ledger schema migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the distribution-history archive migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
