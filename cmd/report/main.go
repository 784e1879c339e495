// Package main generates distribution history reports from the ledger:
// a Markdown summary, CSV exports, and optionally per-network totals from
// the ClickHouse history archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"multichain-distributor/internal/reporting"
	chstore "multichain-distributor/internal/storage/clickhouse"
	pgstore "multichain-distributor/internal/storage/postgres"
)

func main() {
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("DIST_POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("DIST_CLICKHOUSE_DSN"), "ClickHouse connection string (optional archive totals)")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	recipient := flag.String("recipient", "", "Print one recipient's history as CSV to stdout and exit")
	network := flag.String("network", "", "Print one network's history as CSV to stdout and exit")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	records := pgstore.NewRecordStore(pool)
	reserves := pgstore.NewReserveStore(pool)
	gen := reporting.NewGenerator(records, reserves)

	if *recipient != "" {
		history, err := gen.RecipientHistory(ctx, *recipient)
		if err != nil {
			logger.Fatalf("Recipient history: %v", err)
		}
		fmt.Print(reporting.RenderRecordsCSV(history))
		return
	}
	if *network != "" {
		history, err := gen.NetworkHistory(ctx, *network)
		if err != nil {
			logger.Fatalf("Network history: %v", err)
		}
		fmt.Print(reporting.RenderRecordsCSV(history))
		return
	}

	report, err := gen.Generate(ctx)
	if err != nil {
		logger.Fatalf("Generate report: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatalf("Create output directory: %v", err)
	}

	md := reporting.RenderMarkdown(report)
	if *clickhouseDSN != "" {
		totals, err := archiveTotals(ctx, *clickhouseDSN)
		if err != nil {
			logger.Printf("Archive totals unavailable: %v", err)
		} else {
			md += totals
		}
	}

	mdPath := filepath.Join(*outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		logger.Fatalf("Write %s: %v", mdPath, err)
	}

	all, err := records.GetAll(ctx)
	if err != nil {
		logger.Fatalf("Load records: %v", err)
	}
	recordsPath := filepath.Join(*outputDir, "records.csv")
	if err := os.WriteFile(recordsPath, []byte(reporting.RenderRecordsCSV(all)), 0o644); err != nil {
		logger.Fatalf("Write %s: %v", recordsPath, err)
	}

	reservesPath := filepath.Join(*outputDir, "reserves.csv")
	if err := os.WriteFile(reservesPath, []byte(reporting.RenderReservesCSV(report.Reserves)), 0o644); err != nil {
		logger.Fatalf("Write %s: %v", reservesPath, err)
	}

	logger.Printf("Wrote %s, %s, %s", mdPath, recordsPath, reservesPath)
}

// archiveTotals renders the ClickHouse per-network totals as an extra
// Markdown section.
func archiveTotals(ctx context.Context, dsn string) (string, error) {
	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return "", fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	totals, err := chstore.NewHistoryArchive(conn).TotalsByNetwork(ctx)
	if err != nil {
		return "", fmt.Errorf("query totals: %w", err)
	}
	if len(totals) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Archive Totals\n\n")
	sb.WriteString("| Network | Sent | Deferred | Failed | Sent Amount | Sent USD |\n")
	sb.WriteString("|---------|------|----------|--------|-------------|----------|\n")
	for _, t := range totals {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.8f | %.2f |\n",
			t.Network, t.SentCount, t.DeferredCount, t.FailedCount, t.SentAmount, t.SentValueUSD))
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
