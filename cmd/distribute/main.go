// Package main runs a single distribution cycle: discover network contexts,
// compute per-network candidates, dispatch transfers concurrently, then
// persist reserves and ledger records.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"multichain-distributor/internal/config"
	"multichain-distributor/internal/orchestrator"
	"multichain-distributor/internal/pricing"
	"multichain-distributor/internal/reporting"
	"multichain-distributor/internal/storage"
	chstore "multichain-distributor/internal/storage/clickhouse"
	"multichain-distributor/internal/storage/memory"
	"multichain-distributor/internal/storage/migrations"
	pgstore "multichain-distributor/internal/storage/postgres"
)

func main() {
	loadEnvFile()

	// Parse flags (env vars as defaults)
	recipientsPath := flag.String("recipients", os.Getenv("DIST_RECIPIENTS_FILE"), "Path to the recipients JSON file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("DIST_POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("DIST_CLICKHOUSE_DSN"), "ClickHouse connection string (optional history archive)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	dryRun := flag.Bool("dry-run", false, "Estimate only: nothing is broadcast or persisted")
	output := flag.String("output", "", "Write the cycle report Markdown to this file instead of stdout")
	verbose := flag.Bool("verbose", false, "Verbose logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[distribute] ", log.LstdFlags)

	if *recipientsPath == "" {
		logger.Fatal("--recipients is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("Load configuration: %v", err)
	}

	recipients, err := config.LoadRecipients(*recipientsPath)
	if err != nil {
		logger.Fatalf("Load recipients: %v", err)
	}
	logger.Printf("Loaded %d recipients from %s", len(recipients), *recipientsPath)

	ctx := context.Background()

	reserves, records, archive, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Create stores: %v", err)
	}
	defer cleanup()

	orch, err := orchestrator.New(orchestrator.Options{
		Adapters:            cfg.Adapters(*verbose),
		Prices:              buildPriceLookup(cfg),
		ReserveStore:        reserves,
		RecordStore:         records,
		Archive:             archive,
		ThresholdsUSD:       cfg.Thresholds(),
		DefaultThresholdUSD: cfg.DefaultThresholdUSD,
		TokenKinds:          cfg.TokenKinds,
		DryRun:              *dryRun,
		Verbose:             *verbose,
	})
	if err != nil {
		logger.Fatalf("Create orchestrator: %v", err)
	}

	result, err := orch.RunCycle(ctx, recipients)
	if err != nil {
		logger.Fatalf("Cycle failed: %v", err)
	}

	md := reporting.RenderCycleMarkdown(result)
	if *output != "" {
		if err := os.WriteFile(*output, []byte(md), 0o644); err != nil {
			logger.Fatalf("Write report: %v", err)
		}
		logger.Printf("Report written to %s", *output)
	} else {
		fmt.Print(md)
	}

	logger.Printf("Cycle complete: sent %.8f, reserved %.8f across %d networks (%d errors)",
		result.TotalSent, result.TotalReserved, len(result.Networks), len(result.Errors))
	for _, e := range result.Errors {
		logger.Printf("Cycle error: %s", e)
	}
}

// buildPriceLookup prefers the live price endpoint and falls back to the
// static table from DIST_STATIC_PRICES.
func buildPriceLookup(cfg *config.Config) pricing.Lookup {
	sources := []pricing.Lookup{}
	if cfg.PriceEndpoint != "" {
		sources = append(sources, pricing.NewHTTP(cfg.PriceEndpoint))
	}
	if len(cfg.StaticPrices) > 0 {
		sources = append(sources, pricing.NewStatic(cfg.StaticPrices))
	}
	if len(sources) == 1 {
		return sources[0]
	}
	return pricing.NewChain(sources...)
}

// createStores creates the reserve and ledger stores plus the optional
// ClickHouse history archive.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.ReserveStore, storage.RecordStore, orchestrator.Archiver, func(), error) {
	if useMemory {
		return memory.NewReserveStore(), memory.NewRecordStore(), nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	var archive orchestrator.Archiver
	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		archive = chstore.NewHistoryArchive(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return pgstore.NewReserveStore(pool), pgstore.NewRecordStore(pool), archive, cleanup, nil
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
