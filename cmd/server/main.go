// Package main provides the distribution daemon: it runs distribution
// cycles on a fixed interval and serves Prometheus metrics plus a small
// status API. A shutdown signal lets the in-flight cycle finish and
// refuses to start new ones.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"multichain-distributor/internal/config"
	"multichain-distributor/internal/observability"
	"multichain-distributor/internal/orchestrator"
	"multichain-distributor/internal/pricing"
	"multichain-distributor/internal/storage"
	chstore "multichain-distributor/internal/storage/clickhouse"
	"multichain-distributor/internal/storage/memory"
	"multichain-distributor/internal/storage/migrations"
	pgstore "multichain-distributor/internal/storage/postgres"
)

// Server runs scheduled distribution cycles.
type Server struct {
	orch           *orchestrator.Orchestrator
	reserves       storage.ReserveStore
	metrics        *observability.Metrics
	recipientsPath string
	cycleInterval  time.Duration
	logger         *log.Logger

	mu           sync.Mutex
	cycleRunning bool
	lastCycle    time.Time
	lastResult   *orchestrator.CycleResult
	cycleRuns    int
	startedAt    time.Time
}

func main() {
	loadEnvFile()

	// Parse flags (env vars as defaults)
	recipientsPath := flag.String("recipients", os.Getenv("DIST_RECIPIENTS_FILE"), "Path to the recipients JSON file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("DIST_POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("DIST_CLICKHOUSE_DSN"), "ClickHouse connection string (optional history archive)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	cycleInterval := flag.Duration("cycle-interval", 1*time.Hour, "Distribution cycle interval")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	dryRun := flag.Bool("dry-run", false, "Estimate only: nothing is broadcast or persisted")
	verbose := flag.Bool("verbose", false, "Verbose logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

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

	// Fail fast on an unreadable recipient list; it is re-read each cycle.
	if _, err := config.LoadRecipients(*recipientsPath); err != nil {
		logger.Fatalf("Load recipients: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	server := &Server{
		orch:           orch,
		reserves:       reserves,
		metrics:        observability.NewMetrics(""),
		recipientsPath: *recipientsPath,
		cycleInterval:  *cycleInterval,
		logger:         logger,
		startedAt:      time.Now(),
	}

	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.startHTTPServer(*metricsAddr)

	server.Run(ctx)
	close(done)
	logger.Println("Shutdown complete")
}

// Run executes one cycle immediately and then on every tick until the
// context is canceled. A cancellation between ticks refuses new cycles.
func (s *Server) Run(ctx context.Context) {
	s.logger.Printf("Starting distribution daemon (interval %s)", s.cycleInterval)

	s.runCycle(ctx)

	ticker := time.NewTicker(s.cycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("Stopping: no further cycles will be started")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Server) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	if s.cycleRunning {
		s.mu.Unlock()
		s.logger.Println("Previous cycle still running, skipping this tick")
		return
	}
	s.cycleRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cycleRunning = false
		s.mu.Unlock()
	}()

	// Re-read the recipient list so target updates land without a restart.
	recipients, err := config.LoadRecipients(s.recipientsPath)
	if err != nil {
		s.logger.Printf("Load recipients: %v (skipping cycle)", err)
		return
	}

	s.logger.Printf("Starting cycle for %d recipients", len(recipients))
	result, err := s.orch.RunCycle(ctx, recipients)
	if err != nil {
		s.logger.Printf("Cycle failed: %v", err)
		return
	}

	s.metrics.RecordCycle(result)
	s.updateReserveGauges(ctx)

	s.mu.Lock()
	s.lastCycle = time.Now()
	s.lastResult = result
	s.cycleRuns++
	s.mu.Unlock()

	s.logger.Printf("Cycle complete: sent %.8f, reserved %.8f across %d networks (%d errors)",
		result.TotalSent, result.TotalReserved, len(result.Networks), len(result.Errors))
	for _, e := range result.Errors {
		s.logger.Printf("Cycle error: %s", e)
	}
}

func (s *Server) updateReserveGauges(ctx context.Context) {
	reserves, err := s.reserves.ListReserves(ctx)
	if err != nil {
		s.logger.Printf("List reserves for gauges: %v", err)
		return
	}
	for _, r := range reserves {
		s.metrics.SetReserve(r.Network, r.Amount)
	}
}

// startHTTPServer serves /metrics, /healthz and /status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("HTTP server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := map[string]any{
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"cycle_running":  s.cycleRunning,
		"cycle_runs":     s.cycleRuns,
		"cycle_interval": s.cycleInterval.String(),
	}
	if !s.lastCycle.IsZero() {
		status["last_cycle"] = s.lastCycle.UTC().Format(time.RFC3339)
	}
	if s.lastResult != nil {
		status["last_total_sent"] = s.lastResult.TotalSent
		status["last_total_reserved"] = s.lastResult.TotalReserved
		status["last_errors"] = len(s.lastResult.Errors)
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
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
