// Package main runs the security token service: compliance registry, token
// ledger, transfer enforcement and vesting behind one HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"solana-security-token/internal/api"
	"solana-security-token/internal/audit"
	"solana-security-token/internal/clock"
	"solana-security-token/internal/compliance"
	"solana-security-token/internal/config"
	"solana-security-token/internal/enforcement"
	"solana-security-token/internal/feed"
	"solana-security-token/internal/solana"
	"solana-security-token/internal/storage"
	chstore "solana-security-token/internal/storage/clickhouse"
	"solana-security-token/internal/storage/memory"
	pgstore "solana-security-token/internal/storage/postgres"
	"solana-security-token/internal/token"
	"solana-security-token/internal/vesting"
)

func main() {
	// Load .env file if exists. System env vars take precedence.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to configuration file (defaults when empty)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	backend := flag.String("backend", "", "Storage backend: memory or postgres (overrides config)")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *addr, *backend)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.LogLevel()
	if *isDebug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// loadConfig reads path, or the defaults when path is empty, and applies the
// flag overrides.
func loadConfig(path, addr, backend string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if backend != "" {
		cfg.Storage.Backend = backend
	}
	if dsn := os.Getenv("POSTGRES_DSN"); cfg.Storage.PostgresDSN == "" && dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	return cfg, cfg.Validate()
}

// stores bundles the record store with the optional audit event store.
type stores struct {
	records storage.Store
	events  storage.AuditEventStore
}

func openStores(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*stores, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	s := &stores{}
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		s.records = pgstore.NewStore(pool)
		logger.Info("Using PostgreSQL storage")
	default:
		s.records = memory.NewStore()
		logger.Info("Using in-memory storage")
	}

	switch {
	case cfg.ClickhouseDSN != "":
		conn, err := chstore.Open(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open clickhouse: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		s.events = chstore.NewAuditEventStore(conn)
		logger.Info("Audit events stored in ClickHouse")
	case cfg.Backend == config.BackendMemory:
		s.events = memory.NewAuditEventStore()
	}
	return s, cleanup, nil
}

func newClock(cfg config.SolanaConfig, logger *slog.Logger) clock.Clock {
	if cfg.RPCEndpoint == "" {
		return clock.System{}
	}
	logger.Info("Using cluster clock", "endpoint", cfg.RPCEndpoint, "commitment", cfg.Commitment, "max_age", cfg.ClockMaxAge)
	client := solana.NewHTTPClient(cfg.RPCEndpoint,
		solana.WithMaxRetries(cfg.RPCMaxRetries),
		solana.WithCommitment(cfg.Commitment),
	)
	return clock.NewCluster(client, cfg.ClockMaxAge)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, cleanup, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	roles, err := cfg.RoleTable()
	if err != nil {
		return err
	}
	programID, err := solana.ParsePublicKey(cfg.Solana.ProgramID)
	if err != nil {
		return fmt.Errorf("program id: %w", err)
	}
	deriver, err := solana.NewDeriver(programID, cfg.Solana.PDACacheSize)
	if err != nil {
		return fmt.Errorf("create deriver: %w", err)
	}
	clk := newClock(cfg.Solana, logger)

	hub := feed.NewHub(feed.WithLogger(logger.With("component", "feed")))
	defer hub.Close()
	publisher := audit.NewPublisher(logger, audit.NewLogSink(logger.With("component", "audit")), hub)
	if st.events != nil {
		publisher.AddSink(audit.NewStoreSink(st.events))
	}

	svc := api.Services{
		Compliance: compliance.New(st.records, roles, deriver,
			compliance.WithLogger(logger), compliance.WithPublisher(publisher)),
		Token: token.New(st.records, roles,
			token.WithClock(clk), token.WithLogger(logger), token.WithPublisher(publisher)),
		Vesting: vesting.New(st.records, roles, deriver,
			vesting.WithClock(clk), vesting.WithLogger(logger), vesting.WithPublisher(publisher)),
		Hook:   enforcement.NewHook(st.records, clk),
		Events: st.events,
		Feed:   hub,
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.New(svc, api.WithLogger(logger.With("component", "api"))).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.Server.Addr, "backend", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
