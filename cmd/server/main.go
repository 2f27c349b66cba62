package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/cvazzz/guiadocs/internal/config"
	"github.com/cvazzz/guiadocs/internal/conflicts"
	"github.com/cvazzz/guiadocs/internal/documents"
	"github.com/cvazzz/guiadocs/internal/importer"
	"github.com/cvazzz/guiadocs/internal/lduapi"
	"github.com/cvazzz/guiadocs/internal/logging"
	"github.com/cvazzz/guiadocs/internal/mapper"
	"github.com/cvazzz/guiadocs/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"backend_url", cfg.Backend.URL,
		"db_max_conns", cfg.Database.MaxConns,
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	backend, err := lduapi.New(lduapi.Config{
		BaseURL: cfg.Backend.URL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout,
	})
	if err != nil {
		slog.Error("failed to create backend client", "error", err)
		os.Exit(1)
	}

	store := documents.NewStore(pool)
	workflow := conflicts.NewWorkflow(backend, 100)
	sessions := importer.NewManager(backend, mapper.DefaultCatalog(), cfg.Upload.SessionTTL)
	defer sessions.Shutdown()

	server := web.NewServer(cfg, store, backend, workflow, sessions)

	// Background jobs share one cancellable context so shutdown stops
	// them before the HTTP listener drains.
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go conflicts.StartWatcher(jobCtx, workflow, cfg.Poll.ConflictInterval, func() {
		s := workflow.Summary()
		if s.TotalPendientes > 0 {
			slog.Info("pending conflicts", "total", s.TotalPendientes, "registros", s.RegistrosAfectados)
		}
	})

	go documents.Listen(jobCtx, pool, func(payload string) {
		slog.Debug("document event", "payload", payload)
	})

	go documents.StartPendingPoller(jobCtx, store, cfg.Poll.DocumentInterval, func(pending int) {
		if pending > 0 {
			slog.Info("documents awaiting OCR", "pending", pending)
		}
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
