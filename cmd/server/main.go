package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/logging"
	"github.com/ledgerlens/ledgerlens/internal/objectstore"
	"github.com/ledgerlens/ledgerlens/internal/pipeline"
	"github.com/ledgerlens/ledgerlens/internal/queue"
	"github.com/ledgerlens/ledgerlens/internal/restore"
	"github.com/ledgerlens/ledgerlens/internal/warehouse"
	"github.com/ledgerlens/ledgerlens/internal/web"
	"github.com/ledgerlens/ledgerlens/internal/worker"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"warehouse", cfg.Warehouse.Path,
		"store_driver", cfg.Store.Driver,
		"queue_driver", cfg.Queue.Driver,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Open the analytical warehouse
	wh, err := warehouse.OpenDuckDB(ctx, cfg.Warehouse.Path)
	if err != nil {
		slog.Error("failed to open warehouse", "path", cfg.Warehouse.Path, "error", err)
		os.Exit(1)
	}
	defer wh.Close()
	slog.Info("warehouse opened", "path", cfg.Warehouse.Path)

	// Artifact store
	store, err := newStore(cfg)
	if err != nil {
		slog.Error("failed to open artifact store", "error", err)
		os.Exit(1)
	}

	// Import queue
	q, err := newQueue(ctx, cfg, store)
	if err != nil {
		slog.Error("failed to connect queue", "error", err)
		os.Exit(1)
	}
	defer q.Close()

	service, err := pipeline.NewService(store, wh, q, pipeline.Options{
		Catalog:     cfg.Warehouse.Catalog,
		Dataset:     cfg.Warehouse.Dataset,
		Bucket:      cfg.Store.Bucket,
		ImportTopic: cfg.Queue.ImportTopic,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// newStore builds the artifact store named by config.
func newStore(cfg *config.Config) (objectstore.Store, error) {
	switch cfg.Store.Driver {
	case "fs":
		return objectstore.NewFS(cfg.Store.Dir)
	case "memory":
		return objectstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// newQueue builds the import queue named by config.
//
// The memory driver runs everything in one process, so when a restore
// database is configured the import worker is subscribed here too;
// otherwise forwarded SQL dumps would sit in the store with nothing
// consuming their messages.
func newQueue(ctx context.Context, cfg *config.Config, store objectstore.Store) (queue.Queue, error) {
	switch cfg.Queue.Driver {
	case "nats":
		return queue.ConnectNATS(cfg.Queue.URL)
	case "memory":
		q := queue.NewMemory()
		if cfg.Restore.DatabaseURL != "" {
			pool, err := pgxpool.New(ctx, cfg.Restore.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("connect restore database: %w", err)
			}
			imp := worker.NewImporter(store, restore.NewPostgres(pool))
			if err := imp.Subscribe(q, cfg.Queue.ImportTopic); err != nil {
				return nil, err
			}
			slog.Info("in-process import worker attached", "topic", cfg.Queue.ImportTopic)
		} else {
			slog.Warn("memory queue without restore database; SQL imports will not be restored")
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}
