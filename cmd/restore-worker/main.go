// The restore-worker consumes SQL import messages from the queue, fetches
// the referenced dump from the artifact store, and replays it into the
// operational PostgreSQL database. It runs separately from the web server so
// long restores never block uploads.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/logging"
	"github.com/ledgerlens/ledgerlens/internal/objectstore"
	"github.com/ledgerlens/ledgerlens/internal/queue"
	"github.com/ledgerlens/ledgerlens/internal/restore"
	"github.com/ledgerlens/ledgerlens/internal/worker"
)

func main() {
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if cfg.Restore.DatabaseURL == "" {
		slog.Error("RESTORE_DATABASE_URL is required for the restore worker")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Restore.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to restore database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping restore database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Restore.DatabaseURL); err == nil {
		slog.Info("connected to restore database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	store, err := newStore(cfg)
	if err != nil {
		slog.Error("failed to open artifact store", "error", err)
		os.Exit(1)
	}

	q, err := queue.ConnectNATS(cfg.Queue.URL)
	if err != nil {
		slog.Error("failed to connect to queue", "url", cfg.Queue.URL, "error", err)
		os.Exit(1)
	}
	defer q.Close()

	imp := worker.NewImporter(store, restore.NewPostgres(pool))
	if err := imp.Subscribe(q, cfg.Queue.ImportTopic); err != nil {
		slog.Error("failed to subscribe", "topic", cfg.Queue.ImportTopic, "error", err)
		os.Exit(1)
	}

	slog.Info("restore worker running", "topic", cfg.Queue.ImportTopic)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
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
