// Package worker consumes SQL import messages and restores the referenced
// dumps into the operational database.
//
// The worker is the consuming half of the async SQL hand-off. Delivery is
// at-least-once, so handling must be safe to re-run: restores are keyed by
// the dump's deterministic target objects, and a repeated message replays
// the same dump rather than accumulating state.
package worker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/objectstore"
	"github.com/ledgerlens/ledgerlens/internal/pipeline"
	"github.com/ledgerlens/ledgerlens/internal/queue"
	"github.com/ledgerlens/ledgerlens/internal/restore"
)

// Importer handles SQL import messages from the queue.
type Importer struct {
	store    objectstore.Store
	restorer restore.Restorer
}

// NewImporter creates an import worker with injected collaborators.
func NewImporter(store objectstore.Store, restorer restore.Restorer) *Importer {
	return &Importer{store: store, restorer: restorer}
}

// Subscribe registers the importer on the queue topic.
func (w *Importer) Subscribe(q queue.Queue, topic string) error {
	return q.Subscribe(topic, w.Handle)
}

// Handle processes one queue delivery.
//
// Malformed payloads and non-SQL names are ignored, not errored: messages
// from other sources must never crash the worker. Restore failures are
// logged and the message is still considered handled: a failed restore
// requires a manual re-upload, not an automatic retry that would replay an
// expensive restore on a poison message.
func (w *Importer) Handle(ctx context.Context, payload []byte) error {
	msg, err := pipeline.DecodeImportMessage(payload)
	if err != nil {
		slog.Warn("ignoring malformed import message", "error", err)
		return nil
	}

	log := slog.Default().With("file", msg.Name, "bucket", msg.Bucket)

	if !strings.HasSuffix(strings.ToLower(msg.Name), ".sql") {
		log.Info("skipping non-sql import message")
		return nil
	}

	dump, err := w.store.Get(ctx, "uploads/"+msg.Name)
	if err != nil {
		log.Error("sql artifact not readable", "error", err)
		return nil
	}

	log.Info("restore starting", "bytes", len(dump))
	if err := w.restorer.RestoreDump(ctx, dump); err != nil {
		log.Error("restore failed", "error", err)
		return nil
	}

	log.Info("restore completed")
	return nil
}
