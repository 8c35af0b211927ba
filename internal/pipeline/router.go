package pipeline

// router.go classifies an uploaded artifact by extension and routes it:
// tabular formats load into the warehouse, SQL dumps are persisted and
// handed off to the async restore worker, everything else is rejected.
//
// The routing steps for one upload are strictly sequential: persist the
// (possibly converted) artifact to the store, then load or forward. A
// failure at any step aborts the remainder, but a persisted artifact is
// never rolled back; the raw input is always retained.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/warehouse"
)

// RouteUpload dispatches an uploaded artifact by its lower-cased extension.
//
// Tabular uploads (.csv, .xls, .xlsx, .json, .parquet) land as a warehouse
// table named after the file, truncate-replacing any previous content. A
// .sql upload is persisted unmodified and an import message is enqueued; the
// call returns without waiting for the restore. Unknown extensions are
// rejected with an UnsupportedFormat error before anything is written.
func (s *Service) RouteUpload(ctx context.Context, artifact UploadArtifact) (RouteResult, error) {
	if artifact.Name == "" {
		return RouteResult{}, Errorf(KindUnsupportedFormat, "upload has no filename")
	}
	if len(artifact.Data) == 0 {
		return RouteResult{}, Errorf(KindUnsupportedFormat, "uploaded file is empty")
	}

	ext := strings.ToLower(filepath.Ext(artifact.Name))
	table, err := TableNameForFile(artifact.Name)
	if err != nil {
		return RouteResult{}, err
	}

	log := slog.Default().With("file", artifact.Name, "table", table)

	switch ext {
	case ".csv":
		return s.loadArtifact(ctx, log, table, artifact.Name, artifact.Data, warehouse.FormatCSV)

	case ".xls", ".xlsx":
		csvData, err := excelToCSV(artifact.Data)
		if err != nil {
			return RouteResult{}, WrapErr(KindLoadFailure, err, "convert %s to csv", artifact.Name)
		}
		log.Info("excel converted to csv", "bytes", len(csvData))
		return s.loadArtifact(ctx, log, table, table+".csv", csvData, warehouse.FormatCSV)

	case ".json":
		return s.loadArtifact(ctx, log, table, artifact.Name, artifact.Data, warehouse.FormatNDJSON)

	case ".parquet":
		return s.loadArtifact(ctx, log, table, artifact.Name, artifact.Data, warehouse.FormatParquet)

	case ".sql":
		return s.forwardSQL(ctx, log, artifact)

	default:
		return RouteResult{}, Errorf(KindUnsupportedFormat,
			"unsupported file format %q: use CSV, Excel, JSON, Parquet, or SQL", ext)
	}
}

// loadArtifact persists the artifact under uploads/ and loads it into the
// warehouse. The store write happens first so the raw input survives a
// failed load.
func (s *Service) loadArtifact(ctx context.Context, log *slog.Logger, table, filename string, data []byte, format warehouse.SourceFormat) (RouteResult, error) {
	if err := s.store.Put(ctx, "uploads/"+filename, data); err != nil {
		return RouteResult{}, WrapErr(KindLoadFailure, err, "persist artifact %s", filename)
	}
	log.Info("artifact persisted", "path", "uploads/"+filename)

	if err := s.loadFromBytes(ctx, table, filename, data, format); err != nil {
		return RouteResult{}, WrapErr(KindLoadFailure, err, "load %s into table %s", filename, table)
	}

	schema, err := s.wh.GetTable(ctx, table)
	if err != nil {
		return RouteResult{}, WrapErr(KindLoadFailure, err, "inspect loaded table %s", table)
	}
	log.Info("table loaded", "columns", len(schema))

	return RouteResult{Outcome: OutcomeLoaded, Table: table, Schema: schema}, nil
}

// loadFromBytes stages data in a temp file and issues the warehouse load.
// Loads use replace semantics keyed by the table name.
func (s *Service) loadFromBytes(ctx context.Context, table, filename string, data []byte, format warehouse.SourceFormat) error {
	tmp, err := os.CreateTemp("", "load-*-"+filepath.Base(filename))
	if err != nil {
		return fmt.Errorf("stage artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("stage artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stage artifact: %w", err)
	}

	if _, err := s.wh.LoadTable(ctx, table, tmpName, format); err != nil {
		return err
	}
	return nil
}

// forwardSQL persists a SQL dump unmodified and enqueues an import message
// for the restore worker. Does not block on restore completion.
func (s *Service) forwardSQL(ctx context.Context, log *slog.Logger, artifact UploadArtifact) (RouteResult, error) {
	path := "uploads/" + artifact.Name
	if err := s.store.Put(ctx, path, artifact.Data); err != nil {
		return RouteResult{}, WrapErr(KindLoadFailure, err, "persist sql artifact %s", artifact.Name)
	}
	log.Info("sql artifact persisted", "path", path)

	payload, err := ImportMessage{Name: artifact.Name, Bucket: s.opts.Bucket}.Encode()
	if err != nil {
		return RouteResult{}, WrapErr(KindLoadFailure, err, "encode import message for %s", artifact.Name)
	}

	msgID, err := s.queue.Publish(ctx, s.opts.ImportTopic, payload)
	if err != nil {
		return RouteResult{}, WrapErr(KindRestoreFailure, err, "enqueue import for %s", artifact.Name)
	}
	log.Info("import message published", "topic", s.opts.ImportTopic, "message_id", msgID)

	return RouteResult{Outcome: OutcomeForwarded, Message: msgID}, nil
}
