// Package pipeline implements the ingestion-routing and report-publishing
// core: it classifies uploaded artifacts by format, lands them as warehouse
// tables, hands SQL restores off to an async worker, infers semantic column
// roles, and publishes parameterized finance reports as persisted views.
//
// The package has no HTTP dependencies. The warehouse, artifact store, and
// message queue are injected capability interfaces.
package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/ledgerlens/ledgerlens/internal/warehouse"
)

// UploadArtifact is one uploaded file: raw bytes plus the original filename.
// Ephemeral: created per request, discarded after processing.
type UploadArtifact struct {
	Name string
	Data []byte
}

// Size returns the artifact's size in bytes.
func (a UploadArtifact) Size() int64 { return int64(len(a.Data)) }

// RouteOutcome says which path an upload took through the format router.
type RouteOutcome string

const (
	// OutcomeLoaded means the artifact was loaded into a warehouse table.
	OutcomeLoaded RouteOutcome = "loaded"

	// OutcomeForwarded means a SQL artifact was persisted and an import
	// message was enqueued; the restore happens asynchronously.
	OutcomeForwarded RouteOutcome = "forwarded"
)

// RouteResult is the successful result of routing an upload.
// Rejections (unsupported format, invalid identifier) are returned as errors
// carrying their pipeline kind.
type RouteResult struct {
	Outcome RouteOutcome
	Table   string           // derived table name (loaded uploads)
	Schema  warehouse.Schema // resulting schema (loaded uploads)
	Message string           // queue message id (forwarded uploads)
}

// ImportMessage is the transient queue payload identifying a SQL artifact
// awaiting restore. Produced by the format router, consumed by the restore
// worker.
type ImportMessage struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket"`
}

// Encode serializes the message for queue transport.
func (m ImportMessage) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode import message: %w", err)
	}
	return data, nil
}

// DecodeImportMessage parses a queue payload into an ImportMessage.
func DecodeImportMessage(payload []byte) (ImportMessage, error) {
	var m ImportMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return ImportMessage{}, fmt.Errorf("decode import message: %w", err)
	}
	return m, nil
}

// ReportResult holds the rows returned by an ad-hoc report run.
type ReportResult struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}
