// Package warehouse defines the analytical warehouse capability used by the
// ingestion pipeline, and its DuckDB implementation.
//
// The pipeline only ever talks to the Warehouse interface; production wires
// the DuckDB adapter, tests wire an in-memory fake. Identifiers passed to any
// method must already have passed the pipeline's strict validator.
package warehouse

import (
	"context"
	"errors"
)

// ErrTableNotFound is returned by GetTable when the table does not exist.
var ErrTableNotFound = errors.New("table not found")

// SourceFormat identifies the parser configuration for a load.
type SourceFormat string

const (
	// FormatCSV loads a comma-separated file with a header row; the schema
	// is inferred from content.
	FormatCSV SourceFormat = "csv"

	// FormatNDJSON loads newline-delimited JSON records with schema
	// inference.
	FormatNDJSON SourceFormat = "ndjson"

	// FormatParquet loads a Parquet file using its embedded schema.
	FormatParquet SourceFormat = "parquet"
)

// Column is one (name, type) pair in a table schema.
type Column struct {
	Name string
	Type string
}

// Schema is the ordered column list of a warehouse relation.
type Schema []Column

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Rows is a query result: column names plus row values in column order.
type Rows struct {
	Columns []string
	Rows    [][]any
}

// Warehouse is the capability interface for the analytical store.
//
// Loads use truncate-replace semantics keyed by table name: loading into an
// existing table always supersedes its prior content, never appends.
type Warehouse interface {
	// LoadTable loads the file at sourcePath into table, replacing any
	// existing content, and returns the resulting schema.
	LoadTable(ctx context.Context, table, sourcePath string, format SourceFormat) (Schema, error)

	// GetTable returns the schema of an existing table, or ErrTableNotFound.
	GetTable(ctx context.Context, table string) (Schema, error)

	// Query executes sql and returns at most limit rows (no limit if <= 0).
	Query(ctx context.Context, sql string, limit int) (*Rows, error)

	// CreateOrReplaceView creates the named view defined by sql, replacing
	// any existing view with that name.
	CreateOrReplaceView(ctx context.Context, view, sql string) error
}
