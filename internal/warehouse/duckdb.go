package warehouse

// duckdb.go implements the Warehouse interface on an embedded DuckDB
// database.
//
// DuckDB's read_csv_auto/read_json_auto/read_parquet table functions give us
// schema inference for free, and CREATE OR REPLACE TABLE gives the
// truncate-replace load semantics the pipeline requires. Views are standard
// CREATE OR REPLACE VIEW, which is idempotent under concurrent re-invocation
// (last writer wins).

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// DuckDB is a Warehouse backed by an embedded DuckDB database.
type DuckDB struct {
	db *sql.DB
}

// OpenDuckDB opens (or creates) a DuckDB database at path.
// Use ":memory:" for an in-memory database.
func OpenDuckDB(ctx context.Context, path string) (*DuckDB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return &DuckDB{db: db}, nil
}

// Close closes the underlying database.
func (w *DuckDB) Close() error {
	return w.db.Close()
}

// LoadTable loads sourcePath into table with truncate-replace semantics and
// returns the inferred schema. The table name must already be validated.
func (w *DuckDB) LoadTable(ctx context.Context, table, sourcePath string, format SourceFormat) (Schema, error) {
	absPath, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}

	var reader string
	switch format {
	case FormatCSV:
		reader = fmt.Sprintf("read_csv_auto(%s, header=true)", quoteLiteral(absPath))
	case FormatNDJSON:
		reader = fmt.Sprintf("read_json_auto(%s, format='newline_delimited')", quoteLiteral(absPath))
	case FormatParquet:
		reader = fmt.Sprintf("read_parquet(%s)", quoteLiteral(absPath))
	default:
		return nil, fmt.Errorf("unknown source format %q", format)
	}

	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", quoteIdent(table), reader)
	if _, err := w.db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("load %s into %s: %w", format, table, err)
	}

	return w.GetTable(ctx, table)
}

// GetTable returns the schema of table from information_schema, or
// ErrTableNotFound if it does not exist.
func (w *DuckDB) GetTable(ctx context.Context, table string) (Schema, error) {
	const query = `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'main' AND table_name = ?
		ORDER BY ordinal_position`

	rows, err := w.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query table schema: %w", err)
	}
	defer rows.Close()

	var schema Schema
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		schema = append(schema, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return schema, nil
}

// Query executes sql and returns up to limit rows with their column names.
func (w *DuckDB) Query(ctx context.Context, query string, limit int) (*Rows, error) {
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	result := &Rows{Columns: cols}
	for rows.Next() {
		if limit > 0 && len(result.Rows) >= limit {
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// CreateOrReplaceView creates or replaces the named view.
func (w *DuckDB) CreateOrReplaceView(ctx context.Context, view, query string) error {
	stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", quoteIdent(view), query)
	if _, err := w.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create or replace view %s: %w", view, err)
	}
	return nil
}

// quoteIdent double-quotes an identifier. Callers validate identifiers before
// they reach the warehouse; quoting here guards against reserved words only.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral single-quotes a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var _ Warehouse = (*DuckDB)(nil)
