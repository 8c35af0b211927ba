package pipeline

// service.go wires the pipeline's collaborators and exposes the
// pipeline-facing API consumed by the HTTP shell: RouteUpload,
// ResolveColumns, RenderReport, PublishViews, plus the ad-hoc report run and
// analysis snapshot paths.
//
// Every identifier crossing this boundary is re-validated even when the
// caller claims to have validated it already.

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/ledgerlens/ledgerlens/internal/objectstore"
	"github.com/ledgerlens/ledgerlens/internal/queue"
	"github.com/ledgerlens/ledgerlens/internal/warehouse"
)

// DefaultReportLimit caps ad-hoc report runs when the caller supplies none.
const DefaultReportLimit = 1000

// analysisSampleRows is the number of rows sampled into analysis snapshots.
const analysisSampleRows = 10

// Options configures a pipeline Service.
type Options struct {
	// Catalog is the warehouse catalog (database) part of fully-qualified
	// table identifiers.
	Catalog string

	// Dataset is the schema part of fully-qualified table identifiers.
	Dataset string

	// Bucket is the logical artifact store name carried in import messages.
	Bucket string

	// ImportTopic is the queue topic SQL import messages are published on.
	ImportTopic string
}

// Service is the ingestion pipeline facade.
type Service struct {
	store objectstore.Store
	wh    warehouse.Warehouse
	queue queue.Queue
	opts  Options
}

// NewService creates a pipeline service with injected collaborators.
func NewService(store objectstore.Store, wh warehouse.Warehouse, q queue.Queue, opts Options) (*Service, error) {
	if err := ValidateIdentifier(opts.Catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog name: %w", err)
	}
	if err := ValidateIdentifier(opts.Dataset); err != nil {
		return nil, fmt.Errorf("invalid dataset name: %w", err)
	}
	if opts.ImportTopic == "" {
		return nil, fmt.Errorf("import topic is required")
	}
	return &Service{store: store, wh: wh, queue: q, opts: opts}, nil
}

// TableFQ returns the fully-qualified identifier for a validated table name.
func (s *Service) TableFQ(table string) string {
	return fmt.Sprintf("%s.%s.%s", s.opts.Catalog, s.opts.Dataset, table)
}

// ResolveColumns inspects a table's schema and maps semantic roles onto its
// column names.
func (s *Service) ResolveColumns(ctx context.Context, table string) (RoleMap, error) {
	schema, err := s.tableSchema(ctx, table)
	if err != nil {
		return RoleMap{}, err
	}
	return ResolveRoles(schema)
}

// RenderReportForTable resolves the table's column roles and renders the
// report template into executable SQL.
func (s *Service) RenderReportForTable(ctx context.Context, reportID, table string) (string, error) {
	if _, ok := LookupReport(reportID); !ok {
		return "", Errorf(KindUnknownReport, "unknown report id %q", reportID)
	}
	roles, err := s.ResolveColumns(ctx, table)
	if err != nil {
		return "", err
	}
	return RenderReport(reportID, s.TableFQ(table), roles)
}

// RunReport renders a report for table and executes it, returning up to
// limit rows. A zero limit applies DefaultReportLimit; a negative limit
// returns all rows (used by CSV downloads). The ad-hoc path re-resolves
// columns on every call so it always reflects the table's current schema.
func (s *Service) RunReport(ctx context.Context, reportID, table string, limit int) (*ReportResult, error) {
	switch {
	case limit == 0:
		limit = DefaultReportLimit
	case limit < 0:
		limit = 0
	}
	sql, err := s.RenderReportForTable(ctx, reportID, table)
	if err != nil {
		return nil, err
	}
	rows, err := s.wh.Query(ctx, sql, limit)
	if err != nil {
		return nil, WrapErr(KindLoadFailure, err, "run report %s on %s", reportID, table)
	}
	return &ReportResult{
		Columns:  rows.Columns,
		Rows:     rows.Rows,
		RowCount: len(rows.Rows),
	}, nil
}

// ListReports returns the report catalog's ids and labels in fixed order.
func (s *Service) ListReports() []Report {
	return Reports()
}

// RunAnalysis samples the table and persists the snapshot two ways: a CSV
// under analysis_results/ in the artifact store, and a <table>_analysis
// warehouse table (truncate-replace). Runs after every successful tabular
// load so dashboards always have a fresh sample to point at.
func (s *Service) RunAnalysis(ctx context.Context, table string) error {
	if err := ValidateIdentifier(table); err != nil {
		return err
	}
	if _, err := s.wh.GetTable(ctx, table); err != nil {
		if errors.Is(err, warehouse.ErrTableNotFound) {
			return Errorf(KindResolutionError, "table %q not found", table)
		}
		return WrapErr(KindLoadFailure, err, "inspect table %s", table)
	}

	sample, err := s.wh.Query(ctx,
		fmt.Sprintf("SELECT * FROM %s LIMIT %d", s.TableFQ(table), analysisSampleRows), 0)
	if err != nil {
		return WrapErr(KindLoadFailure, err, "sample table %s", table)
	}

	csvData, err := rowsToCSV(sample)
	if err != nil {
		return WrapErr(KindLoadFailure, err, "encode analysis snapshot for %s", table)
	}

	resultPath := fmt.Sprintf("analysis_results/%s_results.csv", table)
	if err := s.store.Put(ctx, resultPath, csvData); err != nil {
		return WrapErr(KindLoadFailure, err, "persist analysis snapshot for %s", table)
	}

	analysisTable := table + "_analysis"
	if err := ValidateIdentifier(analysisTable); err != nil {
		return err
	}
	if err := s.loadFromBytes(ctx, analysisTable, analysisTable+".csv", csvData, warehouse.FormatCSV); err != nil {
		return WrapErr(KindLoadFailure, err, "load analysis table %s", analysisTable)
	}
	return nil
}

// AnalysisResult returns the persisted analysis snapshot CSV for a table.
func (s *Service) AnalysisResult(ctx context.Context, table string) ([]byte, error) {
	if err := ValidateIdentifier(table); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("analysis_results/%s_results.csv", table)
	data, err := s.store.Get(ctx, path)
	if errors.Is(err, objectstore.ErrNotExist) {
		return nil, Errorf(KindResolutionError, "no analysis results for table %q", table)
	}
	if err != nil {
		return nil, WrapErr(KindLoadFailure, err, "read analysis results for %s", table)
	}
	return data, nil
}

// tableSchema validates the table name and fetches its schema.
func (s *Service) tableSchema(ctx context.Context, table string) (warehouse.Schema, error) {
	if err := ValidateIdentifier(table); err != nil {
		return nil, err
	}
	schema, err := s.wh.GetTable(ctx, table)
	if errors.Is(err, warehouse.ErrTableNotFound) {
		return nil, Errorf(KindResolutionError, "table %q not found", table)
	}
	if err != nil {
		return nil, WrapErr(KindLoadFailure, err, "inspect table %s", table)
	}
	return schema, nil
}

// rowsToCSV encodes a query result as CSV with a header row.
func rowsToCSV(rows *warehouse.Rows) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(rows.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				record[i] = ""
				continue
			}
			record[i] = fmt.Sprint(v)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
