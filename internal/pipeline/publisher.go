package pipeline

// publisher.go materializes the report catalog as persisted warehouse views.
//
// View names follow the fixed <table>__<reportID>_v convention that
// dashboards rely on. A publish is all-or-nothing: consumers never see a
// partial view set.

import (
	"context"
	"fmt"
	"log/slog"
)

// ViewID derives the persisted view name for a (table, report) pair.
func ViewID(table, reportID string) string {
	return fmt.Sprintf("%s__%s_v", table, reportID)
}

// PublishViews creates or replaces one view per catalog report for table and
// returns the full {reportID: viewID} mapping. Column roles are resolved
// once and shared across all renders. Any render or publish failure aborts
// the whole batch with the originating error.
//
// Re-publishing for an unchanged schema is idempotent; two racing publishes
// for the same table settle last-writer-wins.
func (s *Service) PublishViews(ctx context.Context, table string) (map[string]string, error) {
	schema, err := s.tableSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	roles, err := ResolveRoles(schema)
	if err != nil {
		return nil, err
	}

	tableFQ := s.TableFQ(table)
	published := make(map[string]string, len(reportCatalog))

	for _, report := range reportCatalog {
		viewID := ViewID(table, report.ID)
		if err := ValidateIdentifier(viewID); err != nil {
			return nil, err
		}

		sql, err := RenderReport(report.ID, tableFQ, roles)
		if err != nil {
			return nil, WrapErr(KindPublishFailure, err, "render report %s for %s", report.ID, table)
		}
		if err := s.wh.CreateOrReplaceView(ctx, viewID, sql); err != nil {
			return nil, WrapErr(KindPublishFailure, err, "publish view %s", viewID)
		}

		slog.Debug("view published", "table", table, "report", report.ID, "view", viewID)
		published[report.ID] = viewID
	}

	slog.Info("report views published", "table", table, "views", len(published))
	return published, nil
}
