package web

// handlers.go contains the HTTP handlers for uploads, report runs, view
// publishing, and snapshot downloads. Handlers stay thin: parse, delegate to
// the pipeline service, respond.

import (
	"embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ledgerlens/ledgerlens/internal/logging"
	"github.com/ledgerlens/ledgerlens/internal/pipeline"
	authmw "github.com/ledgerlens/ledgerlens/internal/web/middleware"
)

//go:embed static/index.html
var staticFS embed.FS

var indexTemplate = template.Must(template.ParseFS(staticFS, "static/index.html"))

// uploadResponse is the JSON body returned for a routed upload.
type uploadResponse struct {
	Outcome string   `json:"outcome"`
	Table   string   `json:"table,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Message string   `json:"message,omitempty"`
}

// handleHealthz reports liveness for load balancer checks.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleIndex serves the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Email   string
		Reports []pipeline.Report
	}{
		Email:   authmw.UserEmail(r.Context()),
		Reports: s.service.ListReports(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleWhoami returns the proxy-authenticated identity.
func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"email": authmw.UserEmail(r.Context())})
}

// handleUpload accepts a multipart file upload and routes it through the
// pipeline. Tabular files land as a warehouse table and get an analysis
// snapshot; SQL dumps are forwarded to the restore worker.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondErrorJSON(w, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("file exceeds the %d byte upload limit", s.cfg.Upload.MaxFileSize))
			return
		}
		respondErrorJSON(w, http.StatusBadRequest, "bad_multipart", "could not parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "missing_file", "form field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondErrorJSON(w, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("file exceeds the %d byte upload limit", s.cfg.Upload.MaxFileSize))
			return
		}
		respondErrorJSON(w, http.StatusBadRequest, "read_failure", "could not read uploaded file")
		return
	}

	log.Info("upload received",
		"file", header.Filename,
		"bytes", len(data),
		"user", authmw.UserEmail(r.Context()),
	)

	result, err := s.service.RouteUpload(r.Context(), pipeline.UploadArtifact{
		Name: header.Filename,
		Data: data,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := uploadResponse{Outcome: string(result.Outcome)}
	switch result.Outcome {
	case pipeline.OutcomeLoaded:
		resp.Table = result.Table
		resp.Columns = result.Schema.Names()
		resp.Message = fmt.Sprintf("loaded %s into table %s", header.Filename, result.Table)

		// Snapshot failures don't fail the upload; the table is already
		// loaded and the snapshot can be regenerated.
		if err := s.service.RunAnalysis(r.Context(), result.Table); err != nil {
			log.Warn("analysis snapshot failed", "table", result.Table, "error", err)
		}
	case pipeline.OutcomeForwarded:
		resp.Message = fmt.Sprintf("queued %s for database restore (message %s)", header.Filename, result.Message)
	}

	respondJSON(w, resp)
}

// handleListReports returns the report catalog.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	type reportEntry struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	reports := s.service.ListReports()
	entries := make([]reportEntry, 0, len(reports))
	for _, rep := range reports {
		entries = append(entries, reportEntry{ID: rep.ID, Label: rep.Label})
	}
	respondJSON(w, map[string]any{"reports": entries})
}

// runReportRequest is the JSON body for POST /run_report.
type runReportRequest struct {
	Report string `json:"report"`
	Table  string `json:"table"`
	Limit  int    `json:"limit"`
}

// handleRunReport executes a catalog report against a loaded table and
// returns the rows as JSON.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	var req runReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "bad_json", "request body must be JSON")
		return
	}
	if req.Report == "" || req.Table == "" {
		respondErrorJSON(w, http.StatusBadRequest, "missing_field", "fields 'report' and 'table' are required")
		return
	}
	if req.Limit < 0 {
		respondErrorJSON(w, http.StatusBadRequest, "bad_limit", "limit must not be negative")
		return
	}

	result, err := s.service.RunReport(r.Context(), req.Report, req.Table, req.Limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, result)
}

// handleDownloadReport runs a report without a row cap and streams the
// result as a CSV attachment.
func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	reportID := r.URL.Query().Get("report")
	table := r.URL.Query().Get("table")
	if reportID == "" || table == "" {
		respondErrorJSON(w, http.StatusBadRequest, "missing_field", "query parameters 'report' and 'table' are required")
		return
	}

	result, err := s.service.RunReport(r.Context(), reportID, table, -1)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s__%s.csv", table, reportID)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := writeCSV(w, result); err != nil {
		logging.FromContext(r.Context()).Error("stream report csv", "report", reportID, "table", table, "error", err)
	}
}

// publishViewsRequest is the JSON body for POST /publish_views.
type publishViewsRequest struct {
	Table string `json:"table"`
}

// handlePublishViews materializes the whole report catalog as views over a
// loaded table.
func (s *Server) handlePublishViews(w http.ResponseWriter, r *http.Request) {
	var req publishViewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "bad_json", "request body must be JSON")
		return
	}
	if req.Table == "" {
		respondErrorJSON(w, http.StatusBadRequest, "missing_field", "field 'table' is required")
		return
	}

	views, err := s.service.PublishViews(r.Context(), req.Table)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, map[string]any{"table": req.Table, "views": views})
}

// handleDownload serves a persisted analysis snapshot CSV. Only files
// matching the <table>_results.csv convention are addressable; all other
// artifact paths stay private.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	table, ok := strings.CutSuffix(filename, "_results.csv")
	if !ok || table == "" {
		respondErrorJSON(w, http.StatusNotFound, "not_found", "no such download")
		return
	}

	data, err := s.service.AnalysisResult(r.Context(), table)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

// writeCSV streams a report result as CSV with a header row.
func writeCSV(w io.Writer, result *pipeline.ReportResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return err
	}
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				continue
			}
			record[i] = fmt.Sprint(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
