package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/objectstore"
	"github.com/ledgerlens/ledgerlens/internal/pipeline"
	"github.com/ledgerlens/ledgerlens/internal/queue"
	"github.com/ledgerlens/ledgerlens/internal/warehouse"
)

const testEmail = "finance@example.com"

// stubWarehouse is a minimal warehouse for handler tests.
type stubWarehouse struct {
	tables map[string]warehouse.Schema
	rows   *warehouse.Rows
}

func newStubWarehouse() *stubWarehouse {
	return &stubWarehouse{tables: make(map[string]warehouse.Schema)}
}

func (s *stubWarehouse) LoadTable(ctx context.Context, table, sourcePath string, format warehouse.SourceFormat) (warehouse.Schema, error) {
	schema := warehouse.Schema{
		{Name: "department", Type: "VARCHAR"},
		{Name: "amount", Type: "DOUBLE"},
		{Name: "date", Type: "DATE"},
	}
	s.tables[table] = schema
	return schema, nil
}

func (s *stubWarehouse) GetTable(ctx context.Context, table string) (warehouse.Schema, error) {
	schema, ok := s.tables[table]
	if !ok {
		return nil, warehouse.ErrTableNotFound
	}
	return schema, nil
}

func (s *stubWarehouse) Query(ctx context.Context, sql string, limit int) (*warehouse.Rows, error) {
	if s.rows != nil {
		return s.rows, nil
	}
	return &warehouse.Rows{Columns: []string{"department", "total_spent"}, Rows: [][]any{{"Eng", 10.0}}}, nil
}

func (s *stubWarehouse) CreateOrReplaceView(ctx context.Context, view, query string) error {
	return nil
}

type webEnv struct {
	server *Server
	store  *objectstore.Memory
	wh     *stubWarehouse
}

func newWebEnv(t *testing.T) *webEnv {
	t.Helper()
	store := objectstore.NewMemory()
	wh := newStubWarehouse()
	q := queue.NewMemory()
	t.Cleanup(func() { _ = q.Close() })

	svc, err := pipeline.NewService(store, wh, q, pipeline.Options{
		Catalog:     "ledgerlens",
		Dataset:     "main",
		Bucket:      "test-bucket",
		ImportTopic: "sql.import",
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Server = config.ServerConfig{Host: "127.0.0.1", Port: 0, ReadTimeout: time.Second,
		WriteTimeout: time.Second, IdleTimeout: time.Second, ShutdownTimeout: time.Second}
	cfg.Upload.MaxFileSize = 1 << 20
	cfg.Rate.Enabled = false
	cfg.Auth = config.AuthConfig{Required: true, Header: "X-Auth-Request-Email"}

	return &webEnv{server: NewServer(svc, cfg), store: store, wh: wh}
}

func (e *webEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("X-Auth-Request-Email", testEmail)
	return req
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func decodeJSON(t *testing.T, body io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthzBypassesAuth(t *testing.T) {
	env := newWebEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	env := newWebEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	rec = env.do(authed(httptest.NewRequest(http.MethodGet, "/whoami", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec.Body, &body)
	if body["email"] != testEmail {
		t.Errorf("email = %q", body["email"])
	}
}

func TestAuthIssuerPrefixStripped(t *testing.T) {
	env := newWebEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Auth-Request-Email", "accounts.google.com:"+testEmail)

	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec.Body, &body)
	if body["email"] != testEmail {
		t.Errorf("email = %q, want issuer prefix stripped", body["email"])
	}
}

func TestIndexPage(t *testing.T) {
	env := newWebEnv(t)
	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"LedgerLens", testEmail, "dept_totals"} {
		if !strings.Contains(body, want) {
			t.Errorf("index page missing %q", want)
		}
	}
}

func TestUploadCSV(t *testing.T) {
	env := newWebEnv(t)
	body, contentType := multipartBody(t, "Q3 Expenses.csv", []byte("department,amount,date\nEng,10,2024-01-01\n"))

	req := authed(httptest.NewRequest(http.MethodPost, "/upload", body))
	req.Header.Set("Content-Type", contentType)
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Outcome string   `json:"outcome"`
		Table   string   `json:"table"`
		Columns []string `json:"columns"`
	}
	decodeJSON(t, rec.Body, &resp)
	if resp.Outcome != "loaded" || resp.Table != "q3_expenses" {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Columns) == 0 {
		t.Error("no columns in response")
	}

	// The upload handler also snapshots the freshly loaded table
	if ok, _ := env.store.Exists(context.Background(), "analysis_results/q3_expenses_results.csv"); !ok {
		t.Error("analysis snapshot missing after upload")
	}
}

func TestUploadSQLForwarded(t *testing.T) {
	env := newWebEnv(t)
	body, contentType := multipartBody(t, "backup.sql", []byte("SELECT 1;"))

	req := authed(httptest.NewRequest(http.MethodPost, "/upload", body))
	req.Header.Set("Content-Type", contentType)
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Outcome string `json:"outcome"`
	}
	decodeJSON(t, rec.Body, &resp)
	if resp.Outcome != "forwarded" {
		t.Errorf("outcome = %q", resp.Outcome)
	}
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		status   int
		code     string
	}{
		{"unsupported format", "notes.txt", []byte("x"), http.StatusBadRequest, "unsupported_format"},
		{"reserved name", "select.csv", []byte("x"), http.StatusBadRequest, "invalid_identifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newWebEnv(t)
			body, contentType := multipartBody(t, tt.filename, tt.content)
			req := authed(httptest.NewRequest(http.MethodPost, "/upload", body))
			req.Header.Set("Content-Type", contentType)
			rec := env.do(req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var resp ErrorResponse
			decodeJSON(t, rec.Body, &resp)
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestUploadMissingFileField(t *testing.T) {
	env := newWebEnv(t)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("other", "value")
	_ = w.Close()

	req := authed(httptest.NewRequest(http.MethodPost, "/upload", &buf))
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := env.do(req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadTooLarge(t *testing.T) {
	env := newWebEnv(t)
	big := bytes.Repeat([]byte("a"), 2<<20) // twice the configured limit
	body, contentType := multipartBody(t, "big.csv", big)

	req := authed(httptest.NewRequest(http.MethodPost, "/upload", body))
	req.Header.Set("Content-Type", contentType)
	rec := env.do(req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestListReports(t *testing.T) {
	env := newWebEnv(t)
	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/reports", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Reports []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"reports"`
	}
	decodeJSON(t, rec.Body, &resp)
	if len(resp.Reports) != 5 {
		t.Errorf("got %d reports, want 5", len(resp.Reports))
	}
}

func TestRunReport(t *testing.T) {
	env := newWebEnv(t)
	env.wh.tables["expenses"] = warehouse.Schema{
		{Name: "department", Type: "VARCHAR"},
		{Name: "amount", Type: "DOUBLE"},
		{Name: "date", Type: "DATE"},
	}

	body := strings.NewReader(`{"report":"dept_totals","table":"expenses"}`)
	rec := env.do(authed(httptest.NewRequest(http.MethodPost, "/run_report", body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp pipeline.ReportResult
	decodeJSON(t, rec.Body, &resp)
	if resp.RowCount != 1 || len(resp.Columns) != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestRunReportErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"missing fields", `{"report":"dept_totals"}`, http.StatusBadRequest},
		{"negative limit", `{"report":"dept_totals","table":"t","limit":-1}`, http.StatusBadRequest},
		{"unknown report", `{"report":"bogus","table":"t"}`, http.StatusBadRequest},
		{"missing table", `{"report":"dept_totals","table":"ghost"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newWebEnv(t)
			rec := env.do(authed(httptest.NewRequest(http.MethodPost, "/run_report", strings.NewReader(tt.body))))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d; body = %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestDownloadReport(t *testing.T) {
	env := newWebEnv(t)
	env.wh.tables["expenses"] = warehouse.Schema{
		{Name: "department", Type: "VARCHAR"},
		{Name: "amount", Type: "DOUBLE"},
		{Name: "date", Type: "DATE"},
	}

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/download_report?report=dept_totals&table=expenses", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "expenses__dept_totals.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if lines[0] != "department,total_spent" {
		t.Errorf("csv header = %q", lines[0])
	}
}

func TestPublishViews(t *testing.T) {
	env := newWebEnv(t)
	env.wh.tables["expenses"] = warehouse.Schema{
		{Name: "department", Type: "VARCHAR"},
		{Name: "amount", Type: "DOUBLE"},
		{Name: "date", Type: "DATE"},
	}

	body := strings.NewReader(`{"table":"expenses"}`)
	rec := env.do(authed(httptest.NewRequest(http.MethodPost, "/publish_views", body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Table string            `json:"table"`
		Views map[string]string `json:"views"`
	}
	decodeJSON(t, rec.Body, &resp)
	if len(resp.Views) != 5 {
		t.Errorf("published %d views, want 5", len(resp.Views))
	}
	if resp.Views["dept_totals"] != "expenses__dept_totals_v" {
		t.Errorf("dept_totals view = %q", resp.Views["dept_totals"])
	}
}

func TestDownloadAnalysisResults(t *testing.T) {
	env := newWebEnv(t)
	want := "a,b\n1,2\n"
	if err := env.store.Put(context.Background(), "analysis_results/expenses_results.csv", []byte(want)); err != nil {
		t.Fatal(err)
	}

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/download/expenses_results.csv", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != want {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDownloadRejectsOtherPaths(t *testing.T) {
	env := newWebEnv(t)
	// A raw upload is stored but not addressable through /download
	if err := env.store.Put(context.Background(), "uploads/secret.sql", []byte("SELECT 1;")); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/download/secret.sql", "/download/_results.csv"} {
		rec := env.do(authed(httptest.NewRequest(http.MethodGet, path, nil)))
		if rec.Code == http.StatusOK {
			t.Errorf("GET %s = 200, want rejection", path)
		}
	}

	// Missing snapshot for a valid name is a 422, not a 500
	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/download/ghost_results.csv", nil)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing snapshot status = %d, want 422", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newWebEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}
