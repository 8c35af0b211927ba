package pipeline

// fakes_test.go provides in-memory test doubles for the pipeline's
// collaborators. The object store uses the real memory implementation; the
// warehouse and queue are recording fakes.

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ledgerlens/ledgerlens/internal/objectstore"
	"github.com/ledgerlens/ledgerlens/internal/queue"
	"github.com/ledgerlens/ledgerlens/internal/warehouse"
)

// loadCall records one LoadTable invocation.
type loadCall struct {
	Table  string
	Format warehouse.SourceFormat
}

// fakeWarehouse records loads, views, and queries.
type fakeWarehouse struct {
	mu      sync.Mutex
	tables  map[string]warehouse.Schema
	views   map[string]string
	loads   []loadCall
	queries []string

	// loadSchema is assigned to tables on LoadTable when set.
	loadSchema warehouse.Schema

	// queryRows is returned from Query when set.
	queryRows *warehouse.Rows

	loadErr  error
	queryErr error
	viewErr  error
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{
		tables: make(map[string]warehouse.Schema),
		views:  make(map[string]string),
	}
}

func (f *fakeWarehouse) LoadTable(ctx context.Context, table, sourcePath string, format warehouse.SourceFormat) (warehouse.Schema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, loadCall{Table: table, Format: format})
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	schema := f.loadSchema
	if schema == nil {
		schema = warehouse.Schema{{Name: "col1", Type: "VARCHAR"}}
	}
	f.tables[table] = schema
	return schema, nil
}

func (f *fakeWarehouse) GetTable(ctx context.Context, table string) (warehouse.Schema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	schema, ok := f.tables[table]
	if !ok {
		return nil, warehouse.ErrTableNotFound
	}
	return schema, nil
}

func (f *fakeWarehouse) Query(ctx context.Context, sql string, limit int) (*warehouse.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, fmt.Sprintf("limit=%d %s", limit, sql))
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryRows != nil {
		return f.queryRows, nil
	}
	return &warehouse.Rows{Columns: []string{"col1"}, Rows: [][]any{{"v"}}}, nil
}

func (f *fakeWarehouse) CreateOrReplaceView(ctx context.Context, view, query string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.viewErr != nil {
		return f.viewErr
	}
	f.views[view] = query
	return nil
}

func (f *fakeWarehouse) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

// fakeQueue records published messages.
type fakeQueue struct {
	mu         sync.Mutex
	published  []publishedMsg
	publishErr error
}

type publishedMsg struct {
	Topic   string
	Payload []byte
}

func (q *fakeQueue) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return "", q.publishErr
	}
	q.published = append(q.published, publishedMsg{Topic: topic, Payload: payload})
	return fmt.Sprintf("msg-%d", len(q.published)), nil
}

func (q *fakeQueue) Subscribe(topic string, h queue.Handler) error { return nil }
func (q *fakeQueue) Close() error                                  { return nil }

// testEnv bundles a service with its fakes.
type testEnv struct {
	svc   *Service
	store *objectstore.Memory
	wh    *fakeWarehouse
	queue *fakeQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := objectstore.NewMemory()
	wh := newFakeWarehouse()
	q := &fakeQueue{}
	svc, err := NewService(store, wh, q, Options{
		Catalog:     "ledgerlens",
		Dataset:     "main",
		Bucket:      "test-bucket",
		ImportTopic: "sql.import",
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &testEnv{svc: svc, store: store, wh: wh, queue: q}
}

// expenseSchema is a typical ingested table with all four roles present.
func expenseSchema() warehouse.Schema {
	return warehouse.Schema{
		{Name: "department", Type: "VARCHAR"},
		{Name: "amount", Type: "DOUBLE"},
		{Name: "date", Type: "DATE"},
		{Name: "expense_type", Type: "VARCHAR"},
	}
}

// wantKind fails the test unless err carries the given pipeline kind.
func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	got, ok := KindOf(err)
	if !ok {
		t.Fatalf("expected %s error, got unclassified: %v", kind, err)
	}
	if got != kind {
		t.Fatalf("expected kind %s, got %s: %v", kind, got, err)
	}
}

// containsAll fails unless s contains every substring.
func containsAll(t *testing.T, s string, subs ...string) {
	t.Helper()
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			t.Errorf("expected %q to contain %q", s, sub)
		}
	}
}
