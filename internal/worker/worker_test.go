package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/nick-gallo-ethico/caseindex/internal/builder"
	"github.com/nick-gallo-ethico/caseindex/internal/domain"
	"github.com/nick-gallo-ethico/caseindex/internal/metrics"
	"github.com/nick-gallo-ethico/caseindex/internal/queue"
	"github.com/nick-gallo-ethico/caseindex/internal/relstore"
)

type mockDocs struct {
	mu       sync.Mutex
	upserts  []*domain.CaseDocument
	deletes  []string
	upsertFn func(doc *domain.CaseDocument) error
}

func (m *mockDocs) Upsert(_ context.Context, doc *domain.CaseDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertFn != nil {
		if err := m.upsertFn(doc); err != nil {
			return err
		}
	}
	m.upserts = append(m.upserts, doc)
	return nil
}

func (m *mockDocs) Delete(_ context.Context, tenantID, caseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, tenantID+"/"+caseID)
	return nil
}

func (m *mockDocs) snapshot() (int, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts), append([]string(nil), m.deletes...)
}

type mockProv struct {
	mu      sync.Mutex
	ensured []string
}

func (m *mockProv) Ensure(_ context.Context, tenantID string, entity domain.EntityType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensured = append(m.ensured, tenantID+"/"+string(entity))
	return nil
}

func newPool(t *testing.T, store relstore.Store, q queue.Queue, docs *mockDocs, opts Options) *Pool {
	t.Helper()
	b := builder.New(store, zap.NewNop())
	p := NewPool(q, b, docs, &mockProv{}, opts, zap.NewNop())
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func seed(m *relstore.Memory, caseID string) {
	m.PutCase(domain.Case{ID: caseID, TenantID: "acme", ReferenceNumber: "REF-" + caseID, Status: "OPEN"})
}

func job(id string, op domain.Operation) domain.Job {
	return domain.Job{
		TenantID:    "acme",
		EntityType:  domain.EntityCase,
		EntityID:    id,
		Operation:   op,
		SubmittedAt: time.Now(),
	}
}

func TestProcess_UpsertBuildsCurrentState(t *testing.T) {
	m := relstore.NewMemory()
	seed(m, "c1")
	docs := &mockDocs{}
	p := newPool(t, m, queue.NewMemory(4), docs, Options{})

	if err := p.Process(context.Background(), job("c1", domain.OpUpdate)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(docs.upserts) != 1 || docs.upserts[0].ID != "c1" {
		t.Fatalf("upserts = %+v", docs.upserts)
	}
}

func TestProcess_MissingAggregateBecomesDelete(t *testing.T) {
	m := relstore.NewMemory()
	docs := &mockDocs{}
	p := newPool(t, m, queue.NewMemory(4), docs, Options{})

	if err := p.Process(context.Background(), job("gone", domain.OpUpdate)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(docs.upserts) != 0 {
		t.Fatalf("unexpected upserts: %+v", docs.upserts)
	}
	if len(docs.deletes) != 1 || docs.deletes[0] != "acme/gone" {
		t.Fatalf("deletes = %v", docs.deletes)
	}
}

func TestProcess_DeleteIsIdempotent(t *testing.T) {
	docs := &mockDocs{}
	p := newPool(t, relstore.NewMemory(), queue.NewMemory(4), docs, Options{})

	for i := 0; i < 2; i++ {
		if err := p.Process(context.Background(), job("c1", domain.OpDelete)); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if len(docs.deletes) != 2 {
		t.Fatalf("deletes = %v", docs.deletes)
	}
}

func TestProcess_RejectsInvalidJob(t *testing.T) {
	p := newPool(t, relstore.NewMemory(), queue.NewMemory(4), &mockDocs{}, Options{})
	err := p.Process(context.Background(), domain.Job{TenantID: "acme"})
	if !errors.Is(err, domain.ErrInvalidJob) {
		t.Fatalf("err = %v, want ErrInvalidJob", err)
	}
}

func TestRun_ConvergesQueueToIndex(t *testing.T) {
	m := relstore.NewMemory()
	seed(m, "c1")
	seed(m, "c2")
	q := queue.NewMemory(16)
	docs := &mockDocs{}
	p := newPool(t, m, q, docs, Options{Workers: 2})

	ctx := context.Background()
	for _, id := range []string{"c1", "c2"} {
		if err := q.Enqueue(ctx, job(id, domain.OpCreate)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- p.Run(runCtx) }()

	deadline := time.After(2 * time.Second)
	for {
		n, _ := docs.snapshot()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("workers did not converge")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if depth, _ := q.Depth(ctx); depth != 0 {
		t.Fatalf("queue depth = %d, want 0", depth)
	}
}

func TestHandle_ExhaustedRetriesDeadLetter(t *testing.T) {
	m := relstore.NewMemory()
	seed(m, "c1")
	q := queue.NewMemory(16)
	docs := &mockDocs{upsertFn: func(*domain.CaseDocument) error {
		return errors.New("engine down")
	}}
	p := newPool(t, m, q, docs, Options{MaxAttempts: 3})

	ctx := context.Background()
	j := job("c1", domain.OpUpdate)
	if err := q.Enqueue(ctx, j); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Drive deliveries by hand until the job is parked.
	for i := 0; i < 3; i++ {
		got, err := q.Receive(ctx, 1)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("attempt %d: deliveries = %d", i, len(got))
		}
		p.handle(ctx, got[0])
	}

	parked := q.Parked()
	if len(parked) != 1 || parked[0].EntityID != "c1" {
		t.Fatalf("parked = %+v", parked)
	}
	if parked[0].Attempts < 2 {
		t.Fatalf("attempts = %d, want accumulated retries", parked[0].Attempts)
	}
	if depth, _ := q.Depth(ctx); depth != 0 {
		t.Fatalf("queue depth = %d, want 0", depth)
	}
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	p := newPool(t, relstore.NewMemory(), queue.NewMemory(1), &mockDocs{}, Options{
		BackoffBase: 100 * time.Millisecond,
		BackoffCap:  time.Second,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{10, time.Second},
	}
	for _, tc := range tests {
		if got := p.backoff(tc.attempt); got != tc.want {
			t.Fatalf("backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

// partialQueue yields one good delivery together with a transport error on
// the first receive, then blocks. It mimics a batch where a sibling entry was
// corrupt but this delivery was fine.
type partialQueue struct {
	mu        sync.Mutex
	delivered bool
	d         queue.Delivery
	acked     []string
}

func (q *partialQueue) Enqueue(context.Context, domain.Job) error { return nil }

func (q *partialQueue) Receive(ctx context.Context, _ int) ([]queue.Delivery, error) {
	q.mu.Lock()
	first := !q.delivered
	q.delivered = true
	q.mu.Unlock()
	if first {
		return []queue.Delivery{q.d}, errors.New("corrupt sibling entry")
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (q *partialQueue) Ack(_ context.Context, d queue.Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, d.Receipt)
	return nil
}

func (q *partialQueue) Park(context.Context, queue.Delivery) error { return nil }
func (q *partialQueue) Depth(context.Context) (int64, error)       { return 0, nil }
func (q *partialQueue) Close() error                               { return nil }

func (q *partialQueue) snapshotAcked() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

func TestRun_PartialReceiveStillHandlesDeliveries(t *testing.T) {
	m := relstore.NewMemory()
	seed(m, "c1")
	q := &partialQueue{d: queue.Delivery{Job: job("c1", domain.OpUpdate), Receipt: "7-0"}}
	docs := &mockDocs{}
	p := newPool(t, m, q, docs, Options{Workers: 1})

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(runCtx) }()

	deadline := time.After(2 * time.Second)
	for {
		n, _ := docs.snapshot()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("delivery alongside a receive error was dropped")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	acked := q.snapshotAcked()
	if len(acked) != 1 || acked[0] != "7-0" {
		t.Fatalf("acked = %v, want the delivered receipt", acked)
	}
}

func TestNewPool_ExportsStalenessTarget(t *testing.T) {
	newPool(t, relstore.NewMemory(), queue.NewMemory(1), &mockDocs{}, Options{
		StalenessTarget: 7 * time.Second,
	})
	if got := testutil.ToFloat64(metrics.IndexStalenessTarget); got != 7 {
		t.Fatalf("staleness target gauge = %v, want 7", got)
	}
}
