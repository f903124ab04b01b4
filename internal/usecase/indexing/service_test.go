package indexing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

func TestSubmit_StampsAndEnqueues(t *testing.T) {
	var got domain.Job
	q := &mockQueue{enqueueFn: func(_ context.Context, job domain.Job) error {
		got = job
		return nil
	}}

	svc := New(q, &mockCorpus{}, &mockProvisioner{}, zap.NewNop())
	fixed := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if err := svc.Submit(context.Background(), "acme", "c1", domain.OpUpdate); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.TenantID != "acme" || got.EntityID != "c1" || got.Operation != domain.OpUpdate {
		t.Fatalf("job = %+v", got)
	}
	if got.EntityType != domain.EntityCase {
		t.Fatalf("entity type = %q", got.EntityType)
	}
	if !got.SubmittedAt.Equal(fixed) {
		t.Fatalf("SubmittedAt = %v", got.SubmittedAt)
	}
}

func TestSubmit_RejectsBadInput(t *testing.T) {
	q := &mockQueue{enqueueFn: func(context.Context, domain.Job) error {
		t.Fatal("enqueue must not be reached")
		return nil
	}}
	svc := New(q, &mockCorpus{}, &mockProvisioner{}, zap.NewNop())

	if err := svc.Submit(context.Background(), "bad:tenant", "c1", domain.OpUpdate); !errors.Is(err, domain.ErrInvalidTenant) {
		t.Fatalf("err = %v, want ErrInvalidTenant", err)
	}
	if err := svc.Submit(context.Background(), "acme", "", domain.OpUpdate); !errors.Is(err, domain.ErrInvalidJob) {
		t.Fatalf("err = %v, want ErrInvalidJob", err)
	}
	if err := svc.Submit(context.Background(), "acme", "c1", "compact"); !errors.Is(err, domain.ErrInvalidJob) {
		t.Fatalf("err = %v, want ErrInvalidJob", err)
	}
}

func TestReindex_EnqueuesJobPerAggregate(t *testing.T) {
	var jobs []domain.Job
	q := &mockQueue{enqueueFn: func(_ context.Context, job domain.Job) error {
		jobs = append(jobs, job)
		return nil
	}}
	corpus := &mockCorpus{listFn: func(_ context.Context, tenantID string) ([]string, error) {
		if tenantID != "acme" {
			t.Fatalf("tenant = %q", tenantID)
		}
		return []string{"c1", "c2", "c3"}, nil
	}}
	var ensured []string
	prov := &mockProvisioner{ensureFn: func(_ context.Context, tenantID string, entity domain.EntityType) error {
		ensured = append(ensured, tenantID+"/"+string(entity))
		return nil
	}}

	res, err := New(q, corpus, prov, zap.NewNop()).Reindex(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if res.Enqueued != 3 || res.TenantID != "acme" {
		t.Fatalf("result = %+v", res)
	}
	if len(ensured) != 1 || ensured[0] != "acme/case" {
		t.Fatalf("ensured = %v", ensured)
	}
	if len(jobs) != 3 {
		t.Fatalf("jobs = %d", len(jobs))
	}
	for i, id := range []string{"c1", "c2", "c3"} {
		if jobs[i].EntityID != id || jobs[i].Operation != domain.OpReindex {
			t.Fatalf("jobs[%d] = %+v", i, jobs[i])
		}
	}
}

func TestReindex_ProvisionFailureAborts(t *testing.T) {
	q := &mockQueue{enqueueFn: func(context.Context, domain.Job) error {
		t.Fatal("enqueue must not be reached")
		return nil
	}}
	prov := &mockProvisioner{ensureFn: func(context.Context, string, domain.EntityType) error {
		return errors.New("engine down")
	}}

	_, err := New(q, &mockCorpus{}, prov, zap.NewNop()).Reindex(context.Background(), "acme")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestReindex_PartialEnqueueReportsProgress(t *testing.T) {
	calls := 0
	q := &mockQueue{enqueueFn: func(context.Context, domain.Job) error {
		calls++
		if calls == 2 {
			return errors.New("stream full")
		}
		return nil
	}}
	corpus := &mockCorpus{listFn: func(context.Context, string) ([]string, error) {
		return []string{"c1", "c2", "c3"}, nil
	}}

	res, err := New(q, corpus, &mockProvisioner{}, zap.NewNop()).Reindex(context.Background(), "acme")
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Enqueued != 1 {
		t.Fatalf("enqueued = %d, want 1", res.Enqueued)
	}
}
