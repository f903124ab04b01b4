// Package indexing owns the write side of the pipeline: job submission,
// tenant provisioning and reindex runs.
package indexing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
	"github.com/nick-gallo-ethico/caseindex/internal/metrics"
	"github.com/nick-gallo-ethico/caseindex/internal/repository/index"
)

// Service handles indexing job submission and reindex orchestration.
type Service struct {
	queue  Enqueuer
	corpus CorpusLister
	prov   Provisioner
	logger *zap.Logger
	now    func() time.Time
}

// New creates an indexing service.
func New(queue Enqueuer, corpus CorpusLister, prov Provisioner, logger *zap.Logger) *Service {
	return &Service{queue: queue, corpus: corpus, prov: prov, logger: logger, now: time.Now}
}

// Submit validates and enqueues one indexing job. SubmittedAt is stamped here
// so staleness is measured from the moment the change was accepted.
func (s *Service) Submit(ctx context.Context, tenantID string, entityID string, op domain.Operation) error {
	if err := index.ValidateTenant(tenantID); err != nil {
		return err
	}
	job := domain.Job{
		TenantID:    tenantID,
		EntityType:  domain.EntityCase,
		EntityID:    entityID,
		Operation:   op,
		SubmittedAt: s.now(),
	}
	if err := job.Validate(); err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// ReindexResult summarizes one reindex run.
type ReindexResult struct {
	TenantID string `json:"tenantId"`
	Enqueued int    `json:"enqueued"`
}

// Reindex provisions the tenant's current-version index and enqueues one
// reindex job per aggregate. The run only enumerates and enqueues; the worker
// pool does the writes, so a large tenant reindexes at the same bounded rate
// as live traffic.
func (s *Service) Reindex(ctx context.Context, tenantID string) (ReindexResult, error) {
	if err := index.ValidateTenant(tenantID); err != nil {
		return ReindexResult{}, err
	}
	if err := s.prov.Ensure(ctx, tenantID, domain.EntityCase); err != nil {
		return ReindexResult{}, fmt.Errorf("ensure index: %w", err)
	}

	ids, err := s.corpus.ListCaseIDs(ctx, tenantID)
	if err != nil {
		return ReindexResult{}, fmt.Errorf("list cases: %w", err)
	}

	res := ReindexResult{TenantID: tenantID}
	submitted := s.now()
	for _, id := range ids {
		job := domain.Job{
			TenantID:    tenantID,
			EntityType:  domain.EntityCase,
			EntityID:    id,
			Operation:   domain.OpReindex,
			SubmittedAt: submitted,
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			// Partial runs are safe to repeat: reindex jobs are idempotent.
			return res, fmt.Errorf("enqueue reindex job for %s: %w", id, err)
		}
		res.Enqueued++
		metrics.ReindexEnqueuedTotal.Inc()
	}

	s.logger.Info("reindex run enqueued",
		zap.String("tenant_id", tenantID),
		zap.Int("jobs", res.Enqueued),
	)
	return res, nil
}

// QueueDepth reports pending jobs on the indexing queue.
func (s *Service) QueueDepth(ctx context.Context) (int64, error) {
	n, err := s.queue.Depth(ctx)
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}

// EnsureTenant provisions the tenant's index ahead of first use.
func (s *Service) EnsureTenant(ctx context.Context, tenantID string) error {
	if err := index.ValidateTenant(tenantID); err != nil {
		return err
	}
	if err := s.prov.Ensure(ctx, tenantID, domain.EntityCase); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}
