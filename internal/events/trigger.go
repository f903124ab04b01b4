// Package events adapts association change events into indexing jobs.
package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

// Submitter enqueues one indexing job.
type Submitter interface {
	Submit(ctx context.Context, tenantID, entityID string, op domain.Operation) error
}

// Trigger fans association change events out into one update job per touched
// case. Events are the signal, never the data: each job makes the worker
// reload full relational state, so event ordering and duplication do not
// matter.
type Trigger struct {
	submitter Submitter
	logger    *zap.Logger
}

// NewTrigger creates the event adapter.
func NewTrigger(submitter Submitter, logger *zap.Logger) *Trigger {
	return &Trigger{submitter: submitter, logger: logger}
}

// Handle enqueues an update for every case the event names. A case↔case link
// event carries both ends, so both documents are refreshed. Submission stops
// at the first enqueue failure; redelivering the event repeats already
// enqueued updates harmlessly.
func (t *Trigger) Handle(ctx context.Context, ev domain.ChangeEvent) error {
	if ev.TenantID == "" {
		return fmt.Errorf("%w: event without tenant", domain.ErrInvalidJob)
	}
	if len(ev.CaseIDs) == 0 {
		return fmt.Errorf("%w: event %s names no cases", domain.ErrInvalidJob, ev.Topic())
	}

	for _, caseID := range ev.CaseIDs {
		if err := t.submitter.Submit(ctx, ev.TenantID, caseID, domain.OpUpdate); err != nil {
			return fmt.Errorf("submit update for %s: %w", caseID, err)
		}
	}

	t.logger.Debug("change event enqueued",
		zap.String("tenant_id", ev.TenantID),
		zap.String("topic", ev.Topic()),
		zap.Int("cases", len(ev.CaseIDs)),
	)
	return nil
}
