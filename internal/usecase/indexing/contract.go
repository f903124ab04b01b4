package indexing

import (
	"context"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

// Enqueuer submits jobs to the indexing queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job domain.Job) error
	Depth(ctx context.Context) (int64, error)
}

// CorpusLister enumerates a tenant's aggregates for reindex runs.
type CorpusLister interface {
	ListCaseIDs(ctx context.Context, tenantID string) ([]string, error)
}

// Provisioner manages tenant index lifecycle.
type Provisioner interface {
	Ensure(ctx context.Context, tenantID string, entity domain.EntityType) error
	Exists(ctx context.Context, tenantID string, entity domain.EntityType) (bool, error)
}
