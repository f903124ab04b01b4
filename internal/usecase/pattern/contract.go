package pattern

import (
	"context"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
	"github.com/nick-gallo-ethico/caseindex/internal/repository/search"
)

// Engine defines the query contract against the composite indexes.
type Engine interface {
	FindJoint(ctx context.Context, tenantID string, conds []search.PersonCondition, includeEnded bool, page search.Page) (*search.Result, error)
	FindLinked(ctx context.Context, tenantID, personID string, page search.Page) (*search.Result, error)
	FindByLabel(ctx context.Context, tenantID, personID string, label domain.PersonLabel, page search.Page) (*search.Result, error)
	FindRelated(ctx context.Context, tenantID, caseID string, page search.Page) (*search.Result, error)
	RollupForPerson(ctx context.Context, tenantID, personID string, includeEnded bool) ([]search.LabelCount, error)
	RollupStatusForPerson(ctx context.Context, tenantID, personID string) ([]search.LabelStatusCount, error)
	Threshold(ctx context.Context, tenantID string, label domain.PersonLabel, minCount int, includeEnded bool) ([]search.PersonCount, error)
	CountLinked(ctx context.Context, tenantID, personID string) (int, error)
}

// HistoryCounter answers count queries straight from the relational store.
type HistoryCounter interface {
	CountCasesForPerson(ctx context.Context, tenantID, personID string) (int, error)
}
