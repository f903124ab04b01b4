// Package pattern is the read side: co-occurrence, rollup and history queries
// over the composite indexes.
package pattern

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
	"github.com/nick-gallo-ethico/caseindex/internal/repository/search"
)

// Service executes pattern queries. Validation errors propagate to the
// caller; engine availability errors degrade to empty results so a search
// outage reads as "nothing found" rather than a hard failure.
type Service struct {
	engine  Engine
	history HistoryCounter
	logger  *zap.Logger
}

// New creates a pattern query service.
func New(engine Engine, history HistoryCounter, logger *zap.Logger) *Service {
	return &Service{engine: engine, history: history, logger: logger}
}

// degradable reports whether an error is an engine-side failure the read path
// absorbs. Caller mistakes are never degradable.
func degradable(err error) bool {
	return !errors.Is(err, domain.ErrInvalidTenant) &&
		!errors.Is(err, domain.ErrUnknownLabel) &&
		!errors.Is(err, domain.ErrInvalidJob)
}

// Joint returns cases where every person+label condition holds at once.
func (s *Service) Joint(ctx context.Context, tenantID string, conds []search.PersonCondition, includeEnded bool, page search.Page) (*search.Result, error) {
	if len(conds) == 0 {
		return nil, fmt.Errorf("%w: no conditions", domain.ErrInvalidJob)
	}
	res, err := s.engine.FindJoint(ctx, tenantID, conds, includeEnded, page)
	if err != nil {
		if !degradable(err) {
			return nil, err
		}
		s.logger.Error("joint query failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return &search.Result{}, nil
	}
	return res, nil
}

// Linked returns cases the person appears on in any role.
func (s *Service) Linked(ctx context.Context, tenantID, personID string, page search.Page) (*search.Result, error) {
	res, err := s.engine.FindLinked(ctx, tenantID, personID, page)
	if err != nil {
		if !degradable(err) {
			return nil, err
		}
		s.logger.Error("linked query failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return &search.Result{}, nil
	}
	return res, nil
}

// ByLabel returns cases where the person holds one specific role.
func (s *Service) ByLabel(ctx context.Context, tenantID, personID string, label domain.PersonLabel, page search.Page) (*search.Result, error) {
	res, err := s.engine.FindByLabel(ctx, tenantID, personID, label, page)
	if err != nil {
		if !degradable(err) {
			return nil, err
		}
		s.logger.Error("label query failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return &search.Result{}, nil
	}
	return res, nil
}

// Related returns cases linked to the given case in either direction.
func (s *Service) Related(ctx context.Context, tenantID, caseID string, page search.Page) (*search.Result, error) {
	res, err := s.engine.FindRelated(ctx, tenantID, caseID, page)
	if err != nil {
		if !degradable(err) {
			return nil, err
		}
		s.logger.Error("related query failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return &search.Result{}, nil
	}
	return res, nil
}

// Rollup returns the person's case count per role.
func (s *Service) Rollup(ctx context.Context, tenantID, personID string, includeEnded bool) ([]search.LabelCount, error) {
	rows, err := s.engine.RollupForPerson(ctx, tenantID, personID, includeEnded)
	if err != nil {
		if !degradable(err) {
			return nil, err
		}
		s.logger.Error("rollup query failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return []search.LabelCount{}, nil
	}
	return rows, nil
}

// StatusRollup partitions a person's rollup by association status, full
// history included.
func (s *Service) StatusRollup(ctx context.Context, tenantID, personID string) ([]search.LabelStatusCount, error) {
	rows, err := s.engine.RollupStatusForPerson(ctx, tenantID, personID)
	if err != nil {
		if !degradable(err) {
			return nil, err
		}
		s.logger.Error("status rollup query failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return []search.LabelStatusCount{}, nil
	}
	return rows, nil
}

// Threshold returns persons appearing in the given role on at least minCount
// cases.
func (s *Service) Threshold(ctx context.Context, tenantID string, label domain.PersonLabel, minCount int, includeEnded bool) ([]search.PersonCount, error) {
	rows, err := s.engine.Threshold(ctx, tenantID, label, minCount, includeEnded)
	if err != nil {
		if !degradable(err) {
			return nil, err
		}
		s.logger.Error("threshold query failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return []search.PersonCount{}, nil
	}
	return rows, nil
}

// HistoryCount counts a person's distinct cases from the relational store,
// bypassing the index. Counting never needs the search engine, so this path
// stays up during an index outage.
func (s *Service) HistoryCount(ctx context.Context, tenantID, personID string) (int, error) {
	n, err := s.history.CountCasesForPerson(ctx, tenantID, personID)
	if err != nil {
		return 0, fmt.Errorf("count cases for person: %w", err)
	}
	return n, nil
}
