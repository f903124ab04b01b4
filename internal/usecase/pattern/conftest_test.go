package pattern

import (
	"context"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
	"github.com/nick-gallo-ethico/caseindex/internal/repository/search"
)

type mockEngine struct {
	findJointFn    func(ctx context.Context, tenantID string, conds []search.PersonCondition, includeEnded bool, page search.Page) (*search.Result, error)
	findLinkedFn   func(ctx context.Context, tenantID, personID string, page search.Page) (*search.Result, error)
	findByLabelFn  func(ctx context.Context, tenantID, personID string, label domain.PersonLabel, page search.Page) (*search.Result, error)
	findRelatedFn  func(ctx context.Context, tenantID, caseID string, page search.Page) (*search.Result, error)
	rollupFn       func(ctx context.Context, tenantID, personID string, includeEnded bool) ([]search.LabelCount, error)
	statusRollupFn func(ctx context.Context, tenantID, personID string) ([]search.LabelStatusCount, error)
	thresholdFn    func(ctx context.Context, tenantID string, label domain.PersonLabel, minCount int, includeEnded bool) ([]search.PersonCount, error)
	countLinkedFn  func(ctx context.Context, tenantID, personID string) (int, error)
}

func (m *mockEngine) FindJoint(ctx context.Context, tenantID string, conds []search.PersonCondition, includeEnded bool, page search.Page) (*search.Result, error) {
	return m.findJointFn(ctx, tenantID, conds, includeEnded, page)
}

func (m *mockEngine) FindLinked(ctx context.Context, tenantID, personID string, page search.Page) (*search.Result, error) {
	return m.findLinkedFn(ctx, tenantID, personID, page)
}

func (m *mockEngine) FindByLabel(ctx context.Context, tenantID, personID string, label domain.PersonLabel, page search.Page) (*search.Result, error) {
	return m.findByLabelFn(ctx, tenantID, personID, label, page)
}

func (m *mockEngine) FindRelated(ctx context.Context, tenantID, caseID string, page search.Page) (*search.Result, error) {
	return m.findRelatedFn(ctx, tenantID, caseID, page)
}

func (m *mockEngine) RollupForPerson(ctx context.Context, tenantID, personID string, includeEnded bool) ([]search.LabelCount, error) {
	return m.rollupFn(ctx, tenantID, personID, includeEnded)
}

func (m *mockEngine) RollupStatusForPerson(ctx context.Context, tenantID, personID string) ([]search.LabelStatusCount, error) {
	return m.statusRollupFn(ctx, tenantID, personID)
}

func (m *mockEngine) Threshold(ctx context.Context, tenantID string, label domain.PersonLabel, minCount int, includeEnded bool) ([]search.PersonCount, error) {
	return m.thresholdFn(ctx, tenantID, label, minCount, includeEnded)
}

func (m *mockEngine) CountLinked(ctx context.Context, tenantID, personID string) (int, error) {
	return m.countLinkedFn(ctx, tenantID, personID)
}

type mockHistory struct {
	countFn func(ctx context.Context, tenantID, personID string) (int, error)
}

func (m *mockHistory) CountCasesForPerson(ctx context.Context, tenantID, personID string) (int, error) {
	return m.countFn(ctx, tenantID, personID)
}

// docEngine evaluates joint conditions against in-memory composite documents
// using the same entry-scoped key semantics the index applies, so tests can
// exercise nested-versus-flat correctness without an engine.
type docEngine struct {
	mockEngine
	docs []*domain.CaseDocument
}

func (e *docEngine) FindJoint(_ context.Context, _ string, conds []search.PersonCondition, includeEnded bool, _ search.Page) (*search.Result, error) {
	res := &search.Result{}
	for _, d := range e.docs {
		keys := d.ActivePersonKeys
		if includeEnded {
			keys = d.PersonKeys
		}
		if matchesAll(keys, conds) {
			res.Hits = append(res.Hits, search.CaseHit{CaseID: d.ID, ReferenceNumber: d.ReferenceNumber, Status: d.Status})
		}
	}
	res.Total = len(res.Hits)
	return res, nil
}

func matchesAll(keys []string, conds []search.PersonCondition) bool {
	for _, c := range conds {
		want := domain.PersonKey(c.PersonID, c.Label)
		found := false
		for _, k := range keys {
			if k == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
