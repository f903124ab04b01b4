package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nick-gallo-ethico/caseindex/internal/db"
	"github.com/nick-gallo-ethico/caseindex/internal/domain"
	"github.com/nick-gallo-ethico/caseindex/internal/repository/index"
)

// engine is the slice of the search facade this repository consumes.
type engine interface {
	db.Searcher
	db.Aggregator
}

const (
	// defaultLimit bounds unpaged queries when no limit is configured.
	defaultLimit = 50
	// maxLimit caps caller-supplied page sizes when no cap is configured.
	maxLimit = 500
	// aggregateLimit bounds rows fetched per aggregation. Composite keys per
	// tenant stay far below this in practice.
	aggregateLimit = 10000
)

// Limits bounds result pages. Zero values fall back to the package defaults.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (l Limits) withDefaults() Limits {
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = defaultLimit
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = maxLimit
	}
	if l.DefaultPageSize > l.MaxPageSize {
		l.DefaultPageSize = l.MaxPageSize
	}
	return l
}

// hitReturnFields are the document aliases projected back with every hit.
var hitReturnFields = []string{"referenceNumber", "status", "severity"}

// Page bounds a result window.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) normalize(l Limits) Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = l.DefaultPageSize
	}
	if p.Limit > l.MaxPageSize {
		p.Limit = l.MaxPageSize
	}
	return p
}

// CaseHit is one matching case.
type CaseHit struct {
	CaseID          string
	ReferenceNumber string
	Status          string
	Severity        string
}

// Result is a result window plus the total match count.
type Result struct {
	Total int
	Hits  []CaseHit
}

// LabelCount is one label's rollup row for a person.
type LabelCount struct {
	Label domain.PersonLabel
	Count int
}

// LabelStatusCount is one label+status rollup row for a person.
type LabelStatusCount struct {
	Label  domain.PersonLabel
	Status string
	Count  int
}

// PersonCount is one person's row in a threshold scan.
type PersonCount struct {
	PersonID string
	Count    int
}

// Repository executes pattern queries against one tenant index per call.
type Repository struct {
	engine engine
	limits Limits
}

// NewRepository creates the query repository with the given page bounds.
func NewRepository(e engine, limits Limits) *Repository {
	return &Repository{engine: e, limits: limits.withDefaults()}
}

// FindJoint returns cases satisfying every person+label condition at once,
// entry-scoped. An empty condition list is rejected.
func (r *Repository) FindJoint(ctx context.Context, tenantID string, conds []PersonCondition, includeEnded bool, page Page) (*Result, error) {
	if len(conds) == 0 {
		return nil, fmt.Errorf("joint query needs at least one condition")
	}
	for _, c := range conds {
		if !domain.ValidPersonLabel(c.Label) {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownLabel, c.Label)
		}
	}
	return r.find(ctx, tenantID, JointQuery(conds, includeEnded), page)
}

// FindLinked returns cases the person appears on in any role (active
// associations only).
func (r *Repository) FindLinked(ctx context.Context, tenantID, personID string, page Page) (*Result, error) {
	return r.find(ctx, tenantID, LinkedQuery(personID), page)
}

// FindByLabel returns cases where the person holds the given role.
func (r *Repository) FindByLabel(ctx context.Context, tenantID, personID string, label domain.PersonLabel, page Page) (*Result, error) {
	if !domain.ValidPersonLabel(label) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownLabel, label)
	}
	return r.find(ctx, tenantID, LabelQuery(personID, label), page)
}

// FindRelated returns cases linked to the given case in either direction.
func (r *Repository) FindRelated(ctx context.Context, tenantID, caseID string, page Page) (*Result, error) {
	return r.find(ctx, tenantID, RelatedQuery(caseID), page)
}

func (r *Repository) find(ctx context.Context, tenantID, query string, page Page) (*Result, error) {
	if err := index.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	page = page.normalize(r.limits)
	idx := index.Name(tenantID, domain.EntityCase)

	res, err := r.engine.Search(ctx, idx, query, page.Offset, page.Limit, hitReturnFields)
	if err != nil {
		return nil, err
	}

	out := &Result{Total: res.Total, Hits: make([]CaseHit, 0, len(res.Entries))}
	prefix := index.DocPrefix(tenantID, domain.EntityCase)
	for _, e := range res.Entries {
		out.Hits = append(out.Hits, CaseHit{
			CaseID:          strings.TrimPrefix(e.Key, prefix),
			ReferenceNumber: e.Fields["referenceNumber"],
			Status:          e.Fields["status"],
			Severity:        e.Fields["severity"],
		})
	}
	return out, nil
}

// RollupForPerson returns the person's case count per role. Grouping on the
// composite key field yields one row per distinct person+label pairing across
// the tenant; rows for other persons are filtered out here. includeEnded
// switches the grouping field from active-only keys to the full history.
func (r *Repository) RollupForPerson(ctx context.Context, tenantID, personID string, includeEnded bool) ([]LabelCount, error) {
	if err := index.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	field := "activePersonKey"
	query := LinkedQuery(personID)
	if includeEnded {
		field = "personKey"
		// The flat person-id array is active-only, so a history rollup has to
		// scan every document.
		query = AllQuery()
	}
	idx := index.Name(tenantID, domain.EntityCase)

	rows, err := r.engine.AggregateCount(ctx, idx, query, field, aggregateLimit)
	if err != nil {
		return nil, err
	}

	prefix := keyPrefix(personID)
	out := make([]LabelCount, 0, len(domain.PersonLabels))
	for _, row := range rows {
		if !strings.HasPrefix(row.Key, prefix) {
			continue
		}
		label, err := splitKeyLabel(row.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, LabelCount{Label: label, Count: row.Count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// RollupStatusForPerson partitions the person's rollup by association status.
// Status keys are derived from every nested entry, ended ones included, so the
// partition always covers the full history.
func (r *Repository) RollupStatusForPerson(ctx context.Context, tenantID, personID string) ([]LabelStatusCount, error) {
	if err := index.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	idx := index.Name(tenantID, domain.EntityCase)

	// The flat person-id array is active-only, so the status partition scans
	// every document, as the history rollup does.
	rows, err := r.engine.AggregateCount(ctx, idx, AllQuery(), "personStatusKey", aggregateLimit)
	if err != nil {
		return nil, err
	}

	prefix := keyPrefix(personID)
	var out []LabelStatusCount
	for _, row := range rows {
		if !strings.HasPrefix(row.Key, prefix) {
			continue
		}
		label, status, err := splitKeyLabelStatus(row.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, LabelStatusCount{Label: label, Status: status, Count: row.Count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

// Threshold returns every person appearing as the given role on at least
// minCount cases, most frequent first.
func (r *Repository) Threshold(ctx context.Context, tenantID string, label domain.PersonLabel, minCount int, includeEnded bool) ([]PersonCount, error) {
	if err := index.ValidateTenant(tenantID); err != nil {
		return nil, err
	}
	if !domain.ValidPersonLabel(label) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownLabel, label)
	}
	if minCount < 1 {
		minCount = 1
	}
	field := "activePersonKey"
	if includeEnded {
		field = "personKey"
	}
	idx := index.Name(tenantID, domain.EntityCase)

	rows, err := r.engine.AggregateCount(ctx, idx, AllQuery(), field, aggregateLimit)
	if err != nil {
		return nil, err
	}

	suffix := keySuffix(label)
	var out []PersonCount
	for _, row := range rows {
		if !strings.HasSuffix(row.Key, suffix) || row.Count < minCount {
			continue
		}
		out = append(out, PersonCount{
			PersonID: strings.TrimSuffix(row.Key, suffix),
			Count:    row.Count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].PersonID < out[j].PersonID
	})
	return out, nil
}

// CountLinked returns how many indexed cases the person appears on (active
// associations only).
func (r *Repository) CountLinked(ctx context.Context, tenantID, personID string) (int, error) {
	if err := index.ValidateTenant(tenantID); err != nil {
		return 0, err
	}
	idx := index.Name(tenantID, domain.EntityCase)
	return r.engine.SearchCount(ctx, idx, LinkedQuery(personID))
}
