package relstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

// Compile-time check: Memory implements Store.
var _ Store = (*Memory)(nil)

// Memory is an in-memory relational store. It backs unit tests and local
// development; mutation helpers double as the fixture API.
type Memory struct {
	mu sync.RWMutex

	cases        map[string]domain.Case                // key: tenant/case
	persons      map[string]string                     // key: tenant/person -> display name
	records      map[string]string                     // key: tenant/record -> reference number
	personAssocs map[string][]domain.PersonAssociation // key: tenant/case
	recordAssocs map[string][]domain.RecordAssociation // key: tenant/case
	caseLinks    []domain.CaseLink
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		cases:        make(map[string]domain.Case),
		persons:      make(map[string]string),
		records:      make(map[string]string),
		personAssocs: make(map[string][]domain.PersonAssociation),
		recordAssocs: make(map[string][]domain.RecordAssociation),
	}
}

func key(tenantID, id string) string { return tenantID + "/" + id }

// --- mutation helpers (fixture API) ---

// PutCase inserts or replaces a case.
func (m *Memory) PutCase(c domain.Case) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases[key(c.TenantID, c.ID)] = c
}

// DeleteCase removes a case and its associations.
func (m *Memory) DeleteCase(tenantID, caseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(tenantID, caseID)
	delete(m.cases, k)
	delete(m.personAssocs, k)
	delete(m.recordAssocs, k)
}

// PutPerson registers a person's display name.
func (m *Memory) PutPerson(tenantID, personID, displayName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons[key(tenantID, personID)] = displayName
}

// DeletePerson removes a person. Associations that still reference the
// person are left dangling for the builder to degrade over.
func (m *Memory) DeletePerson(tenantID, personID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.persons, key(tenantID, personID))
}

// PutRecord registers an intake record's reference number.
func (m *Memory) PutRecord(tenantID, recordID, referenceNumber string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key(tenantID, recordID)] = referenceNumber
}

// AddPersonAssociation appends a person↔case association.
func (m *Memory) AddPersonAssociation(a domain.PersonAssociation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(a.TenantID, a.CaseID)
	m.personAssocs[k] = append(m.personAssocs[k], a)
}

// EndPersonAssociation marks an association ended at the given time.
func (m *Memory) EndPersonAssociation(tenantID, caseID, assocID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(tenantID, caseID)
	for i := range m.personAssocs[k] {
		if m.personAssocs[k][i].ID == assocID {
			m.personAssocs[k][i].Status = domain.StatusEnded
			m.personAssocs[k][i].EndedAt = &at
		}
	}
}

// AddRecordAssociation appends a record↔case association.
func (m *Memory) AddRecordAssociation(a domain.RecordAssociation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(a.TenantID, a.CaseID)
	m.recordAssocs[k] = append(m.recordAssocs[k], a)
}

// AddCaseLink appends a directional case↔case link.
func (m *Memory) AddCaseLink(l domain.CaseLink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caseLinks = append(m.caseLinks, l)
}

// --- Store implementation ---

func (m *Memory) GetCase(_ context.Context, tenantID, caseID string) (domain.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[key(tenantID, caseID)]
	if !ok {
		return domain.Case{}, domain.ErrAggregateNotFound
	}
	return c, nil
}

func (m *Memory) ListPersonAssociations(_ context.Context, tenantID, caseID string) ([]domain.PersonAssociation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	assocs := m.personAssocs[key(tenantID, caseID)]
	out := make([]domain.PersonAssociation, len(assocs))
	copy(out, assocs)
	return out, nil
}

func (m *Memory) ListRecordAssociations(_ context.Context, tenantID, caseID string) ([]domain.RecordAssociation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	assocs := m.recordAssocs[key(tenantID, caseID)]
	out := make([]domain.RecordAssociation, len(assocs))
	copy(out, assocs)
	return out, nil
}

func (m *Memory) ListCaseLinks(_ context.Context, tenantID, caseID string) ([]domain.CaseLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CaseLink
	for _, l := range m.caseLinks {
		if l.TenantID != tenantID {
			continue
		}
		if l.SourceID == caseID || l.TargetID == caseID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Memory) GetPersonRef(_ context.Context, tenantID, personID string) (domain.PersonRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.persons[key(tenantID, personID)]
	if !ok {
		return domain.PersonRef{ID: personID}, nil
	}
	return domain.PersonRef{ID: personID, DisplayName: name, Found: true}, nil
}

func (m *Memory) GetRecordRef(_ context.Context, tenantID, recordID string) (domain.RecordRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.records[key(tenantID, recordID)]
	if !ok {
		return domain.RecordRef{ID: recordID}, nil
	}
	return domain.RecordRef{ID: recordID, ReferenceNumber: ref, Found: true}, nil
}

func (m *Memory) GetCaseRef(_ context.Context, tenantID, caseID string) (domain.CaseRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[key(tenantID, caseID)]
	if !ok {
		return domain.CaseRef{ID: caseID}, nil
	}
	return domain.CaseRef{ID: caseID, ReferenceNumber: c.ReferenceNumber, Found: true}, nil
}

func (m *Memory) ListCaseIDs(_ context.Context, tenantID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, c := range m.cases {
		if c.TenantID == tenantID {
			ids = append(ids, c.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) CountCasesForPerson(_ context.Context, tenantID, personID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, assocs := range m.personAssocs {
		for _, a := range assocs {
			if a.TenantID == tenantID && a.PersonID == personID {
				n++
				break
			}
		}
	}
	return n, nil
}
