// Package relstore is the read-only client of the authoritative relational
// store. The indexing subsystem never writes here; it consumes this API to
// rebuild composite documents from fresh state.
package relstore

import (
	"context"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

// CaseReader loads a case aggregate's own scalar fields.
type CaseReader interface {
	// GetCase returns domain.ErrAggregateNotFound when the case no longer
	// exists; callers convert the pending upsert into a delete.
	GetCase(ctx context.Context, tenantID, caseID string) (domain.Case, error)
}

// AssociationReader loads every association touching a case. Ended
// associations are included; active/ended filtering is the builder's policy.
type AssociationReader interface {
	ListPersonAssociations(ctx context.Context, tenantID, caseID string) ([]domain.PersonAssociation, error)
	ListRecordAssociations(ctx context.Context, tenantID, caseID string) ([]domain.RecordAssociation, error)
	// ListCaseLinks returns links where the case is either end.
	ListCaseLinks(ctx context.Context, tenantID, caseID string) ([]domain.CaseLink, error)
}

// RefReader resolves minimal display fields for related entities. A missing
// entity is not an error: the ref comes back with Found=false and empty
// display fields so the builder can degrade that entry instead of failing.
type RefReader interface {
	GetPersonRef(ctx context.Context, tenantID, personID string) (domain.PersonRef, error)
	GetRecordRef(ctx context.Context, tenantID, recordID string) (domain.RecordRef, error)
	GetCaseRef(ctx context.Context, tenantID, caseID string) (domain.CaseRef, error)
}

// CorpusLister enumerates a tenant's aggregates for reindex/backfill.
type CorpusLister interface {
	ListCaseIDs(ctx context.Context, tenantID string) ([]string, error)
}

// HistoryCounter answers simple count queries directly against the
// relational store. No index round trip: a plain count never needs one.
type HistoryCounter interface {
	CountCasesForPerson(ctx context.Context, tenantID, personID string) (int, error)
}

// Store is the full relational read API.
type Store interface {
	CaseReader
	AssociationReader
	RefReader
	CorpusLister
	HistoryCounter
}
