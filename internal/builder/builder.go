// Package builder assembles composite case documents from fresh relational
// state. It is the single implementation of document construction: the
// incremental worker and the reindex/backfill driver both go through it.
package builder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
	"github.com/nick-gallo-ethico/caseindex/internal/relstore"
)

// Builder denormalizes one case aggregate into one composite document.
type Builder struct {
	store  relstore.Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a denormalization builder.
func New(store relstore.Store, logger *zap.Logger) *Builder {
	return &Builder{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the indexing timestamp source (test-only).
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build loads the aggregate and all directly relevant associations and
// produces a self-contained composite document. Returns
// domain.ErrAggregateNotFound when the case is gone: the caller must issue a
// delete, not an upsert. A failed lookup of a single related entity degrades
// that entry (identifier kept, display fields empty) and never aborts the
// whole document.
func (b *Builder) Build(ctx context.Context, tenantID, caseID string) (*domain.CaseDocument, error) {
	c, err := b.store.GetCase(ctx, tenantID, caseID)
	if err != nil {
		return nil, err
	}

	doc := &domain.CaseDocument{
		ID:              c.ID,
		TenantID:        c.TenantID,
		ReferenceNumber: c.ReferenceNumber,
		Status:          c.Status,
		Category:        c.Category,
		CaseType:        c.CaseType,
		Severity:        c.Severity,
		Summary:         c.Summary,
		Details:         c.Details,
		OccurredAt:      unixMillis(c.OccurredAt),
		CreatedAt:       unixMillis(c.CreatedAt),
		UpdatedAt:       unixMillis(c.UpdatedAt),
		IndexedAt:       b.now().UnixMilli(),
		SchemaVersion:   domain.SchemaVersion,
	}

	persons, err := b.buildPersonEntries(ctx, tenantID, caseID)
	if err != nil {
		return nil, err
	}
	doc.Persons = persons

	records, err := b.buildRecordEntries(ctx, tenantID, caseID)
	if err != nil {
		return nil, err
	}
	doc.Records = records

	links, err := b.buildCaseLinkEntries(ctx, tenantID, caseID)
	if err != nil {
		return nil, err
	}
	doc.RelatedCases = links

	doc.DeriveProjections()
	return doc, nil
}

func (b *Builder) buildPersonEntries(ctx context.Context, tenantID, caseID string) ([]domain.PersonEntry, error) {
	assocs, err := b.store.ListPersonAssociations(ctx, tenantID, caseID)
	if err != nil {
		return nil, fmt.Errorf("load person associations: %w", err)
	}

	entries := make([]domain.PersonEntry, 0, len(assocs))
	for _, a := range assocs {
		entry := domain.PersonEntry{
			PersonID: a.PersonID,
			Label:    a.Label,
			Status:   a.Status,
			Active:   a.Active(),
			AddedAt:  unixMillis(a.CreatedAt),
		}

		ref, err := b.store.GetPersonRef(ctx, tenantID, a.PersonID)
		switch {
		case err != nil:
			// Partial-document policy: keep the identifier, drop the display
			// fields, move on.
			b.logger.Warn("person lookup failed during denormalization",
				zap.String("tenant_id", tenantID),
				zap.String("case_id", caseID),
				zap.String("person_id", a.PersonID),
				zap.Error(err),
			)
		case ref.Found:
			entry.DisplayName = ref.DisplayName
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func (b *Builder) buildRecordEntries(ctx context.Context, tenantID, caseID string) ([]domain.RecordEntry, error) {
	assocs, err := b.store.ListRecordAssociations(ctx, tenantID, caseID)
	if err != nil {
		return nil, fmt.Errorf("load record associations: %w", err)
	}

	entries := make([]domain.RecordEntry, 0, len(assocs))
	for _, a := range assocs {
		entry := domain.RecordEntry{
			RecordID: a.RecordID,
			Label:    a.Label,
			Status:   a.Status,
			AddedAt:  unixMillis(a.CreatedAt),
		}

		ref, err := b.store.GetRecordRef(ctx, tenantID, a.RecordID)
		switch {
		case err != nil:
			b.logger.Warn("record lookup failed during denormalization",
				zap.String("tenant_id", tenantID),
				zap.String("case_id", caseID),
				zap.String("record_id", a.RecordID),
				zap.Error(err),
			)
		case ref.Found:
			entry.ReferenceNumber = ref.ReferenceNumber
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func (b *Builder) buildCaseLinkEntries(ctx context.Context, tenantID, caseID string) ([]domain.CaseLinkEntry, error) {
	links, err := b.store.ListCaseLinks(ctx, tenantID, caseID)
	if err != nil {
		return nil, fmt.Errorf("load case links: %w", err)
	}

	entries := make([]domain.CaseLinkEntry, 0, len(links))
	for _, l := range links {
		otherID := l.TargetID
		direction := "out"
		if l.TargetID == caseID {
			otherID = l.SourceID
			direction = "in"
		}

		entry := domain.CaseLinkEntry{
			CaseID:    otherID,
			Label:     l.Label,
			Status:    l.Status,
			Direction: direction,
			AddedAt:   unixMillis(l.CreatedAt),
		}

		ref, err := b.store.GetCaseRef(ctx, tenantID, otherID)
		switch {
		case err != nil:
			b.logger.Warn("linked case lookup failed during denormalization",
				zap.String("tenant_id", tenantID),
				zap.String("case_id", caseID),
				zap.String("linked_case_id", otherID),
				zap.Error(err),
			)
		case ref.Found:
			entry.ReferenceNumber = ref.ReferenceNumber
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
