package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nick-gallo-ethico/caseindex/internal/db"
	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

// jsonStore is the consumer interface for document persistence (ISP).
type jsonStore interface {
	JSONSet(ctx context.Context, key string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) (bool, error)
}

// Documents persists composite case documents. Every write is a wholesale
// replace: documents are never partially merged.
type Documents struct {
	store jsonStore
}

// NewDocuments creates a composite-document repository.
func NewDocuments(s jsonStore) *Documents {
	return &Documents{store: s}
}

// Upsert writes a composite document under its aggregate's key.
func (d *Documents) Upsert(ctx context.Context, doc *domain.CaseDocument) error {
	if doc.ID == "" || doc.TenantID == "" {
		return fmt.Errorf("composite document requires id and tenant id")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}

	key := DocKey(doc.TenantID, domain.EntityCase, doc.ID)
	if err := d.store.JSONSet(ctx, key, data); err != nil {
		return fmt.Errorf("upsert document %s: %w", key, err)
	}
	return nil
}

// UpsertMany writes a batch of composite documents in one round trip. Used by
// reindex/backfill; the documents go through the same marshaling as single
// upserts.
func (d *Documents) UpsertMany(ctx context.Context, docs []*domain.CaseDocument) error {
	if len(docs) == 0 {
		return nil
	}

	items := make([]db.JSONSetItem, 0, len(docs))
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal document %s: %w", doc.ID, err)
		}
		items = append(items, db.JSONSetItem{
			Key:  DocKey(doc.TenantID, domain.EntityCase, doc.ID),
			Data: data,
		})
	}

	if err := d.store.JSONSetMulti(ctx, items); err != nil {
		return fmt.Errorf("bulk upsert %d documents: %w", len(items), err)
	}
	return nil
}

// Delete removes an aggregate's composite document. Deleting an absent
// document is success: the desired end state is already in place.
func (d *Documents) Delete(ctx context.Context, tenantID, caseID string) error {
	key := DocKey(tenantID, domain.EntityCase, caseID)
	if _, err := d.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete document %s: %w", key, err)
	}
	return nil
}

// Get loads a composite document by aggregate id.
func (d *Documents) Get(ctx context.Context, tenantID, caseID string) (*domain.CaseDocument, error) {
	key := DocKey(tenantID, domain.EntityCase, caseID)
	raw, err := d.store.JSONGet(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document %s: %w", key, err)
	}

	// JSON.GET with a root path returns a single-element array.
	var docs []domain.CaseDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		var doc domain.CaseDocument
		if err2 := json.Unmarshal(raw, &doc); err2 != nil {
			return nil, fmt.Errorf("unmarshal document %s: %w", key, err)
		}
		return &doc, nil
	}
	if len(docs) == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	return &docs[0], nil
}
