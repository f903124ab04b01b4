package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/nick-gallo-ethico/caseindex/internal/db"
	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

// indexManager is the consumer interface for provisioning (ISP).
type indexManager interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DropIndex(ctx context.Context, name string) error
}

// Provisioner creates per-tenant indexes with the versioned case mapping.
type Provisioner struct {
	store indexManager
}

// NewProvisioner creates an index provisioner.
func NewProvisioner(s indexManager) *Provisioner {
	return &Provisioner{store: s}
}

// Ensure creates the tenant's index for an entity type if absent. Concurrent
// callers racing to create the same index all succeed: the engine's
// "already exists" answer is treated as done.
func (p *Provisioner) Ensure(ctx context.Context, tenantID string, entity domain.EntityType) error {
	if err := ValidateTenant(tenantID); err != nil {
		return err
	}

	def, err := Definition(tenantID, entity)
	if err != nil {
		return err
	}

	if err := p.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("ensure index %s: %w", def.Name, err)
	}
	return nil
}

// Exists reports whether the tenant's index is provisioned.
func (p *Provisioner) Exists(ctx context.Context, tenantID string, entity domain.EntityType) (bool, error) {
	if err := ValidateTenant(tenantID); err != nil {
		return false, err
	}
	return p.store.IndexExists(ctx, Name(tenantID, entity))
}

// Definition returns the versioned mapping for a tenant's entity index.
// Changing any field here requires bumping domain.SchemaVersion and running a
// tenant reindex into the new index.
func Definition(tenantID string, entity domain.EntityType) (*db.IndexDefinition, error) {
	switch entity {
	case domain.EntityCase:
		return caseDefinition(tenantID), nil
	default:
		return nil, fmt.Errorf("no index schema for entity type %q", entity)
	}
}

func caseDefinition(tenantID string) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:        Name(tenantID, domain.EntityCase),
		StorageType: db.StorageJSON,
		Prefixes:    []string{DocPrefix(tenantID, domain.EntityCase)},
		Fields: []db.IndexField{
			// Identity and classification
			{Name: "$.tenantId", Alias: "tenantId", Type: db.IndexFieldTag},
			{Name: "$.referenceNumber", Alias: "referenceNumber", Type: db.IndexFieldTag},
			{Name: "$.status", Alias: "status", Type: db.IndexFieldTag},
			{Name: "$.category", Alias: "category", Type: db.IndexFieldTag},
			{Name: "$.caseType", Alias: "caseType", Type: db.IndexFieldTag},
			{Name: "$.severity", Alias: "severity", Type: db.IndexFieldTag},

			// Free text
			{Name: "$.summary", Alias: "summary", Type: db.IndexFieldText},
			{Name: "$.details", Alias: "details", Type: db.IndexFieldText},

			// Flattened identifier arrays (cheap non-joint filtering)
			{Name: "$.persons[*].personId", Alias: "personIds", Type: db.IndexFieldTag},
			{Name: "$.subjectIds[*]", Alias: "subjectIds", Type: db.IndexFieldTag},
			{Name: "$.witnessIds[*]", Alias: "witnessIds", Type: db.IndexFieldTag},
			{Name: "$.reporterIds[*]", Alias: "reporterIds", Type: db.IndexFieldTag},
			{Name: "$.investigatorIds[*]", Alias: "investigatorIds", Type: db.IndexFieldTag},
			{Name: "$.records[*].recordId", Alias: "recordIds", Type: db.IndexFieldTag},
			{Name: "$.relatedCaseIds[*]", Alias: "relatedCaseIds", Type: db.IndexFieldTag},
			{Name: "$.assigneeId", Alias: "assigneeId", Type: db.IndexFieldTag},

			// Entry-scoped co-occurrence keys (joint constraints)
			{Name: "$.personKeys[*]", Alias: "personKey", Type: db.IndexFieldTag, TagCaseSensitive: true},
			{Name: "$.activePersonKeys[*]", Alias: "activePersonKey", Type: db.IndexFieldTag, TagCaseSensitive: true},
			{Name: "$.personStatusKeys[*]", Alias: "personStatusKey", Type: db.IndexFieldTag, TagCaseSensitive: true},
			{Name: "$.recordKeys[*]", Alias: "recordKey", Type: db.IndexFieldTag, TagCaseSensitive: true},

			// Timestamps
			{Name: "$.occurredAt", Alias: "occurredAt", Type: db.IndexFieldNumeric},
			{Name: "$.createdAt", Alias: "createdAt", Type: db.IndexFieldNumeric},
			{Name: "$.updatedAt", Alias: "updatedAt", Type: db.IndexFieldNumeric},
			{Name: "$.indexedAt", Alias: "indexedAt", Type: db.IndexFieldNumeric},
		},
	}
}
