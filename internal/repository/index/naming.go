// Package index owns per-tenant index naming, schema provisioning and
// composite-document persistence.
package index

import (
	"fmt"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "caseidx:"

// Name returns the deterministic index identifier for a tenant and entity
// type. The tenant id is a namespace segment, so distinct tenants can never
// collide, and the schema version is part of the name: a mapping change
// provisions a new index instead of silently mutating the old one.
func Name(tenantID string, entity domain.EntityType) string {
	return fmt.Sprintf("%s%s:%s:v%d", KeyPrefix, tenantID, entity, domain.SchemaVersion)
}

// DocPrefix returns the document key prefix the index is bound to.
func DocPrefix(tenantID string, entity domain.EntityType) string {
	return fmt.Sprintf("%s%s:%s:doc:", KeyPrefix, tenantID, entity)
}

// DocKey returns the document key for an aggregate. Document id == aggregate id.
func DocKey(tenantID string, entity domain.EntityType, id string) string {
	return DocPrefix(tenantID, entity) + id
}

// ValidateTenant rejects tenant ids that could escape their key namespace.
// Separators (":", "/") are forbidden on top of the identifier alphabet.
func ValidateTenant(tenantID string) error {
	if tenantID == "" {
		return domain.ErrInvalidTenant
	}
	for _, r := range tenantID {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != '-' {
			return fmt.Errorf("%w: %q", domain.ErrInvalidTenant, tenantID)
		}
	}
	return nil
}
