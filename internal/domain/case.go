package domain

import "time"

// EntityType names an indexable aggregate type. Index provisioning is
// per-tenant, per-entity-type; cases are currently the only aggregate that
// owns a composite document.
type EntityType string

const (
	EntityCase EntityType = "case"
)

// Case is the aggregate's own scalar state as read from the relational
// store. The relational store is always the source of truth; this type is a
// read projection only.
type Case struct {
	ID              string
	TenantID        string
	ReferenceNumber string
	Status          string
	Category        string
	CaseType        string
	Severity        string
	Summary         string
	Details         string
	OccurredAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PersonRef carries the minimal display fields denormalized into a composite
// document. A deleted person resolves to a ref with Found=false; the
// identifier is preserved and display fields stay empty.
type PersonRef struct {
	ID          string
	DisplayName string
	Found       bool
}

// RecordRef is the minimal display projection of an intake record.
type RecordRef struct {
	ID              string
	ReferenceNumber string
	Found           bool
}

// CaseRef is the minimal display projection of a linked case.
type CaseRef struct {
	ID              string
	ReferenceNumber string
	Found           bool
}
