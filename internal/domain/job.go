package domain

import (
	"fmt"
	"time"
)

// Operation is a queue job operation.
type Operation string

const (
	OpCreate  Operation = "create"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	OpReindex Operation = "reindex"
)

// ValidOperation reports whether op is part of the job contract.
func ValidOperation(op Operation) bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete, OpReindex:
		return true
	}
	return false
}

// Job is one unit of indexing work. Delivery is at-least-once: the worker
// reloads fresh relational state instead of applying a delta, so reprocessing
// the same logical change is harmless.
type Job struct {
	TenantID    string     `json:"tenantId"`
	EntityType  EntityType `json:"entityType"`
	EntityID    string     `json:"entityId"`
	Operation   Operation  `json:"operation"`
	SubmittedAt time.Time  `json:"submittedAt"`
	Attempts    int        `json:"attempts"`
}

// Key is the logical job identity: tenant+type+id+submission time. Two
// deliveries of the same key are the same logical change.
func (j Job) Key() string {
	return fmt.Sprintf("%s/%s/%s/%d", j.TenantID, j.EntityType, j.EntityID, j.SubmittedAt.UnixNano())
}

// Validate checks the job fields against the queue contract.
func (j Job) Validate() error {
	if j.TenantID == "" {
		return fmt.Errorf("%w: missing tenant id", ErrInvalidJob)
	}
	if j.EntityType == "" {
		return fmt.Errorf("%w: missing entity type", ErrInvalidJob)
	}
	if j.EntityID == "" {
		return fmt.Errorf("%w: missing entity id", ErrInvalidJob)
	}
	if !ValidOperation(j.Operation) {
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidJob, j.Operation)
	}
	return nil
}

// Age is how far behind the relational mutation this job is observed at
// processing time. Exported as the staleness metric.
func (j Job) Age(now time.Time) time.Duration {
	if j.SubmittedAt.IsZero() {
		return 0
	}
	return now.Sub(j.SubmittedAt)
}
