package domain

import "time"

// EventAction is the mutation kind an association event reports.
type EventAction string

const (
	ActionCreated       EventAction = "created"
	ActionStatusChanged EventAction = "status-changed"
	ActionEnded         EventAction = "ended"
)

// ChangeEvent is the typed message the relational side emits on every
// association mutation. Topic is "association.<family>.<action>". The event
// names every aggregate it touches; a case↔case link carries both ends.
type ChangeEvent struct {
	TenantID   string      `json:"tenantId"`
	Family     Family      `json:"family"`
	Action     EventAction `json:"action"`
	CaseIDs    []string    `json:"caseIds"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// Topic returns the message topic for this event.
func (e ChangeEvent) Topic() string {
	return "association." + string(e.Family) + "." + string(e.Action)
}
