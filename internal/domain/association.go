package domain

import "time"

// Family identifies a related-entity family on a case aggregate.
type Family string

const (
	// FamilyPerson covers person↔case role and evidentiary relationships.
	FamilyPerson Family = "person_case"
	// FamilyRecord covers intake-record↔case relationships.
	FamilyRecord Family = "record_case"
	// FamilyCase covers case↔case links (directional).
	FamilyCase Family = "case_case"
)

// PersonLabel is the closed enumeration for person↔case associations.
type PersonLabel string

const (
	LabelSubject      PersonLabel = "SUBJECT"
	LabelWitness      PersonLabel = "WITNESS"
	LabelReporter     PersonLabel = "REPORTER"
	LabelInvestigator PersonLabel = "ASSIGNED_INVESTIGATOR"
)

// PersonLabels lists every person↔case label. Rollup queries iterate this set.
var PersonLabels = []PersonLabel{LabelSubject, LabelWitness, LabelReporter, LabelInvestigator}

// ValidPersonLabel reports whether l belongs to the person↔case enumeration.
func ValidPersonLabel(l PersonLabel) bool {
	switch l {
	case LabelSubject, LabelWitness, LabelReporter, LabelInvestigator:
		return true
	}
	return false
}

// RecordLabel is the closed enumeration for record↔case associations.
type RecordLabel string

const (
	LabelOriginating RecordLabel = "ORIGINATING"
	LabelEvidence    RecordLabel = "EVIDENCE"
	LabelSupporting  RecordLabel = "SUPPORTING"
)

// CaseLinkLabel is the closed enumeration for case↔case links.
type CaseLinkLabel string

const (
	LabelRelatedTo   CaseLinkLabel = "RELATED_TO"
	LabelDuplicateOf CaseLinkLabel = "DUPLICATE_OF"
	LabelSplitFrom   CaseLinkLabel = "SPLIT_FROM"
)

// AssociationStatus is the permanent outcome field an association may carry.
type AssociationStatus string

const (
	StatusActive    AssociationStatus = "ACTIVE"
	StatusEnded     AssociationStatus = "ENDED"
	StatusConfirmed AssociationStatus = "CONFIRMED"
	StatusDismissed AssociationStatus = "DISMISSED"
)

// PersonAssociation is a typed, labeled person↔case relationship as read from
// the relational store. Ended associations stay visible (informational) but
// are excluded from active-only projections.
type PersonAssociation struct {
	ID        string
	TenantID  string
	CaseID    string
	PersonID  string
	Label     PersonLabel
	Status    AssociationStatus
	StartedAt time.Time
	EndedAt   *time.Time
	CreatedAt time.Time
}

// Active reports whether the association is currently in effect.
func (a PersonAssociation) Active() bool {
	return a.Status == StatusActive && a.EndedAt == nil
}

// RecordAssociation links an intake record to a case.
type RecordAssociation struct {
	ID        string
	TenantID  string
	CaseID    string
	RecordID  string
	Label     RecordLabel
	Status    AssociationStatus
	CreatedAt time.Time
}

// CaseLink is a directional case↔case association. SourceID owns the link;
// both ends must be re-indexed when it changes.
type CaseLink struct {
	ID        string
	TenantID  string
	SourceID  string
	TargetID  string
	Label     CaseLinkLabel
	Status    AssociationStatus
	CreatedAt time.Time
}
