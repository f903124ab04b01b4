package domain

import "sort"

// SchemaVersion is the composite-document mapping version. Bumping it changes
// the index name, so a mapping change always lands in a freshly provisioned
// index followed by a tenant reindex, never an in-place mapping edit.
const SchemaVersion = 1

// PersonEntry is one nested person↔case record inside a composite document.
// Field co-occurrence within an entry is what joint queries match on.
type PersonEntry struct {
	PersonID    string            `json:"personId"`
	DisplayName string            `json:"displayName,omitempty"`
	Label       PersonLabel       `json:"label"`
	Status      AssociationStatus `json:"status"`
	Active      bool              `json:"active"`
	AddedAt     int64             `json:"addedAt"`
}

// RecordEntry is one nested record↔case entry.
type RecordEntry struct {
	RecordID        string            `json:"recordId"`
	ReferenceNumber string            `json:"referenceNumber,omitempty"`
	Label           RecordLabel       `json:"label"`
	Status          AssociationStatus `json:"status"`
	AddedAt         int64             `json:"addedAt"`
}

// CaseLinkEntry is one nested case↔case entry. Direction records which end
// of the link this document sits on.
type CaseLinkEntry struct {
	CaseID          string            `json:"caseId"`
	ReferenceNumber string            `json:"referenceNumber,omitempty"`
	Label           CaseLinkLabel     `json:"label"`
	Status          AssociationStatus `json:"status"`
	Direction       string            `json:"direction"` // "out" = this case owns the link
	AddedAt         int64             `json:"addedAt"`
}

// CaseDocument is the denormalized projection of a case aggregate stored in
// the tenant's index. It is replaced wholesale on every update and is never
// the source of truth.
type CaseDocument struct {
	ID              string `json:"id"`
	TenantID        string `json:"tenantId"`
	ReferenceNumber string `json:"referenceNumber"`

	Status   string `json:"status"`
	Category string `json:"category,omitempty"`
	CaseType string `json:"caseType,omitempty"`
	Severity string `json:"severity,omitempty"`

	Summary string `json:"summary,omitempty"`
	Details string `json:"details,omitempty"`

	Persons      []PersonEntry   `json:"persons"`
	Records      []RecordEntry   `json:"records"`
	RelatedCases []CaseLinkEntry `json:"relatedCases"`

	// Derived projections. Pure functions of the nested lists above; rebuilt
	// by DeriveProjections and never mutated independently.
	SubjectIDs       []string `json:"subjectIds"`
	WitnessIDs       []string `json:"witnessIds"`
	ReporterIDs      []string `json:"reporterIds"`
	InvestigatorIDs  []string `json:"investigatorIds"`
	PersonKeys       []string `json:"personKeys"`
	ActivePersonKeys []string `json:"activePersonKeys"`
	PersonStatusKeys []string `json:"personStatusKeys"`
	RecordKeys       []string `json:"recordKeys"`
	RelatedCaseIDs   []string `json:"relatedCaseIds"`
	AssigneeID       string   `json:"assigneeId,omitempty"`

	OccurredAt int64 `json:"occurredAt,omitempty"`
	CreatedAt  int64 `json:"createdAt"`
	UpdatedAt  int64 `json:"updatedAt"`
	IndexedAt  int64 `json:"indexedAt"`

	SchemaVersion int `json:"schemaVersion"`
}

// PersonKey encodes one nested entry's person+label co-occurrence as a single
// tag token. Joint ("A as SUBJECT and B as WITNESS on the same case") queries
// match these entry-scoped keys; matching the per-label flat arrays instead
// would only prove independent appearance.
func PersonKey(personID string, label PersonLabel) string {
	return personID + "/" + string(label)
}

// PersonStatusKey extends PersonKey with the association status for
// label+status rollups.
func PersonStatusKey(personID string, label PersonLabel, status AssociationStatus) string {
	return personID + "/" + string(label) + "/" + string(status)
}

// RecordKey encodes a record entry's co-occurrence token.
func RecordKey(recordID string, label RecordLabel) string {
	return recordID + "/" + string(label)
}

// DeriveProjections recomputes every flattened array and single-valued rollup
// from the nested lists. The per-label id arrays hold active entries only;
// PersonKeys also covers ended (historical) entries. Output slices are
// deduplicated and sorted so repeated builds of the same state are
// byte-identical.
func (d *CaseDocument) DeriveProjections() {
	subjects := newStringSet()
	witnesses := newStringSet()
	reporters := newStringSet()
	investigators := newStringSet()
	personKeys := newStringSet()
	activeKeys := newStringSet()
	statusKeys := newStringSet()

	for _, p := range d.Persons {
		personKeys.add(PersonKey(p.PersonID, p.Label))
		statusKeys.add(PersonStatusKey(p.PersonID, p.Label, p.Status))
		if !p.Active {
			continue
		}
		activeKeys.add(PersonKey(p.PersonID, p.Label))
		switch p.Label {
		case LabelSubject:
			subjects.add(p.PersonID)
		case LabelWitness:
			witnesses.add(p.PersonID)
		case LabelReporter:
			reporters.add(p.PersonID)
		case LabelInvestigator:
			investigators.add(p.PersonID)
		}
	}

	recordKeys := newStringSet()
	for _, r := range d.Records {
		recordKeys.add(RecordKey(r.RecordID, r.Label))
	}

	relatedIDs := newStringSet()
	for _, c := range d.RelatedCases {
		relatedIDs.add(c.CaseID)
	}

	d.SubjectIDs = subjects.sorted()
	d.WitnessIDs = witnesses.sorted()
	d.ReporterIDs = reporters.sorted()
	d.InvestigatorIDs = investigators.sorted()
	d.PersonKeys = personKeys.sorted()
	d.ActivePersonKeys = activeKeys.sorted()
	d.PersonStatusKeys = statusKeys.sorted()
	d.RecordKeys = recordKeys.sorted()
	d.RelatedCaseIDs = relatedIDs.sorted()
	d.AssigneeID = d.currentAssignee()
}

// currentAssignee picks the single active ASSIGNED_INVESTIGATOR entry. When
// more than one is active, the most recently added wins; equal timestamps
// fall back to the lexicographically larger person id so the outcome stays
// deterministic.
func (d *CaseDocument) currentAssignee() string {
	var best *PersonEntry
	for i := range d.Persons {
		p := &d.Persons[i]
		if p.Label != LabelInvestigator || !p.Active {
			continue
		}
		if best == nil ||
			p.AddedAt > best.AddedAt ||
			(p.AddedAt == best.AddedAt && p.PersonID > best.PersonID) {
			best = p
		}
	}
	if best == nil {
		return ""
	}
	return best.PersonID
}

type stringSet map[string]struct{}

func newStringSet() stringSet { return make(stringSet) }

func (s stringSet) add(v string) { s[v] = struct{}{} }

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
