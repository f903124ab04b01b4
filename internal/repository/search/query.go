// Package search constructs and executes pattern queries over the composite
// case indexes. All query text is assembled here so the rest of the service
// never handles raw engine syntax.
package search

import (
	"fmt"
	"strings"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

// tagEscaper escapes the characters the engine treats as tag-value syntax.
// Composite keys embed "/" and "-" appears in uuids, so every user-supplied
// value goes through this before entering a query.
var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>",
	"{", "\\{", "}", "\\}", "[", "\\[", "]", "\\]",
	"\"", "\\\"", "'", "\\'", ":", "\\:", ";", "\\;",
	"!", "\\!", "@", "\\@", "#", "\\#", "$", "\\$",
	"%", "\\%", "^", "\\^", "&", "\\&", "*", "\\*",
	"(", "\\(", ")", "\\)", "-", "\\-", "+", "\\+",
	"=", "\\=", "~", "\\~", "|", "\\|", "/", "\\/",
	" ", "\\ ",
)

// EscapeTag escapes a raw value for use inside a tag clause.
func EscapeTag(v string) string {
	return tagEscaper.Replace(v)
}

// PersonCondition is one person+label constraint of a joint query.
type PersonCondition struct {
	PersonID string
	Label    domain.PersonLabel
}

// tagClause renders `@field:{value}` with the value escaped.
func tagClause(field, value string) string {
	return "@" + field + ":{" + EscapeTag(value) + "}"
}

// JointQuery builds an entry-scoped co-occurrence query: every condition must
// hold on the same case, each as its own person+label pairing. Matching the
// entry-scoped key field keeps "A as SUBJECT and B as WITNESS" from matching a
// case where the roles are swapped. includeEnded widens the match from active
// associations to the full association history.
func JointQuery(conds []PersonCondition, includeEnded bool) string {
	field := "activePersonKey"
	if includeEnded {
		field = "personKey"
	}
	clauses := make([]string, 0, len(conds))
	for _, c := range conds {
		clauses = append(clauses, tagClause(field, domain.PersonKey(c.PersonID, c.Label)))
	}
	return strings.Join(clauses, " ")
}

// LinkedQuery builds a label-blind "person appears on the case at all" query
// against the flat active person-id projection.
func LinkedQuery(personID string) string {
	return tagClause("personIds", personID)
}

// LabelQuery builds a single person+label query against the matching flat
// array (active associations only).
func LabelQuery(personID string, label domain.PersonLabel) string {
	field, ok := labelField(label)
	if !ok {
		return tagClause("activePersonKey", domain.PersonKey(personID, label))
	}
	return tagClause(field, personID)
}

// RelatedQuery builds a "linked to this case" query over the flat related-case
// projection.
func RelatedQuery(caseID string) string {
	return tagClause("relatedCaseIds", caseID)
}

// StatusFilter narrows any query to cases in one of the given statuses.
func StatusFilter(query string, statuses []string) string {
	if len(statuses) == 0 {
		return query
	}
	escaped := make([]string, 0, len(statuses))
	for _, s := range statuses {
		escaped = append(escaped, EscapeTag(s))
	}
	clause := "@status:{" + strings.Join(escaped, "|") + "}"
	if query == "" || query == "*" {
		return clause
	}
	return query + " " + clause
}

// AllQuery matches every document in the index.
func AllQuery() string { return "*" }

// labelField maps a person label to its flat per-label array alias.
func labelField(label domain.PersonLabel) (string, bool) {
	switch label {
	case domain.LabelSubject:
		return "subjectIds", true
	case domain.LabelWitness:
		return "witnessIds", true
	case domain.LabelReporter:
		return "reporterIds", true
	case domain.LabelInvestigator:
		return "investigatorIds", true
	}
	return "", false
}

// keyPrefix is the leading segment shared by every composite key of one
// person, used to filter aggregation rows client-side.
func keyPrefix(personID string) string { return personID + "/" }

// keySuffix is the trailing segment shared by every composite key carrying
// one label.
func keySuffix(label domain.PersonLabel) string { return "/" + string(label) }

// splitKeyLabel extracts the label segment from a composite person key.
func splitKeyLabel(key string) (domain.PersonLabel, error) {
	i := strings.IndexByte(key, '/')
	if i < 0 || i+1 >= len(key) {
		return "", fmt.Errorf("malformed person key %q", key)
	}
	return domain.PersonLabel(key[i+1:]), nil
}

// splitKeyLabelStatus extracts the label and status segments from a composite
// person status key ("id/LABEL/STATUS").
func splitKeyLabelStatus(key string) (domain.PersonLabel, string, error) {
	first := strings.IndexByte(key, '/')
	last := strings.LastIndexByte(key, '/')
	if first < 0 || last <= first+1 || last+1 >= len(key) {
		return "", "", fmt.Errorf("malformed person status key %q", key)
	}
	return domain.PersonLabel(key[first+1 : last]), key[last+1:], nil
}
