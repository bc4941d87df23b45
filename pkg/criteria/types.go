// Package criteria evaluates dated journal evidence against diagnostic criteria.
//
// The engine is a pure function over caller-supplied entries: it normalizes extracted
// evidence units into per-day symptom, denial and context-tag lists, derives synthetic
// duration evidence when a persistent core-symptom pattern is found, aggregates symptom
// and denial sets over sliding windows anchored to the latest entry date, and resolves
// MET / EXCLUDED / UNKNOWN statuses for criteria-graph label sets.
//
// Evaluate performs no I/O and holds no shared state, so it is safe for concurrent use.
// Callers must supply entries whose DateISO is a calendar date (YYYY-MM-DD); entries are
// ordered by string comparison of that field.
package criteria

import (
	"encoding/json"
	"sort"
)

// Polarity records whether a label is affirmed or denied. The empty value means null.
type Polarity string

const (
	PolarityPresent Polarity = "PRESENT"
	PolarityAbsent  Polarity = "ABSENT"
)

// Confidence is the extractor's confidence in a unit. It is informational only.
type Confidence string

const (
	ConfidenceHigh Confidence = "HIGH"
	ConfidenceLow  Confidence = "LOW"
)

// Uncertainty is consulted by rules with a HIGH minimum confidence.
type Uncertainty string

const (
	UncertaintyHigh Uncertainty = "HIGH"
	UncertaintyLow  Uncertainty = "LOW"
)

// EvidenceType distinguishes engine-derived units from extracted ones.
type EvidenceType string

const (
	EvidenceTypeComputed  EvidenceType = "computed"
	EvidenceTypeExtracted EvidenceType = "extracted"
)

// Status is the resolved state of a criteria node.
type Status string

const (
	StatusMet      Status = "MET"
	StatusExcluded Status = "EXCLUDED"
	StatusUnknown  Status = "UNKNOWN"
)

// IsValid reports whether s is one of the three known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusMet, StatusExcluded, StatusUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Well-known labels.
const (
	LabelMood             = "SYMPTOM_MOOD"
	LabelAnhedonia        = "SYMPTOM_ANHEDONIA"
	LabelMania            = "SYMPTOM_MANIA"
	LabelDuration2Weeks   = "DURATION_COMPUTED_2W"
	LabelDuration1Month   = "DURATION_COMPUTED_1_MONTH"
	ContextLabelPrefix    = "CONTEXT_"
	FrequencyDaily        = "daily"
	evidenceKeySeparator  = "::"
)

// Defaults applied to zero-valued Options.
const (
	DefaultWindowDays           = 14
	DefaultDiagnosticWindowDays = 14
	DefaultThreshold            = 5
)

// EvidenceAttributes carries the qualifiers of an evidence unit.
type EvidenceAttributes struct {
	Polarity    Polarity     `json:"polarity,omitempty"`
	Confidence  Confidence   `json:"confidence,omitempty"`
	Frequency   string       `json:"frequency,omitempty"`
	Type        EvidenceType `json:"type,omitempty"`
	Uncertainty Uncertainty  `json:"uncertainty,omitempty"`
}

// EvidenceUnit is one extracted clinical signal attached to a dated entry.
type EvidenceUnit struct {
	Label      string              `json:"label,omitempty"`
	Span       string              `json:"span,omitempty"`
	Attributes *EvidenceAttributes `json:"attributes,omitempty"`
	// Polarity is the legacy top-level polarity. Attributes.Polarity wins when both are set.
	Polarity Polarity `json:"polarity,omitempty"`
}

// ResolvedPolarity returns the attribute polarity, falling back to the legacy field.
func (u EvidenceUnit) ResolvedPolarity() Polarity {
	if u.Attributes != nil && u.Attributes.Polarity != "" {
		return u.Attributes.Polarity
	}
	return u.Polarity
}

func (u EvidenceUnit) uncertainty() Uncertainty {
	if u.Attributes == nil {
		return ""
	}
	return u.Attributes.Uncertainty
}

func (u EvidenceUnit) isComputedDuration() bool {
	if u.Label != LabelDuration2Weeks && u.Label != LabelDuration1Month {
		return false
	}
	return u.Attributes != nil && u.Attributes.Type == EvidenceTypeComputed
}

// CaseEntry is one calendar-day journal record as supplied by the caller.
type CaseEntry struct {
	DateISO       string         `json:"dateISO"`
	Summary       string         `json:"summary,omitempty"`
	Symptoms      []string       `json:"symptoms,omitempty"`
	Denials       []string       `json:"denials,omitempty"`
	ContextTags   []string       `json:"context_tags,omitempty"`
	RiskSignal    any            `json:"risk_signal,omitempty"`
	EvidenceUnits []EvidenceUnit `json:"evidenceUnits,omitempty"`
}

// JournalEntry is the normalized per-day record. Label lists keep input order and may
// contain duplicates; de-duplication happens only during aggregation.
type JournalEntry struct {
	DateISO     string   `json:"dateISO"`
	Summary     string   `json:"summary"`
	Symptoms    []string `json:"symptoms"`
	Denials     []string `json:"denials"`
	ContextTags []string `json:"context_tags"`
	RiskSignal  any      `json:"risk_signal"`
}

func (e JournalEntry) clone() JournalEntry {
	e.Symptoms = cloneStrings(e.Symptoms)
	e.Denials = cloneStrings(e.Denials)
	e.ContextTags = cloneStrings(e.ContextTags)
	return e
}

// OverrideEntry is a manual status decision for one criteria node.
type OverrideEntry struct {
	NodeID string `json:"nodeId"`
	Status Status `json:"status"`
}

// EvidenceKey builds the rejection key for evidence on a given date.
func EvidenceKey(dateISO, span string) string {
	return dateISO + evidenceKeySeparator + span
}

// EvidenceKeySet is a set of EvidenceKey values the caller has rejected.
type EvidenceKeySet map[string]struct{}

// NewEvidenceKeySet builds a set from the given keys.
func NewEvidenceKeySet(keys ...string) EvidenceKeySet {
	set := make(EvidenceKeySet, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}

// Has reports whether key is in the set. A nil set contains nothing.
func (s EvidenceKeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// LabelSet is an immutable set of labels.
type LabelSet struct {
	items map[string]struct{}
}

func newLabelSet() LabelSet {
	return LabelSet{items: make(map[string]struct{})}
}

func (s LabelSet) add(label string) {
	s.items[label] = struct{}{}
}

// Has reports whether label is a member.
func (s LabelSet) Has(label string) bool {
	_, ok := s.items[label]
	return ok
}

// Len returns the number of distinct labels.
func (s LabelSet) Len() int {
	return len(s.items)
}

// Sorted returns the members in ascending order.
func (s LabelSet) Sorted() []string {
	out := make([]string, 0, len(s.items))
	for label := range s.items {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s LabelSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
