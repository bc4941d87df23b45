package service

import (
	"strings"

	"github.com/mindstorm-criteria-engine/pkg/criteria"
)

// nodeEvidenceRules maps node id fragments to evidence labels. Order matters: the
// first rule with a matching fragment wins.
var nodeEvidenceRules = []struct {
	fragments []string
	label     string
}{
	{[]string{"IMPAIRMENT", "DISTRESS"}, "IMPAIRMENT"},
	{[]string{"SUBSTANCE", "MEDICATION"}, "CONTEXT_SUBSTANCE"},
	{[]string{"MEDICAL"}, "CONTEXT_MEDICAL"},
	{[]string{"SUICID"}, "SYMPTOM_RISK"},
	{[]string{"SLEEP", "INSOMN", "HYPERSOM"}, "SYMPTOM_SLEEP"},
	{[]string{"ANHEDON", "DEPRESSED_MOOD", "IRRIT", "OUTBURST", "TEMPER", "ANGRY"}, "SYMPTOM_MOOD"},
	{[]string{"WORTHLESS", "GUILT", "CONCENTRATION", "INDECISION", "HOPELESS"}, "SYMPTOM_COGNITIVE"},
	{[]string{"APPETITE", "WEIGHT", "FATIGUE", "ENERGY", "PSYCHOMOTOR", "PHYSICAL"}, "SYMPTOM_SOMATIC"},
	{[]string{"ANXIETY", "ANXIOUS"}, "SYMPTOM_ANXIETY"},
	{[]string{"MANIA", "HYPOMANIA"}, "SYMPTOM_MANIA"},
	{[]string{"PSYCHOTIC", "DELUSION", "HALLUC"}, "SYMPTOM_PSYCHOSIS"},
	{[]string{"TRAUMA"}, "SYMPTOM_TRAUMA"},
}

// EvidenceLabelsForNode returns the evidence labels that decide a criteria graph node.
// Unknown nodes map to no labels.
func EvidenceLabelsForNode(nodeID string) []string {
	id := strings.ToUpper(nodeID)
	for _, rule := range nodeEvidenceRules {
		for _, fragment := range rule.fragments {
			if strings.Contains(id, fragment) {
				return []string{rule.label}
			}
		}
	}
	return nil
}

// ResolveNodes resolves each node id against result. The node id itself is consulted
// first so that overrides recorded against the node take precedence over its labels.
func ResolveNodes(result *criteria.Result, nodeIDs []string) map[string]criteria.Status {
	statuses := make(map[string]criteria.Status, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		labels := append([]string{nodeID}, EvidenceLabelsForNode(nodeID)...)
		statuses[nodeID] = result.StatusForLabels(labels)
	}
	return statuses
}

// CriteriaSignal is one group of alternative evidence labels within a criterion.
type CriteriaSignal struct {
	Type  string   `json:"type"`
	AnyOf []string `json:"anyOf"`
}

// CriteriaSpec describes a criterion by the evidence signals that support it.
type CriteriaSpec struct {
	ID          string           `json:"id"`
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	Signals     []CriteriaSignal `json:"signals"`
}

// CriteriaCoverage reports which signals of a criterion are present in the evidence.
type CriteriaCoverage struct {
	ID             string   `json:"id"`
	Label          string   `json:"label"`
	MatchedSignals []string `json:"matchedSignals"`
	Coverage       float64  `json:"coverage"`
}

// EvaluateCriteria matches a criterion's signal labels against evidence unit labels,
// ignoring case. Coverage is matched/total, capped at 1; a criterion with no signals
// has coverage 0.
func EvaluateCriteria(spec CriteriaSpec, units []criteria.EvidenceUnit) CriteriaCoverage {
	present := make(map[string]struct{}, len(units))
	for _, unit := range units {
		present[strings.ToLower(unit.Label)] = struct{}{}
	}

	matched := []string{}
	total := 0
	for _, signal := range spec.Signals {
		total += len(signal.AnyOf)
		for _, label := range signal.AnyOf {
			if _, ok := present[strings.ToLower(label)]; ok {
				matched = append(matched, label)
			}
		}
	}
	if total == 0 {
		total = 1
	}

	coverage := float64(len(matched)) / float64(total)
	if coverage > 1 {
		coverage = 1
	}

	return CriteriaCoverage{
		ID:             spec.ID,
		Label:          spec.Label,
		MatchedSignals: matched,
		Coverage:       coverage,
	}
}
