package criteria

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RequiredAttributes lists attribute values a unit must carry to pass a rule.
type RequiredAttributes struct {
	Polarity Polarity `json:"polarity,omitempty" yaml:"polarity,omitempty"`
}

// EvaluationRule gates evidence units for one label.
type EvaluationRule struct {
	// MinConfidence HIGH rejects units whose uncertainty is HIGH. Other values are ignored.
	MinConfidence      Confidence          `json:"min_confidence,omitempty" yaml:"min_confidence,omitempty"`
	AttributesRequired *RequiredAttributes `json:"attributes_required,omitempty" yaml:"attributes_required,omitempty"`
}

// RuleSet maps labels to their evaluation rule.
type RuleSet map[string]EvaluationRule

// DefaultRules returns the built-in rule map. SYMPTOM_MANIA must be affirmed with
// non-HIGH uncertainty.
func DefaultRules() RuleSet {
	return RuleSet{
		LabelMania: {
			MinConfidence:      ConfidenceHigh,
			AttributesRequired: &RequiredAttributes{Polarity: PolarityPresent},
		},
	}
}

// ParseRules decodes a YAML (or JSON) document mapping labels to rules.
func ParseRules(data []byte) (RuleSet, error) {
	rules := RuleSet{}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	for label, rule := range rules {
		if rule.MinConfidence != "" && rule.MinConfidence != ConfidenceHigh && rule.MinConfidence != ConfidenceLow {
			return nil, fmt.Errorf("rule %s: unsupported min_confidence %q", label, rule.MinConfidence)
		}
		if req := rule.AttributesRequired; req != nil && req.Polarity != "" &&
			req.Polarity != PolarityPresent && req.Polarity != PolarityAbsent {
			return nil, fmt.Errorf("rule %s: unsupported polarity %q", label, req.Polarity)
		}
	}
	return rules, nil
}

// allows reports whether unit passes the rule for its label.
func (r RuleSet) allows(unit EvidenceUnit) bool {
	if unit.Label == "" {
		return true
	}
	rule, ok := r[unit.Label]
	if !ok {
		return true
	}
	if rule.MinConfidence == ConfidenceHigh && unit.uncertainty() == UncertaintyHigh {
		return false
	}
	if req := rule.AttributesRequired; req != nil && req.Polarity != "" {
		return unit.ResolvedPolarity() == req.Polarity
	}
	return true
}
