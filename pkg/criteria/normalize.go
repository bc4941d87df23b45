package criteria

import "strings"

// Normalize converts a case entry into its canonical journal form.
//
// Each of symptoms, denials and context tags is resolved independently: a non-empty
// precomputed list on the entry is returned as is, otherwise the list is derived from
// the entry's evidence units. Units are dropped when their EvidenceKey is rejected or
// when they fail the rule for their label. A nil rule set applies no rules.
func Normalize(entry CaseEntry, rejected EvidenceKeySet, rules RuleSet) JournalEntry {
	return JournalEntry{
		DateISO:     entry.DateISO,
		Summary:     entry.Summary,
		Symptoms:    resolveField(entry, entry.Symptoms, isSymptomUnit, rejected, rules),
		Denials:     resolveField(entry, entry.Denials, isDenialUnit, rejected, rules),
		ContextTags: resolveField(entry, entry.ContextTags, isContextUnit, rejected, rules),
		RiskSignal:  entry.RiskSignal,
	}
}

func isSymptomUnit(u EvidenceUnit) bool { return u.ResolvedPolarity() == PolarityPresent }

func isDenialUnit(u EvidenceUnit) bool { return u.ResolvedPolarity() == PolarityAbsent }

// Context tags ignore polarity.
func isContextUnit(u EvidenceUnit) bool { return strings.HasPrefix(u.Label, ContextLabelPrefix) }

func resolveField(
	entry CaseEntry,
	precomputed []string,
	match func(EvidenceUnit) bool,
	rejected EvidenceKeySet,
	rules RuleSet,
) []string {
	if len(precomputed) > 0 {
		return cloneStrings(precomputed)
	}

	labels := make([]string, 0)
	for _, unit := range entry.EvidenceUnits {
		if !match(unit) {
			continue
		}
		if rejected.Has(EvidenceKey(entry.DateISO, unit.Span)) {
			continue
		}
		if !rules.allows(unit) {
			continue
		}
		if unit.Label == "" {
			continue
		}
		labels = append(labels, unit.Label)
	}
	return labels
}
