package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func symptomEntry(date string, symptoms ...string) CaseEntry {
	return CaseEntry{DateISO: date, Symptoms: symptoms}
}

func TestEvaluate_PotentialRemission(t *testing.T) {
	entries := []CaseEntry{
		symptomEntry("2024-01-01", "SYMPTOM_SLEEP", "SYMPTOM_FATIGUE"),
		symptomEntry("2024-01-04", "SYMPTOM_GUILT", "SYMPTOM_APPETITE"),
		symptomEntry("2024-01-08", "SYMPTOM_CONCENTRATION", "SYMPTOM_PSYCHOMOTOR"),
		symptomEntry("2024-02-20", "SYMPTOM_SLEEP"),
		symptomEntry("2024-02-25", "SYMPTOM_FATIGUE", "SYMPTOM_GUILT"),
	}

	result := Evaluate(entries, Options{})

	assert.Equal(t, 6, result.LifetimeWindowMax())
	assert.Equal(t, 3, result.CurrentCount())
	assert.Equal(t, 6, result.LifetimeCount())
	assert.True(t, result.PotentialRemission())
	assert.Len(t, result.CurrentEntries(), 2)
	assert.Len(t, result.JournalEntries(), 5)
}

func TestEvaluate_EmptyInput(t *testing.T) {
	result := Evaluate(nil, Options{})

	assert.Empty(t, result.JournalEntries())
	assert.Empty(t, result.CurrentEntries())
	assert.Equal(t, 0, result.CurrentCount())
	assert.Equal(t, 0, result.LifetimeWindowMax())
	assert.False(t, result.PotentialRemission())
	assert.Equal(t, StatusUnknown, result.StatusForLabels([]string{LabelMood}))
}

func TestEvaluate_ComputedDurationBecomesSymptom(t *testing.T) {
	result := Evaluate(moodEntries(dailyOffsets(0, 14)...), Options{})

	assert.True(t, result.CurrentSymptoms().Has(LabelDuration2Weeks))
	assert.Equal(t, StatusMet, result.StatusForLabels([]string{LabelDuration2Weeks}))
	assert.Equal(t, StatusUnknown, result.StatusForLabels([]string{LabelDuration1Month}))
}

func TestEvaluate_StatusResolution(t *testing.T) {
	entries := []CaseEntry{
		{DateISO: "2024-03-01", EvidenceUnits: []EvidenceUnit{
			unit(LabelMood, "felt hopeless", PolarityPresent),
			unit("SYMPTOM_RISK", "no thoughts of self harm", PolarityAbsent),
		}},
		{DateISO: "2024-03-05", EvidenceUnits: []EvidenceUnit{
			unit("SYMPTOM_SLEEP", "up all night", PolarityPresent),
		}},
	}

	t.Run("from evidence", func(t *testing.T) {
		result := Evaluate(entries, Options{})
		assert.Equal(t, StatusMet, result.StatusForLabels([]string{LabelMood}))
		assert.Equal(t, StatusExcluded, result.StatusForLabels([]string{"SYMPTOM_RISK"}))
		assert.Equal(t, StatusUnknown, result.StatusForLabels([]string{"SYMPTOM_TRAUMA"}))
	})

	t.Run("override map", func(t *testing.T) {
		result := Evaluate(entries, Options{Overrides: map[string]Status{"SYMPTOM_RISK": StatusMet}})
		assert.Equal(t, StatusMet, result.StatusForLabels([]string{"SYMPTOM_RISK"}))
	})

	t.Run("override list ignored when map present", func(t *testing.T) {
		result := Evaluate(entries, Options{
			Overrides:    map[string]Status{},
			OverrideList: []OverrideEntry{{NodeID: LabelMood, Status: StatusExcluded}},
		})
		assert.Equal(t, StatusMet, result.StatusForLabels([]string{LabelMood}))
	})

	t.Run("override list", func(t *testing.T) {
		result := Evaluate(entries, Options{
			OverrideList: []OverrideEntry{{NodeID: LabelMood, Status: StatusExcluded}},
		})
		resolve := result.StatusResolver()
		assert.Equal(t, StatusExcluded, resolve([]string{LabelMood}))
	})

	t.Run("rejected evidence", func(t *testing.T) {
		result := Evaluate(entries, Options{
			RejectedEvidenceKeys: NewEvidenceKeySet(EvidenceKey("2024-03-05", "up all night")),
		})
		assert.False(t, result.CurrentSymptoms().Has("SYMPTOM_SLEEP"))
		assert.Equal(t, StatusUnknown, result.StatusForLabels([]string{"SYMPTOM_SLEEP"}))
	})
}

func TestEvaluate_CustomWindow(t *testing.T) {
	entries := []CaseEntry{
		symptomEntry("2024-03-01", "SYMPTOM_SLEEP"),
		symptomEntry("2024-03-10", "SYMPTOM_FATIGUE"),
	}

	assert.Equal(t, 2, Evaluate(entries, Options{}).CurrentCount())
	assert.Equal(t, 1, Evaluate(entries, Options{WindowDays: 7}).CurrentCount())
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	entries := moodEntries(dailyOffsets(0, 20)...)

	result := Evaluate(entries, Options{})
	journal := result.JournalEntries()
	require.NotEmpty(t, journal)
	journal[0].Symptoms[0] = "CHANGED"

	assert.Len(t, entries[20].EvidenceUnits, 1)
	assert.Equal(t, LabelMood, result.JournalEntries()[0].Symptoms[0])
	assert.Equal(t, LabelMood, result.LifetimeEntries()[0].Symptoms[0])
}

func TestEvaluate_DefaultRulesApply(t *testing.T) {
	entries := []CaseEntry{{DateISO: "2024-03-01", EvidenceUnits: []EvidenceUnit{
		{Label: LabelMania, Span: "maybe elevated", Attributes: &EvidenceAttributes{Polarity: PolarityPresent, Uncertainty: UncertaintyHigh}},
	}}}

	assert.False(t, Evaluate(entries, Options{}).CurrentSymptoms().Has(LabelMania))
	assert.True(t, Evaluate(entries, Options{Rules: RuleSet{}}).CurrentSymptoms().Has(LabelMania))
}
