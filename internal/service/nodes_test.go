package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindstorm-criteria-engine/pkg/criteria"
)

func TestEvidenceLabelsForNode(t *testing.T) {
	tests := []struct {
		nodeID string
		want   []string
	}{
		{"MDD_B_CLINICAL_DISTRESS", []string{"IMPAIRMENT"}},
		{"MDD_C_SUBSTANCE_EXCLUSION", []string{"CONTEXT_SUBSTANCE"}},
		{"ddamc_medication_induced", []string{"CONTEXT_SUBSTANCE"}},
		{"MDD_C_MEDICAL_CONDITION", []string{"CONTEXT_MEDICAL"}},
		{"MDD_A9_SUICIDAL_IDEATION", []string{"SYMPTOM_RISK"}},
		{"MDD_A4_HYPERSOMNIA", []string{"SYMPTOM_SLEEP"}},
		{"MDD_A1_DEPRESSED_MOOD", []string{"SYMPTOM_MOOD"}},
		{"DMDD_TEMPER_OUTBURSTS", []string{"SYMPTOM_MOOD"}},
		{"MDD_A7_WORTHLESSNESS", []string{"SYMPTOM_COGNITIVE"}},
		{"MDD_A8_CONCENTRATION", []string{"SYMPTOM_COGNITIVE"}},
		{"MDD_A6_FATIGUE", []string{"SYMPTOM_SOMATIC"}},
		{"MDD_A3_WEIGHT_CHANGE", []string{"SYMPTOM_SOMATIC"}},
		{"GAD_ANXIOUS_DISTRESS_SPECIFIER", []string{"IMPAIRMENT"}},
		{"GAD_EXCESSIVE_ANXIETY", []string{"SYMPTOM_ANXIETY"}},
		{"MDD_D_NO_HYPOMANIA", []string{"SYMPTOM_MANIA"}},
		{"MDD_PSYCHOTIC_FEATURES", []string{"SYMPTOM_PSYCHOSIS"}},
		{"PTSD_A_TRAUMA_EXPOSURE", []string{"SYMPTOM_TRAUMA"}},
		{"MDD_DURATION_2W", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.nodeID, func(t *testing.T) {
			assert.Equal(t, tt.want, EvidenceLabelsForNode(tt.nodeID))
		})
	}
}

func TestEvaluateCriteria(t *testing.T) {
	spec := CriteriaSpec{
		ID:    "MDD_A",
		Label: "Core symptoms",
		Signals: []CriteriaSignal{
			{Type: "symptom", AnyOf: []string{"SYMPTOM_MOOD", "SYMPTOM_ANHEDONIA"}},
			{Type: "symptom", AnyOf: []string{"SYMPTOM_SLEEP", "SYMPTOM_SOMATIC"}},
		},
	}

	tests := []struct {
		name         string
		units        []criteria.EvidenceUnit
		wantMatched  []string
		wantCoverage float64
	}{
		{
			name:         "no evidence",
			units:        nil,
			wantMatched:  []string{},
			wantCoverage: 0,
		},
		{
			name:         "case insensitive match",
			units:        []criteria.EvidenceUnit{{Label: "symptom_mood"}, {Label: "SYMPTOM_SLEEP"}},
			wantMatched:  []string{"SYMPTOM_MOOD", "SYMPTOM_SLEEP"},
			wantCoverage: 0.5,
		},
		{
			name: "all signals",
			units: []criteria.EvidenceUnit{
				{Label: "SYMPTOM_MOOD"}, {Label: "SYMPTOM_ANHEDONIA"},
				{Label: "SYMPTOM_SLEEP"}, {Label: "SYMPTOM_SOMATIC"}, {Label: "SYMPTOM_RISK"},
			},
			wantMatched:  []string{"SYMPTOM_MOOD", "SYMPTOM_ANHEDONIA", "SYMPTOM_SLEEP", "SYMPTOM_SOMATIC"},
			wantCoverage: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateCriteria(spec, tt.units)
			assert.Equal(t, "MDD_A", got.ID)
			assert.Equal(t, "Core symptoms", got.Label)
			assert.Equal(t, tt.wantMatched, got.MatchedSignals)
			assert.InDelta(t, tt.wantCoverage, got.Coverage, 1e-9)
		})
	}
}

func TestEvaluateCriteria_DuplicateSignalsCapCoverage(t *testing.T) {
	spec := CriteriaSpec{ID: "X", Signals: []CriteriaSignal{{AnyOf: []string{"SYMPTOM_MOOD", "symptom_mood"}}}}

	got := EvaluateCriteria(spec, []criteria.EvidenceUnit{{Label: "SYMPTOM_MOOD"}})
	assert.Len(t, got.MatchedSignals, 2)
	assert.Equal(t, 1.0, got.Coverage)
}

func TestEvaluateCriteria_NoSignals(t *testing.T) {
	got := EvaluateCriteria(CriteriaSpec{ID: "EMPTY"}, []criteria.EvidenceUnit{{Label: "SYMPTOM_MOOD"}})
	assert.Empty(t, got.MatchedSignals)
	assert.Equal(t, 0.0, got.Coverage)
}
