package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func journal(date string, symptoms ...string) JournalEntry {
	return JournalEntry{DateISO: date, Symptoms: symptoms}
}

func TestAggregateEntries_Empty(t *testing.T) {
	agg := AggregateEntries(nil, 14, 14, 5)

	assert.Empty(t, agg.CurrentEntries)
	assert.Equal(t, 0, agg.CurrentSymptoms.Len())
	assert.Equal(t, 0, agg.LifetimeDenials.Len())
	assert.Equal(t, 0, agg.CurrentCount)
	assert.Equal(t, 0, agg.LifetimeWindowMax)
	assert.Equal(t, 0, agg.LifetimeCount)
	assert.False(t, agg.PotentialRemission)
}

func TestAggregateEntries_WindowAnchoredToLatestEntry(t *testing.T) {
	entries := []JournalEntry{
		journal("2020-01-20", "SYMPTOM_SLEEP"),
		journal("2020-01-01", "SYMPTOM_MOOD"),
		journal("2020-01-07", "SYMPTOM_FATIGUE"),
		journal("2020-01-06", "SYMPTOM_GUILT"),
	}

	agg := AggregateEntries(entries, 14, 14, 5)

	dates := make([]string, 0, len(agg.CurrentEntries))
	for _, e := range agg.CurrentEntries {
		dates = append(dates, e.DateISO)
	}
	assert.Equal(t, []string{"2020-01-07", "2020-01-20"}, dates)
	assert.Equal(t, []string{"SYMPTOM_FATIGUE", "SYMPTOM_SLEEP"}, agg.CurrentSymptoms.Sorted())
	assert.Equal(t, 4, agg.LifetimeCount)
	assert.Equal(t, entries, agg.LifetimeEntries)
}

func TestAggregateEntries_CountsDistinctLabels(t *testing.T) {
	entries := []JournalEntry{
		journal("2024-03-01", "SYMPTOM_SLEEP", "SYMPTOM_SLEEP"),
		journal("2024-03-02", "SYMPTOM_SLEEP", "SYMPTOM_MOOD"),
		{DateISO: "2024-03-03", Denials: []string{"SYMPTOM_RISK", "SYMPTOM_RISK"}},
	}

	agg := AggregateEntries(entries, 14, 14, 5)

	assert.Equal(t, 2, agg.CurrentCount)
	assert.Equal(t, 2, agg.LifetimeWindowMax)
	assert.Equal(t, 1, agg.CurrentDenials.Len())
	assert.True(t, agg.CurrentDenials.Has("SYMPTOM_RISK"))
}

func TestAggregateEntries_PotentialRemission(t *testing.T) {
	entries := []JournalEntry{
		journal("2024-01-01", "SYMPTOM_MOOD", "SYMPTOM_SLEEP"),
		journal("2024-01-05", "SYMPTOM_FATIGUE", "SYMPTOM_GUILT"),
		journal("2024-01-10", "SYMPTOM_APPETITE", "SYMPTOM_CONCENTRATION"),
		journal("2024-03-01", "SYMPTOM_SLEEP"),
		journal("2024-03-05", "SYMPTOM_FATIGUE"),
		journal("2024-03-10", "SYMPTOM_MOOD"),
	}

	agg := AggregateEntries(entries, 14, 14, 5)

	assert.Equal(t, 6, agg.LifetimeWindowMax)
	assert.Equal(t, 3, agg.CurrentCount)
	assert.True(t, agg.PotentialRemission)

	t.Run("current still above threshold", func(t *testing.T) {
		agg := AggregateEntries(entries[:3], 14, 14, 5)
		assert.Equal(t, 6, agg.CurrentCount)
		assert.False(t, agg.PotentialRemission)
	})

	t.Run("never reached threshold", func(t *testing.T) {
		agg := AggregateEntries(entries, 14, 14, 7)
		assert.False(t, agg.PotentialRemission)
	})
}

func TestAggregateEntries_DiagnosticWindowLength(t *testing.T) {
	entries := []JournalEntry{
		journal("2024-01-01", "A"),
		journal("2024-01-05", "B"),
		journal("2024-01-10", "C"),
	}

	assert.Equal(t, 3, AggregateEntries(entries, 14, 10, 5).LifetimeWindowMax)
	assert.Equal(t, 2, AggregateEntries(entries, 14, 9, 5).LifetimeWindowMax)
	assert.Equal(t, 1, AggregateEntries(entries, 14, 1, 5).LifetimeWindowMax)
}

func TestAggregateEntries_UnparseableDates(t *testing.T) {
	entries := []JournalEntry{
		journal("2024-01-01", "A"),
		journal("not-a-date", "B"),
	}

	agg := AggregateEntries(entries, 14, 14, 5)

	// "not-a-date" sorts last and cannot anchor a window
	require.Empty(t, agg.CurrentEntries)
	assert.Equal(t, 1, agg.LifetimeWindowMax)
	assert.Equal(t, 2, agg.LifetimeCount)
}
