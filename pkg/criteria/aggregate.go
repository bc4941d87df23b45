package criteria

// Aggregate holds window aggregates over normalized journal entries.
type Aggregate struct {
	CurrentEntries     []JournalEntry
	LifetimeEntries    []JournalEntry
	CurrentSymptoms    LabelSet
	CurrentDenials     LabelSet
	LifetimeSymptoms   LabelSet
	LifetimeDenials    LabelSet
	CurrentCount       int
	LifetimeWindowMax  int
	LifetimeCount      int
	PotentialRemission bool
}

// AggregateEntries computes current-window and lifetime label sets.
//
// The current window covers the windowDays ending at the latest entry date, not the wall
// clock. LifetimeWindowMax is the largest distinct-symptom count seen in any
// diagnosticWindowDays window ending on an entry date. Potential remission means that
// maximum reached threshold while the current count is below it.
func AggregateEntries(entries []JournalEntry, windowDays, diagnosticWindowDays, threshold int) Aggregate {
	current := windowEntries(entries, windowDays)

	agg := Aggregate{
		CurrentEntries:   current,
		LifetimeEntries:  entries,
		CurrentSymptoms:  collectLabels(current, symptomsOf),
		CurrentDenials:   collectLabels(current, denialsOf),
		LifetimeSymptoms: collectLabels(entries, symptomsOf),
		LifetimeDenials:  collectLabels(entries, denialsOf),
	}
	agg.CurrentCount = agg.CurrentSymptoms.Len()
	agg.LifetimeCount = agg.LifetimeSymptoms.Len()
	agg.LifetimeWindowMax = maxWindowCount(entries, diagnosticWindowDays)
	agg.PotentialRemission = agg.LifetimeWindowMax >= threshold && agg.CurrentCount < threshold
	return agg
}

func journalDate(e JournalEntry) string { return e.DateISO }

func symptomsOf(e JournalEntry) []string { return e.Symptoms }

func denialsOf(e JournalEntry) []string { return e.Denials }

func collectLabels(entries []JournalEntry, field func(JournalEntry) []string) LabelSet {
	set := newLabelSet()
	for _, entry := range entries {
		for _, label := range field(entry) {
			set.add(label)
		}
	}
	return set
}

// windowEntries returns entries, sorted by date, within days of the latest entry.
func windowEntries(entries []JournalEntry, days int) []JournalEntry {
	if len(entries) == 0 {
		return []JournalEntry{}
	}
	sorted := sortedByDate(entries, journalDate)
	latest, ok := parseDay(sorted[len(sorted)-1].DateISO)
	if !ok {
		return []JournalEntry{}
	}
	out := make([]JournalEntry, 0, len(sorted))
	for _, entry := range sorted {
		if inWindow(entry.DateISO, latest, days) {
			out = append(out, entry)
		}
	}
	return out
}

// maxWindowCount scans one window per entry. Quadratic in the entry count, which stays
// small for daily journals.
func maxWindowCount(entries []JournalEntry, days int) int {
	sorted := sortedByDate(entries, journalDate)
	maxCount := 0
	for _, end := range sorted {
		endDate, ok := parseDay(end.DateISO)
		if !ok {
			continue
		}
		set := newLabelSet()
		for _, candidate := range sorted {
			if !inWindow(candidate.DateISO, endDate, days) {
				continue
			}
			for _, label := range candidate.Symptoms {
				set.add(label)
			}
		}
		if set.Len() > maxCount {
			maxCount = set.Len()
		}
	}
	return maxCount
}
