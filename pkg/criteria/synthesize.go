package criteria

import (
	"fmt"
	"strings"
	"time"
)

const (
	minDurationDays       = 14
	oneMonthDurationDays  = 30
	minWeeklyDensity      = 0.5
	frequentMoodMinimum   = 4
	maxDurationNoteLength = 500
	ellipsis              = "..."
)

// ComputedUnit is a synthetic evidence unit and the date of the entry it belongs to.
type ComputedUnit struct {
	DateISO string
	Unit    EvidenceUnit
}

type spanItem struct {
	dateISO string
	text    string
}

// ComputeDurationEvidence derives duration units from a persistent core-symptom pattern.
//
// It returns nothing when fewer than two entries are given, when duration evidence was
// already computed, when fewer than two entries show a core symptom, when the core span is
// shorter than two weeks, when fewer than half of its weekly buckets show a core symptom,
// or when no quotable span exists for the target label.
func ComputeDurationEvidence(entries []CaseEntry) []ComputedUnit {
	if len(entries) < 2 || hasComputedDuration(entries) {
		return nil
	}

	core := make([]CaseEntry, 0, len(entries))
	for _, entry := range entries {
		if _, ok := parseDay(entry.DateISO); !ok {
			continue
		}
		if hasCoreSymptom(entry) {
			core = append(core, entry)
		}
	}
	core = sortedByDate(core, caseEntryDate)
	if len(core) < 2 {
		return nil
	}

	startISO := core[0].DateISO
	endISO := core[len(core)-1].DateISO
	start, _ := parseDay(startISO)
	end, _ := parseDay(endISO)
	spanDays := daysBetween(start, end)
	if spanDays < minDurationDays {
		return nil
	}
	if weeklyDensity(core, start, spanDays) < minWeeklyDensity {
		return nil
	}

	target := LabelAnhedonia
	for _, entry := range core {
		if hasLabel(entry, LabelMood) {
			target = LabelMood
			break
		}
	}
	items := make([]spanItem, 0, len(core))
	for _, entry := range core {
		if span := presentSpan(entry, target); span != "" {
			items = append(items, spanItem{dateISO: entry.DateISO, text: span})
		}
	}
	if len(items) == 0 {
		return nil
	}

	attrs := EvidenceAttributes{
		Polarity:   PolarityPresent,
		Confidence: ConfidenceHigh,
		Type:       EvidenceTypeComputed,
	}
	if frequentMood(entries) {
		attrs.Frequency = FrequencyDaily
	}
	note := durationNote(spanDays, startISO, endISO, items)

	labels := []string{LabelDuration2Weeks}
	if spanDays >= oneMonthDurationDays {
		labels = append(labels, LabelDuration1Month)
	}
	units := make([]ComputedUnit, 0, len(labels))
	for _, label := range labels {
		unitAttrs := attrs
		units = append(units, ComputedUnit{
			DateISO: endISO,
			Unit:    EvidenceUnit{Label: label, Span: note, Attributes: &unitAttrs},
		})
	}
	return units
}

// AppendComputedEvidence returns entries with any computed duration units appended to
// the first entry dated on the last core-symptom day. The input is never modified; when
// nothing is computed the input slice itself is returned.
func AppendComputedEvidence(entries []CaseEntry) []CaseEntry {
	units := ComputeDurationEvidence(entries)
	if len(units) == 0 {
		return entries
	}
	anchor := units[0].DateISO
	index := -1
	for i, entry := range entries {
		if entry.DateISO == anchor {
			index = i
			break
		}
	}
	if index < 0 {
		return entries
	}

	out := make([]CaseEntry, len(entries))
	copy(out, entries)
	target := out[index]
	merged := make([]EvidenceUnit, 0, len(target.EvidenceUnits)+len(units))
	merged = append(merged, target.EvidenceUnits...)
	for _, computed := range units {
		merged = append(merged, computed.Unit)
	}
	target.EvidenceUnits = merged
	out[index] = target
	return out
}

func caseEntryDate(e CaseEntry) string { return e.DateISO }

func hasComputedDuration(entries []CaseEntry) bool {
	for _, entry := range entries {
		for _, unit := range entry.EvidenceUnits {
			if unit.isComputedDuration() {
				return true
			}
		}
	}
	return false
}

func hasLabel(entry CaseEntry, label string) bool {
	for _, symptom := range entry.Symptoms {
		if symptom == label {
			return true
		}
	}
	for _, unit := range entry.EvidenceUnits {
		if unit.Label == label && unit.ResolvedPolarity() == PolarityPresent {
			return true
		}
	}
	return false
}

func hasCoreSymptom(entry CaseEntry) bool {
	return hasLabel(entry, LabelMood) || hasLabel(entry, LabelAnhedonia)
}

func presentSpan(entry CaseEntry, label string) string {
	for _, unit := range entry.EvidenceUnits {
		if unit.Label == label && unit.ResolvedPolarity() == PolarityPresent && unit.Span != "" {
			return unit.Span
		}
	}
	return ""
}

// weeklyDensity buckets the span into 7-day weeks from start and returns the share of
// weeks containing at least one core entry.
func weeklyDensity(core []CaseEntry, start time.Time, spanDays int) float64 {
	totalWeeks := spanDays/7 + 1
	weeks := make(map[int]struct{}, totalWeeks)
	for _, entry := range core {
		t, _ := parseDay(entry.DateISO)
		weeks[daysBetween(start, t)/7] = struct{}{}
	}
	return float64(len(weeks)) / float64(totalWeeks)
}

// frequentMood reports whether the trailing 7 days ending at the latest entry hold at
// least four entries, all showing depressed mood.
func frequentMood(entries []CaseEntry) bool {
	sorted := sortedByDate(entries, caseEntryDate)
	latest, ok := parseDay(sorted[len(sorted)-1].DateISO)
	if !ok {
		return false
	}
	count := 0
	for _, entry := range sorted {
		if !inWindow(entry.DateISO, latest, 7) {
			continue
		}
		if !hasLabel(entry, LabelMood) {
			return false
		}
		count++
	}
	return count >= frequentMoodMinimum
}

func durationNote(spanDays int, startISO, endISO string, items []spanItem) string {
	build := func(list string) string {
		return fmt.Sprintf("Inferred duration: %d days (%s - %s). Based on %d signals: %s",
			spanDays, shortDate(startISO), shortDate(endISO), len(items), list)
	}
	note := build(quoteItems(items))
	if runeLen(note) <= maxDurationNoteLength {
		return note
	}
	if len(items) > 2 {
		note = build(quoteItem(items[0]) + ", ... , " + quoteItem(items[len(items)-1]))
	}
	return truncateMiddle(note, maxDurationNoteLength)
}

func quoteItem(item spanItem) string {
	return fmt.Sprintf("'%s' (%s)", item.text, shortDate(item.dateISO))
}

func quoteItems(items []spanItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = quoteItem(item)
	}
	return strings.Join(parts, ", ")
}

// truncateMiddle keeps equal head and tail portions of text joined by an ellipsis so
// the result never exceeds maxLength characters.
func truncateMiddle(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	if maxLength <= len(ellipsis) {
		return string(runes[:maxLength])
	}
	keep := (maxLength - len(ellipsis)) / 2
	return string(runes[:keep]) + ellipsis + string(runes[len(runes)-keep:])
}

func runeLen(s string) int {
	return len([]rune(s))
}
