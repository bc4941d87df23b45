package criteria

// Options tunes an evaluation. Zero values select the defaults.
type Options struct {
	// WindowDays is the current-window length. Default 14.
	WindowDays int
	// DiagnosticWindowDays is the window length for the lifetime maximum scan. Default 14.
	DiagnosticWindowDays int
	// Threshold is the symptom count used for remission detection. Default 5.
	Threshold int
	// Overrides maps node labels to manual statuses. Takes precedence over OverrideList.
	Overrides map[string]Status
	// OverrideList is consulted only when Overrides is nil.
	OverrideList []OverrideEntry
	// RejectedEvidenceKeys excludes evidence by EvidenceKey(date, span).
	RejectedEvidenceKeys EvidenceKeySet
	// Rules replaces DefaultRules entirely when non-nil.
	Rules RuleSet
}

func (o Options) withDefaults() Options {
	if o.WindowDays == 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.DiagnosticWindowDays == 0 {
		o.DiagnosticWindowDays = DefaultDiagnosticWindowDays
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Rules == nil {
		o.Rules = DefaultRules()
	}
	return o
}

// Result is the immutable outcome of one evaluation. Slice accessors return copies.
type Result struct {
	journalEntries     []JournalEntry
	currentEntries     []JournalEntry
	currentSymptoms    LabelSet
	currentDenials     LabelSet
	lifetimeSymptoms   LabelSet
	lifetimeDenials    LabelSet
	currentCount       int
	lifetimeWindowMax  int
	lifetimeCount      int
	potentialRemission bool
	resolve            StatusFunc
}

// Evaluate runs the full pipeline: computed duration evidence is appended, every entry
// is normalized, window aggregates are computed and a status resolver is bound to the
// current-window sets. It never fails and never modifies entries.
func Evaluate(entries []CaseEntry, opts Options) *Result {
	opts = opts.withDefaults()

	withComputed := AppendComputedEvidence(entries)
	journal := make([]JournalEntry, len(withComputed))
	for i, entry := range withComputed {
		journal[i] = Normalize(entry, opts.RejectedEvidenceKeys, opts.Rules)
	}

	agg := AggregateEntries(journal, opts.WindowDays, opts.DiagnosticWindowDays, opts.Threshold)
	overrides := NormalizeOverrides(opts.Overrides, opts.OverrideList)

	return &Result{
		journalEntries:     journal,
		currentEntries:     agg.CurrentEntries,
		currentSymptoms:    agg.CurrentSymptoms,
		currentDenials:     agg.CurrentDenials,
		lifetimeSymptoms:   agg.LifetimeSymptoms,
		lifetimeDenials:    agg.LifetimeDenials,
		currentCount:       agg.CurrentCount,
		lifetimeWindowMax:  agg.LifetimeWindowMax,
		lifetimeCount:      agg.LifetimeCount,
		potentialRemission: agg.PotentialRemission,
		resolve:            NewResolver(agg.CurrentSymptoms, agg.CurrentDenials, overrides),
	}
}

// JournalEntries returns every normalized entry in input order.
func (r *Result) JournalEntries() []JournalEntry { return cloneEntries(r.journalEntries) }

// CurrentEntries returns the entries inside the current window, sorted by date.
func (r *Result) CurrentEntries() []JournalEntry { return cloneEntries(r.currentEntries) }

// LifetimeEntries returns every normalized entry; it is the same list as JournalEntries.
func (r *Result) LifetimeEntries() []JournalEntry { return cloneEntries(r.journalEntries) }

func (r *Result) CurrentSymptoms() LabelSet  { return r.currentSymptoms }
func (r *Result) CurrentDenials() LabelSet   { return r.currentDenials }
func (r *Result) LifetimeSymptoms() LabelSet { return r.lifetimeSymptoms }
func (r *Result) LifetimeDenials() LabelSet  { return r.lifetimeDenials }

// CurrentCount is the number of distinct symptoms in the current window.
func (r *Result) CurrentCount() int { return r.currentCount }

// LifetimeWindowMax is the largest distinct-symptom count in any diagnostic window.
func (r *Result) LifetimeWindowMax() int { return r.lifetimeWindowMax }

// LifetimeCount is the number of distinct symptoms across all entries.
func (r *Result) LifetimeCount() int { return r.lifetimeCount }

// PotentialRemission reports a historical window at or above threshold with the current
// window below it.
func (r *Result) PotentialRemission() bool { return r.potentialRemission }

// StatusForLabels resolves a criteria node against the current window and overrides.
func (r *Result) StatusForLabels(labels []string) Status { return r.resolve(labels) }

// StatusResolver returns the resolver bound to this result.
func (r *Result) StatusResolver() StatusFunc { return r.resolve }

func cloneEntries(entries []JournalEntry) []JournalEntry {
	out := make([]JournalEntry, len(entries))
	for i, entry := range entries {
		out[i] = entry.clone()
	}
	return out
}
