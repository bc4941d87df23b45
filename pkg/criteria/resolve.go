package criteria

// StatusFunc resolves the status of a criteria node from its label identifiers.
type StatusFunc func(labels []string) Status

// NormalizeOverrides merges the two override forms. A non-nil map wins outright; the
// list is consulted only when no map is given. Later list items replace earlier ones.
func NormalizeOverrides(overrides map[string]Status, list []OverrideEntry) map[string]Status {
	if overrides != nil {
		out := make(map[string]Status, len(overrides))
		for id, status := range overrides {
			out[id] = status
		}
		return out
	}
	if len(list) == 0 {
		return nil
	}
	out := make(map[string]Status, len(list))
	for _, item := range list {
		out[item.NodeID] = item.Status
	}
	return out
}

// NewResolver returns a StatusFunc closed over the given sets and overrides.
//
// An empty label list is UNKNOWN. Otherwise the first label, in input order, with a
// non-UNKNOWN override decides. Failing that, any symptom match is MET, then any denial
// match is EXCLUDED, else UNKNOWN.
func NewResolver(symptoms, denials LabelSet, overrides map[string]Status) StatusFunc {
	return func(labels []string) Status {
		if len(labels) == 0 {
			return StatusUnknown
		}
		for _, label := range labels {
			if status, ok := overrides[label]; ok && status != "" && status != StatusUnknown {
				return status
			}
		}
		for _, label := range labels {
			if symptoms.Has(label) {
				return StatusMet
			}
		}
		for _, label := range labels {
			if denials.Has(label) {
				return StatusExcluded
			}
		}
		return StatusUnknown
	}
}
