// Package review stores clinician review data for patient journals: manual status
// overrides on criteria nodes and feedback on individual evidence units. Stored
// overrides become the override list of an evaluation and negative feedback becomes
// the set of rejected evidence keys.
package review

import (
	"context"
	"io"
	"time"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/mindstorm-criteria-engine/pkg/criteria"
)

// FeedbackType is a clinician's verdict on one extracted evidence unit.
type FeedbackType string

const (
	FeedbackCorrect       FeedbackType = "correct"
	FeedbackWrongLabel    FeedbackType = "wrong_label"
	FeedbackWrongPolarity FeedbackType = "wrong_polarity"
)

// IsValid reports whether t is a known feedback type.
func (t FeedbackType) IsValid() bool {
	switch t {
	case FeedbackCorrect, FeedbackWrongLabel, FeedbackWrongPolarity:
		return true
	}
	return false
}

// Rejects reports whether the feedback removes the unit from evaluation.
func (t FeedbackType) Rejects() bool {
	return t == FeedbackWrongLabel || t == FeedbackWrongPolarity
}

// Override is a clinician's manual status for one criteria node of one patient.
// It is unique per clinician, patient and node.
type Override struct {
	ID               int64           `json:"id,omitempty"`
	ClinicianID      string          `json:"clinician_id"`
	PatientID        string          `json:"patient_id"`
	NodeID           string          `json:"node_id"`
	Status           criteria.Status `json:"status"`
	OriginalStatus   criteria.Status `json:"original_status"`
	OriginalEvidence string          `json:"original_evidence,omitempty"`
	Note             string          `json:"note,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Validate checks required fields and status values.
func (o *Override) Validate() error {
	switch {
	case o.ClinicianID == "":
		return domain.NewValidationError("clinician_id", "is required", o.ClinicianID)
	case o.PatientID == "":
		return domain.NewValidationError("patient_id", "is required", o.PatientID)
	case o.NodeID == "":
		return domain.NewValidationError("node_id", "is required", o.NodeID)
	case !o.Status.IsValid():
		return domain.NewValidationError("status", "must be MET, EXCLUDED or UNKNOWN", o.Status)
	}
	if o.OriginalStatus == "" {
		o.OriginalStatus = criteria.StatusUnknown
	}
	if !o.OriginalStatus.IsValid() {
		return domain.NewValidationError("original_status", "must be MET, EXCLUDED or UNKNOWN", o.OriginalStatus)
	}
	return nil
}

// EvidenceFeedback is a clinician's verdict on one evidence unit of one journal entry.
// It is unique per clinician, patient, entry date, span and label.
type EvidenceFeedback struct {
	ID           int64        `json:"id,omitempty"`
	ClinicianID  string       `json:"clinician_id"`
	PatientID    string       `json:"patient_id"`
	EntryDateISO string       `json:"entry_date_iso"`
	Span         string       `json:"span"`
	Label        string       `json:"label"`
	FeedbackType FeedbackType `json:"feedback_type"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Validate checks required fields and the feedback type.
func (f *EvidenceFeedback) Validate() error {
	switch {
	case f.ClinicianID == "":
		return domain.NewValidationError("clinician_id", "is required", f.ClinicianID)
	case f.PatientID == "":
		return domain.NewValidationError("patient_id", "is required", f.PatientID)
	case f.EntryDateISO == "":
		return domain.NewValidationError("entry_date_iso", "is required", f.EntryDateISO)
	case f.Label == "":
		return domain.NewValidationError("label", "is required", f.Label)
	case !f.FeedbackType.IsValid():
		return domain.NewValidationError("feedback_type", "must be correct, wrong_label or wrong_polarity", f.FeedbackType)
	}
	return nil
}

// Store defines the interface for review storage operations.
type Store interface {
	// SaveOverride stores or updates an override keyed by clinician, patient and node.
	SaveOverride(ctx context.Context, override *Override) error

	// GetOverride returns nil when no override exists for the key.
	GetOverride(ctx context.Context, clinicianID, patientID, nodeID string) (*Override, error)

	// ListOverrides returns overrides ordered by last update, oldest first. An empty
	// patientID lists every patient.
	ListOverrides(ctx context.Context, patientID string) ([]*Override, error)

	// DeleteOverride removes an override by ID.
	DeleteOverride(ctx context.Context, id int64) error

	// SaveEvidenceFeedback stores or updates feedback keyed by clinician, patient,
	// entry date, span and label.
	SaveEvidenceFeedback(ctx context.Context, feedback *EvidenceFeedback) error

	// GetEvidenceFeedback returns nil when no feedback exists for the key.
	GetEvidenceFeedback(ctx context.Context, clinicianID, patientID, entryDateISO, span, label string) (*EvidenceFeedback, error)

	// ListEvidenceFeedback returns feedback ordered by creation. An empty patientID
	// lists every patient.
	ListEvidenceFeedback(ctx context.Context, patientID string) ([]*EvidenceFeedback, error)

	// ExportJSON exports all review data to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports review data, skipping records whose key already exists.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version          string              `json:"version"`
	ExportedAt       time.Time           `json:"exported_at"`
	Overrides        []*Override         `json:"overrides"`
	EvidenceFeedback []*EvidenceFeedback `json:"evidence_feedback"`
}

// OverrideEntries converts stored overrides to the evaluation override list. Later
// entries win on the same node, so the most recently updated override applies.
func OverrideEntries(overrides []*Override) []criteria.OverrideEntry {
	if len(overrides) == 0 {
		return nil
	}
	entries := make([]criteria.OverrideEntry, 0, len(overrides))
	for _, o := range overrides {
		entries = append(entries, criteria.OverrideEntry{NodeID: o.NodeID, Status: o.Status})
	}
	return entries
}

// RejectedKeys collects the evidence keys of every rejecting feedback record.
func RejectedKeys(feedback []*EvidenceFeedback) criteria.EvidenceKeySet {
	keys := criteria.NewEvidenceKeySet()
	for _, f := range feedback {
		if f.FeedbackType.Rejects() {
			keys[criteria.EvidenceKey(f.EntryDateISO, f.Span)] = struct{}{}
		}
	}
	return keys
}
