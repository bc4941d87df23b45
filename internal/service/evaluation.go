package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/mindstorm-criteria-engine/internal/jobs"
	"github.com/mindstorm-criteria-engine/internal/metrics"
	"github.com/mindstorm-criteria-engine/internal/review"
	"github.com/mindstorm-criteria-engine/pkg/criteria"
)

// Evaluation origins used for metrics labels.
const (
	OriginHTTP = "http"
	OriginMCP  = "mcp"
	OriginCLI  = "cli"
	OriginJob  = "job"
)

// EvaluateRequest is the input of a case evaluation.
type EvaluateRequest struct {
	// PatientID selects stored clinician overrides and evidence feedback. Optional.
	PatientID            string                     `json:"patient_id,omitempty"`
	Entries              []criteria.CaseEntry       `json:"entries"`
	WindowDays           int                        `json:"window_days,omitempty"`
	DiagnosticWindowDays int                        `json:"diagnostic_window_days,omitempty"`
	Threshold            int                        `json:"threshold,omitempty"`
	Overrides            map[string]criteria.Status `json:"overrides,omitempty"`
	OverrideList         []criteria.OverrideEntry   `json:"override_list,omitempty"`
	RejectedEvidenceKeys []string                   `json:"rejected_evidence_keys,omitempty"`
	Rules                criteria.RuleSet           `json:"rules,omitempty"`
	NodeIDs              []string                   `json:"node_ids,omitempty"`
	Origin               string                     `json:"-"`
}

// ClinicalStatus is the serializable projection of an evaluation result.
type ClinicalStatus struct {
	CurrentSymptoms      []string `json:"current_symptoms"`
	CurrentDenials       []string `json:"current_denials"`
	LifetimeSymptoms     []string `json:"lifetime_symptoms"`
	LifetimeDenials      []string `json:"lifetime_denials"`
	CurrentCount         int      `json:"current_count"`
	LifetimeWindowMax    int      `json:"lifetime_window_max"`
	LifetimeCount        int      `json:"lifetime_count"`
	PotentialRemission   bool     `json:"potential_remission"`
	WindowDays           int      `json:"window_days"`
	DiagnosticWindowDays int      `json:"diagnostic_window_days"`
	Threshold            int      `json:"threshold"`
}

// EvaluateResponse is the output of a case evaluation.
type EvaluateResponse struct {
	Status         ClinicalStatus             `json:"status"`
	JournalEntries []criteria.JournalEntry    `json:"journal_entries"`
	CurrentEntries []criteria.JournalEntry    `json:"current_entries"`
	NodeStatuses   map[string]criteria.Status `json:"node_statuses,omitempty"`
	Warnings       []string                   `json:"warnings,omitempty"`
}

// CaseEvaluationService runs the criteria engine against request data merged with
// stored clinician review decisions.
type CaseEvaluationService struct {
	logger  *logrus.Logger
	engine  domain.EngineConfig
	rules   criteria.RuleSet
	store   review.Store
	tracker *jobs.Tracker
	running *jobGroup
}

// NewCaseEvaluationService creates the service. rules may be nil to use the built-in
// rule map; store and tracker may be nil when review data or summary jobs are disabled.
func NewCaseEvaluationService(
	logger *logrus.Logger,
	engine domain.EngineConfig,
	rules criteria.RuleSet,
	store review.Store,
	tracker *jobs.Tracker,
) *CaseEvaluationService {
	return &CaseEvaluationService{
		logger:  logger,
		engine:  engine,
		rules:   rules,
		store:   store,
		tracker: tracker,
		running: newJobGroup(),
	}
}

// Evaluate validates the request and returns the clinical status view.
func (s *CaseEvaluationService) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	result, opts, warnings, err := s.evaluate(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &EvaluateResponse{
		Status:         newClinicalStatus(result, opts),
		JournalEntries: result.JournalEntries(),
		CurrentEntries: result.CurrentEntries(),
		Warnings:       warnings,
	}
	if len(req.NodeIDs) > 0 {
		resp.NodeStatuses = ResolveNodes(result, req.NodeIDs)
	}
	return resp, nil
}

// ResolveStatus evaluates the request and resolves a single criteria node described by labels.
func (s *CaseEvaluationService) ResolveStatus(ctx context.Context, req *EvaluateRequest, labels []string) (criteria.Status, error) {
	result, _, _, err := s.evaluate(ctx, req)
	if err != nil {
		return criteria.StatusUnknown, err
	}
	return result.StatusForLabels(labels), nil
}

func (s *CaseEvaluationService) evaluate(ctx context.Context, req *EvaluateRequest) (*criteria.Result, criteria.Options, []string, error) {
	start := time.Now()
	origin := req.Origin
	if origin == "" {
		origin = OriginHTTP
	}

	if err := ValidateEntries(req.Entries); err != nil {
		metrics.RecordEvaluation(origin, len(req.Entries), time.Since(start), false, err)
		return nil, criteria.Options{}, nil, err
	}
	if err := validateOverrides(req); err != nil {
		metrics.RecordEvaluation(origin, len(req.Entries), time.Since(start), false, err)
		return nil, criteria.Options{}, nil, err
	}

	opts := s.options(req)
	warnings := s.mergeReviewData(ctx, req.PatientID, &opts)

	for _, unit := range criteria.ComputeDurationEvidence(req.Entries) {
		metrics.RecordComputedEvidence(unit.Unit.Label)
	}

	result := criteria.Evaluate(req.Entries, opts)
	metrics.RecordEvaluation(origin, len(req.Entries), time.Since(start), result.PotentialRemission(), nil)

	s.logger.WithFields(logrus.Fields{
		"origin":              origin,
		"patient_id":          req.PatientID,
		"entries":             len(req.Entries),
		"current_count":       result.CurrentCount(),
		"lifetime_window_max": result.LifetimeWindowMax(),
		"potential_remission": result.PotentialRemission(),
		"duration_ms":         time.Since(start).Milliseconds(),
	}).Info("Case evaluated")

	return result, opts, warnings, nil
}

// options builds engine options: request values first, then configured values.
// Zero values left over fall through to the engine defaults.
func (s *CaseEvaluationService) options(req *EvaluateRequest) criteria.Options {
	opts := criteria.Options{
		WindowDays:           firstPositive(req.WindowDays, s.engine.WindowDays),
		DiagnosticWindowDays: firstPositive(req.DiagnosticWindowDays, s.engine.DiagnosticWindowDays),
		Threshold:            firstPositive(req.Threshold, s.engine.Threshold),
		Overrides:            req.Overrides,
		OverrideList:         append([]criteria.OverrideEntry(nil), req.OverrideList...),
		RejectedEvidenceKeys: criteria.NewEvidenceKeySet(req.RejectedEvidenceKeys...),
		Rules:                s.rules,
	}
	if req.Rules != nil {
		opts.Rules = req.Rules
	}
	return opts
}

// mergeReviewData folds stored overrides and rejected evidence into opts. Stored
// overrides come before request overrides so the request wins for the same node.
// Store failures degrade to request-only data and are reported as warnings.
func (s *CaseEvaluationService) mergeReviewData(ctx context.Context, patientID string, opts *criteria.Options) []string {
	if s.store == nil || patientID == "" {
		return nil
	}

	var warnings []string
	logger := s.logger.WithField("patient_id", patientID)

	overrides, err := s.store.ListOverrides(ctx, patientID)
	if err != nil {
		metrics.RecordStoreError("list_overrides")
		logger.WithError(err).Warn("Failed to load clinician overrides, evaluating without them")
		warnings = append(warnings, "clinician overrides unavailable")
	} else if len(overrides) > 0 {
		opts.OverrideList = append(review.OverrideEntries(overrides), opts.OverrideList...)
	}

	feedback, err := s.store.ListEvidenceFeedback(ctx, patientID)
	if err != nil {
		metrics.RecordStoreError("list_evidence_feedback")
		logger.WithError(err).Warn("Failed to load evidence feedback, evaluating without it")
		warnings = append(warnings, "evidence feedback unavailable")
	} else {
		for key := range review.RejectedKeys(feedback) {
			opts.RejectedEvidenceKeys[key] = struct{}{}
		}
	}

	return warnings
}

func newClinicalStatus(result *criteria.Result, opts criteria.Options) ClinicalStatus {
	return ClinicalStatus{
		CurrentSymptoms:      result.CurrentSymptoms().Sorted(),
		CurrentDenials:       result.CurrentDenials().Sorted(),
		LifetimeSymptoms:     result.LifetimeSymptoms().Sorted(),
		LifetimeDenials:      result.LifetimeDenials().Sorted(),
		CurrentCount:         result.CurrentCount(),
		LifetimeWindowMax:    result.LifetimeWindowMax(),
		LifetimeCount:        result.LifetimeCount(),
		PotentialRemission:   result.PotentialRemission(),
		WindowDays:           firstPositive(opts.WindowDays, criteria.DefaultWindowDays),
		DiagnosticWindowDays: firstPositive(opts.DiagnosticWindowDays, criteria.DefaultDiagnosticWindowDays),
		Threshold:            firstPositive(opts.Threshold, criteria.DefaultThreshold),
	}
}

// ValidateEntries checks that every entry carries a calendar date.
func ValidateEntries(entries []criteria.CaseEntry) error {
	for i, entry := range entries {
		field := fmt.Sprintf("entries[%d].dateISO", i)
		if entry.DateISO == "" {
			return domain.NewValidationError(field, "date is required", entry.DateISO)
		}
		if _, err := time.Parse("2006-01-02", entry.DateISO); err != nil {
			return domain.NewValidationError(field, "date must be formatted as YYYY-MM-DD", entry.DateISO)
		}
	}
	return nil
}

func validateOverrides(req *EvaluateRequest) error {
	for node, status := range req.Overrides {
		if !status.IsValid() {
			return domain.NewValidationError("overrides."+node, "status must be MET, EXCLUDED or UNKNOWN", string(status))
		}
	}
	for i, entry := range req.OverrideList {
		if entry.NodeID == "" {
			return domain.NewValidationError(fmt.Sprintf("override_list[%d].nodeId", i), "node id is required", "")
		}
		if !entry.Status.IsValid() {
			return domain.NewValidationError(fmt.Sprintf("override_list[%d].status", i), "status must be MET, EXCLUDED or UNKNOWN", string(entry.Status))
		}
	}
	return nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
