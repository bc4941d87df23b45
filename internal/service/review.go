package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/mindstorm-criteria-engine/internal/metrics"
	"github.com/mindstorm-criteria-engine/internal/review"
)

// ErrReviewDisabled is returned when the service has no review store.
var ErrReviewDisabled = errors.New("review storage is not enabled")

// RecordOverride stores a clinician's manual status for a criteria node.
func (s *CaseEvaluationService) RecordOverride(ctx context.Context, override *review.Override) error {
	if s.store == nil {
		return ErrReviewDisabled
	}
	if err := s.store.SaveOverride(ctx, override); err != nil {
		metrics.RecordStoreError("save_override")
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"clinician_id": override.ClinicianID,
		"patient_id":   override.PatientID,
		"node_id":      override.NodeID,
		"status":       override.Status,
	}).Info("Clinician override recorded")
	return nil
}

// ListOverrides returns stored overrides for a patient.
func (s *CaseEvaluationService) ListOverrides(ctx context.Context, patientID string) ([]*review.Override, error) {
	if s.store == nil {
		return nil, ErrReviewDisabled
	}
	return s.store.ListOverrides(ctx, patientID)
}

// DeleteOverride removes a clinician's override.
func (s *CaseEvaluationService) DeleteOverride(ctx context.Context, clinicianID, patientID, nodeID string) error {
	if s.store == nil {
		return ErrReviewDisabled
	}
	existing, err := s.store.GetOverride(ctx, clinicianID, patientID, nodeID)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrRecordNotFound
	}
	return s.store.DeleteOverride(ctx, existing.ID)
}

// RecordEvidenceFeedback stores a clinician's verdict on one evidence span.
func (s *CaseEvaluationService) RecordEvidenceFeedback(ctx context.Context, feedback *review.EvidenceFeedback) error {
	if s.store == nil {
		return ErrReviewDisabled
	}
	if err := s.store.SaveEvidenceFeedback(ctx, feedback); err != nil {
		metrics.RecordStoreError("save_evidence_feedback")
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"clinician_id":  feedback.ClinicianID,
		"patient_id":    feedback.PatientID,
		"entry_date":    feedback.EntryDateISO,
		"feedback_type": feedback.FeedbackType,
	}).Info("Evidence feedback recorded")
	return nil
}
