package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/mindstorm-criteria-engine/internal/middleware"
	"github.com/mindstorm-criteria-engine/internal/review"
	"github.com/mindstorm-criteria-engine/internal/service"
	"github.com/mindstorm-criteria-engine/pkg/criteria"
)

// StatusRequest resolves one criteria node, described by its labels, against a case.
type StatusRequest struct {
	Labels []string `json:"labels"`
	service.EvaluateRequest
}

// CoverageRequest scores a criterion against a list of evidence units.
type CoverageRequest struct {
	Spec          service.CriteriaSpec    `json:"spec"`
	EvidenceUnits []criteria.EvidenceUnit `json:"evidence_units"`
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req service.EvaluateRequest
	if !s.bind(c, &req) {
		return
	}
	req.Origin = service.OriginHTTP

	resp, err := s.service.Evaluate(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleResolveStatus(c *gin.Context) {
	var req StatusRequest
	if !s.bind(c, &req) {
		return
	}
	req.Origin = service.OriginHTTP

	status, err := s.service.ResolveStatus(c.Request.Context(), &req.EvaluateRequest, req.Labels)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": req.Labels, "status": status})
}

func (s *Server) handleCriteriaCoverage(c *gin.Context) {
	var req CoverageRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Spec.ID == "" {
		s.writeError(c, domain.NewValidationError("spec.id", "criterion id is required", ""))
		return
	}
	c.JSON(http.StatusOK, service.EvaluateCriteria(req.Spec, req.EvidenceUnits))
}

func (s *Server) handleNodeLabels(c *gin.Context) {
	nodeID := c.Param("id")
	labels := service.EvidenceLabelsForNode(nodeID)
	if labels == nil {
		labels = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"node_id": nodeID, "labels": labels})
}

func (s *Server) handleSaveOverride(c *gin.Context) {
	var override review.Override
	if !s.bind(c, &override) {
		return
	}
	if err := s.service.RecordOverride(c.Request.Context(), &override); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, override)
}

func (s *Server) handleListOverrides(c *gin.Context) {
	overrides, err := s.service.ListOverrides(c.Request.Context(), c.Query("patient_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if overrides == nil {
		overrides = []*review.Override{}
	}
	c.JSON(http.StatusOK, gin.H{"overrides": overrides})
}

func (s *Server) handleDeleteOverride(c *gin.Context) {
	clinicianID, patientID, nodeID := c.Query("clinician_id"), c.Query("patient_id"), c.Query("node_id")
	if clinicianID == "" || patientID == "" || nodeID == "" {
		s.writeError(c, domain.NewValidationError("query", "clinician_id, patient_id and node_id are required", c.Request.URL.RawQuery))
		return
	}
	if err := s.service.DeleteOverride(c.Request.Context(), clinicianID, patientID, nodeID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleEvidenceFeedback(c *gin.Context) {
	var feedback review.EvidenceFeedback
	if !s.bind(c, &feedback) {
		return
	}
	if err := s.service.RecordEvidenceFeedback(c.Request.Context(), &feedback); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"feedback":     feedback,
		"evidence_key": criteria.EvidenceKey(feedback.EntryDateISO, feedback.Span),
		"rejected":     feedback.FeedbackType.Rejects(),
	})
}

func (s *Server) handleStartSummaryJob(c *gin.Context) {
	var req service.SummaryJobRequest
	if !s.bind(c, &req) {
		return
	}
	job, err := s.service.StartSummaryJob(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Location", "/api/v1/summary-jobs/"+job.ID)
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleGetSummaryJob(c *gin.Context) {
	job, err := s.service.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// bind decodes the JSON body, writing a 400 response on failure.
func (s *Server) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewServiceError(
			domain.ErrInvalidInput, "Request body is not valid JSON", err.Error(), c.GetString(middleware.CorrelationIDKey)))
		return false
	}
	return true
}

// writeError maps service errors to HTTP responses.
func (s *Server) writeError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.CorrelationIDKey)

	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"code":       domain.ErrValidation,
			"message":    validationErr.Error(),
			"field":      validationErr.Field,
			"request_id": requestID,
		})
	case errors.Is(err, domain.ErrRecordNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, domain.NewServiceError(domain.ErrNotFound, "Resource not found", "", requestID))
	case errors.Is(err, service.ErrReviewDisabled), errors.Is(err, service.ErrJobsDisabled):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, domain.NewServiceError(domain.ErrUnavailable, err.Error(), "", requestID))
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.Header("Retry-After", "10")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, domain.NewServiceError(domain.ErrDatabaseError, "Review storage is temporarily unavailable", err.Error(), requestID))
	default:
		s.logger.WithError(err).WithField("correlation_id", requestID).Error("Request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, domain.NewServiceError(domain.ErrInternalServer, "Internal server error", "", requestID))
	}
}
