package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mindstorm-criteria-engine/internal/review"
	"github.com/mindstorm-criteria-engine/internal/service"
	"github.com/mindstorm-criteria-engine/pkg/criteria"
)

// ResolveStatusParams defines parameters for the resolve_status tool
type ResolveStatusParams struct {
	Labels []string                `json:"labels" jsonschema:"evidence labels identifying the criteria node"`
	Case   service.EvaluateRequest `json:"case" jsonschema:"the case to evaluate"`
}

// ResolveStatusResult defines the result of the resolve_status tool
type ResolveStatusResult struct {
	Labels []string        `json:"labels"`
	Status criteria.Status `json:"status"`
}

// AppendComputedEvidenceParams defines parameters for the append_computed_evidence tool
type AppendComputedEvidenceParams struct {
	Entries []criteria.CaseEntry `json:"entries" jsonschema:"dated journal entries with evidence units"`
}

// AppendComputedEvidenceResult defines the result of the append_computed_evidence tool
type AppendComputedEvidenceResult struct {
	Entries  []criteria.CaseEntry `json:"entries"`
	Computed []ComputedEvidence   `json:"computed"`
}

// ComputedEvidence is one synthesized unit and the entry date it was attached to
type ComputedEvidence struct {
	DateISO string                `json:"dateISO"`
	Unit    criteria.EvidenceUnit `json:"unit"`
}

// MapCriteriaNodeParams defines parameters for the map_criteria_node tool
type MapCriteriaNodeParams struct {
	NodeIDs []string `json:"node_ids" jsonschema:"criteria graph node ids"`
}

// MapCriteriaNodeResult defines the result of the map_criteria_node tool
type MapCriteriaNodeResult struct {
	Nodes []NodeMapping `json:"nodes"`
}

// NodeMapping lists the evidence labels for one node
type NodeMapping struct {
	NodeID string   `json:"node_id"`
	Labels []string `json:"labels"`
}

// CriteriaCoverageParams defines parameters for the criteria_coverage tool
type CriteriaCoverageParams struct {
	Spec          service.CriteriaSpec    `json:"spec"`
	EvidenceUnits []criteria.EvidenceUnit `json:"evidence_units"`
}

// RecordOverrideParams defines parameters for the record_override tool
type RecordOverrideParams struct {
	ClinicianID      string          `json:"clinician_id"`
	PatientID        string          `json:"patient_id"`
	NodeID           string          `json:"node_id"`
	Status           criteria.Status `json:"status" jsonschema:"MET, EXCLUDED or UNKNOWN"`
	OriginalStatus   criteria.Status `json:"original_status,omitempty"`
	OriginalEvidence string          `json:"original_evidence,omitempty"`
	Note             string          `json:"note,omitempty"`
}

// RecordEvidenceFeedbackParams defines parameters for the record_evidence_feedback tool
type RecordEvidenceFeedbackParams struct {
	ClinicianID  string              `json:"clinician_id"`
	PatientID    string              `json:"patient_id"`
	EntryDateISO string              `json:"entry_date_iso"`
	Span         string              `json:"span"`
	Label        string              `json:"label"`
	FeedbackType review.FeedbackType `json:"feedback_type" jsonschema:"correct, wrong_label or wrong_polarity"`
}

// RecordResult acknowledges a stored review record
type RecordResult struct {
	ID          int64  `json:"id"`
	EvidenceKey string `json:"evidence_key,omitempty"`
	Rejected    bool   `json:"rejected,omitempty"`
}

func (s *Server) handleEvaluateCase(ctx context.Context, req *mcp.CallToolRequest, params service.EvaluateRequest) (*mcp.CallToolResult, service.EvaluateResponse, error) {
	params.Origin = service.OriginMCP

	resp, err := s.service.Evaluate(ctx, &params)
	if err != nil {
		return s.errorResult("evaluate_case", err), service.EvaluateResponse{}, nil
	}

	summary := fmt.Sprintf("Current window: %d symptoms; lifetime window max: %d; potential remission: %t",
		resp.Status.CurrentCount, resp.Status.LifetimeWindowMax, resp.Status.PotentialRemission)
	return textResult(summary, resp.Status), *resp, nil
}

func (s *Server) handleResolveStatus(ctx context.Context, req *mcp.CallToolRequest, params ResolveStatusParams) (*mcp.CallToolResult, ResolveStatusResult, error) {
	params.Case.Origin = service.OriginMCP

	status, err := s.service.ResolveStatus(ctx, &params.Case, params.Labels)
	if err != nil {
		return s.errorResult("resolve_status", err), ResolveStatusResult{}, nil
	}

	result := ResolveStatusResult{Labels: params.Labels, Status: status}
	return textResult(fmt.Sprintf("Status: %s", status), result), result, nil
}

func (s *Server) handleAppendComputedEvidence(ctx context.Context, req *mcp.CallToolRequest, params AppendComputedEvidenceParams) (*mcp.CallToolResult, AppendComputedEvidenceResult, error) {
	if err := service.ValidateEntries(params.Entries); err != nil {
		return s.errorResult("append_computed_evidence", err), AppendComputedEvidenceResult{}, nil
	}

	result := AppendComputedEvidenceResult{
		Entries:  criteria.AppendComputedEvidence(params.Entries),
		Computed: []ComputedEvidence{},
	}
	for _, unit := range criteria.ComputeDurationEvidence(params.Entries) {
		result.Computed = append(result.Computed, ComputedEvidence{DateISO: unit.DateISO, Unit: unit.Unit})
	}

	summary := "No persistent core-symptom pattern found"
	if len(result.Computed) > 0 {
		summary = fmt.Sprintf("Appended %d computed duration unit(s) to %s", len(result.Computed), result.Computed[0].DateISO)
	}
	return textResult(summary, result.Computed), result, nil
}

func (s *Server) handleMapCriteriaNode(ctx context.Context, req *mcp.CallToolRequest, params MapCriteriaNodeParams) (*mcp.CallToolResult, MapCriteriaNodeResult, error) {
	result := MapCriteriaNodeResult{Nodes: make([]NodeMapping, 0, len(params.NodeIDs))}
	for _, nodeID := range params.NodeIDs {
		labels := service.EvidenceLabelsForNode(nodeID)
		if labels == nil {
			labels = []string{}
		}
		result.Nodes = append(result.Nodes, NodeMapping{NodeID: nodeID, Labels: labels})
	}
	return textResult(fmt.Sprintf("Mapped %d node(s)", len(result.Nodes)), result), result, nil
}

func (s *Server) handleCriteriaCoverage(ctx context.Context, req *mcp.CallToolRequest, params CriteriaCoverageParams) (*mcp.CallToolResult, service.CriteriaCoverage, error) {
	coverage := service.EvaluateCriteria(params.Spec, params.EvidenceUnits)
	summary := fmt.Sprintf("%s: %d signal(s) matched, coverage %.2f", coverage.ID, len(coverage.MatchedSignals), coverage.Coverage)
	return textResult(summary, coverage), coverage, nil
}

func (s *Server) handleRecordOverride(ctx context.Context, req *mcp.CallToolRequest, params RecordOverrideParams) (*mcp.CallToolResult, RecordResult, error) {
	override := &review.Override{
		ClinicianID:      params.ClinicianID,
		PatientID:        params.PatientID,
		NodeID:           params.NodeID,
		Status:           params.Status,
		OriginalStatus:   params.OriginalStatus,
		OriginalEvidence: params.OriginalEvidence,
		Note:             params.Note,
	}
	if err := s.service.RecordOverride(ctx, override); err != nil {
		return s.errorResult("record_override", err), RecordResult{}, nil
	}
	result := RecordResult{ID: override.ID}
	return textResult(fmt.Sprintf("Override %s=%s recorded for patient %s", override.NodeID, override.Status, override.PatientID), result), result, nil
}

func (s *Server) handleRecordEvidenceFeedback(ctx context.Context, req *mcp.CallToolRequest, params RecordEvidenceFeedbackParams) (*mcp.CallToolResult, RecordResult, error) {
	feedback := &review.EvidenceFeedback{
		ClinicianID:  params.ClinicianID,
		PatientID:    params.PatientID,
		EntryDateISO: params.EntryDateISO,
		Span:         params.Span,
		Label:        params.Label,
		FeedbackType: params.FeedbackType,
	}
	if err := s.service.RecordEvidenceFeedback(ctx, feedback); err != nil {
		return s.errorResult("record_evidence_feedback", err), RecordResult{}, nil
	}
	result := RecordResult{
		ID:          feedback.ID,
		EvidenceKey: criteria.EvidenceKey(params.EntryDateISO, params.Span),
		Rejected:    params.FeedbackType.Rejects(),
	}
	return textResult(fmt.Sprintf("Feedback %s recorded for %s", params.FeedbackType, result.EvidenceKey), result), result, nil
}
