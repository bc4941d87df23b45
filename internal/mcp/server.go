// Package mcp exposes the criteria engine to MCP clients over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/mindstorm-criteria-engine/internal/service"
)

// Server wraps the MCP SDK server and the evaluation service behind it.
type Server struct {
	config    domain.MCPConfig
	service   *service.CaseEvaluationService
	logger    *logrus.Logger
	mcpServer *mcp.Server
	toolNames []string
}

// NewServer creates an MCP server with every engine tool registered.
func NewServer(config domain.MCPConfig, svc *service.CaseEvaluationService, logger *logrus.Logger) *Server {
	s := &Server{
		config:  config,
		service: svc,
		logger:  logger,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    config.ServerName,
			Version: config.ServerVersion,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves MCP requests on stdin/stdout until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"server_name": s.config.ServerName,
		"version":     s.config.ServerVersion,
		"tools":       len(s.toolNames),
	}).Info("Starting MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// ToolNames lists the registered tools in registration order.
func (s *Server) ToolNames() []string {
	return append([]string(nil), s.toolNames...)
}

func (s *Server) registerTools() {
	addTool(s, &mcp.Tool{
		Name:        "evaluate_case",
		Description: "Evaluate dated journal entries: normalize evidence, append computed duration evidence, aggregate the current and lifetime windows and report potential remission.",
	}, s.handleEvaluateCase)

	addTool(s, &mcp.Tool{
		Name:        "resolve_status",
		Description: "Resolve a criteria node (given as evidence labels) to MET, EXCLUDED or UNKNOWN against a case.",
	}, s.handleResolveStatus)

	addTool(s, &mcp.Tool{
		Name:        "append_computed_evidence",
		Description: "Return the entries with computed duration evidence (DURATION_COMPUTED_2W, DURATION_COMPUTED_1_MONTH) appended when a persistent core-symptom pattern exists.",
	}, s.handleAppendComputedEvidence)

	addTool(s, &mcp.Tool{
		Name:        "map_criteria_node",
		Description: "Map criteria graph node ids to the evidence labels that decide them.",
	}, s.handleMapCriteriaNode)

	addTool(s, &mcp.Tool{
		Name:        "criteria_coverage",
		Description: "Score a criterion's signal labels against a list of evidence units.",
	}, s.handleCriteriaCoverage)

	addTool(s, &mcp.Tool{
		Name:        "record_override",
		Description: "Store a clinician's manual status for a criteria node of a patient.",
	}, s.handleRecordOverride)

	addTool(s, &mcp.Tool{
		Name:        "record_evidence_feedback",
		Description: "Store a clinician's verdict on an evidence span. Anything other than 'correct' excludes the span from later evaluations.",
	}, s.handleRecordEvidenceFeedback)
}

func addTool[In, Out any](s *Server, tool *mcp.Tool, handler mcp.ToolHandlerFor[In, Out]) {
	mcp.AddTool(s.mcpServer, tool, handler)
	s.toolNames = append(s.toolNames, tool.Name)
	s.logger.WithField("tool_name", tool.Name).Debug("Registered MCP tool")
}

// textResult renders a one-line summary plus the JSON payload for clients that ignore
// structured content.
func textResult(summary string, payload interface{}) *mcp.CallToolResult {
	content := []mcp.Content{&mcp.TextContent{Text: summary}}
	if data, err := json.MarshalIndent(payload, "", "  "); err == nil {
		content = append(content, &mcp.TextContent{Text: string(data)})
	}
	return &mcp.CallToolResult{Content: content}
}

// errorResult reports a tool failure to the client without failing the protocol call.
func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	s.logger.WithError(err).WithField("tool", tool).Warn("Tool call failed")
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%s failed: %v", tool, err)}},
	}
}
