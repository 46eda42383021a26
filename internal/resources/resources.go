// Package resources implements the MCP resource handlers.
//
// Resources provide read-only reference data that the host can consume for
// context: the rule table, process profiles, and the standard drill chart.
// They use URI-based addressing (dfm://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cadlyhq/cadly/internal/rules"
	"github.com/cadlyhq/cadly/internal/simulate"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler serves the static DFM reference resources.
type Handler struct {
	registry *rules.Registry
}

// NewHandler creates a resource Handler over the loaded rule registry.
func NewHandler(registry *rules.Registry) *Handler {
	return &Handler{registry: registry}
}

// RulesResource returns the MCP resource definition for the rule table.
func (h *Handler) RulesResource() mcp.Resource {
	return mcp.NewResource(
		"dfm://rules",
		"DFM Rules",
		mcp.WithResourceDescription("Every manufacturing rule the analyzer checks: "+
			"thresholds, severities, processes, and whether each is auto-fixable"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRules returns the full rule table as JSON.
func (h *Handler) HandleRules(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, h.registry.Rules())
}

// ProcessesResource returns the MCP resource definition for process profiles.
func (h *Handler) ProcessesResource() mcp.Resource {
	return mcp.NewResource(
		"dfm://processes",
		"Manufacturing Process Profiles",
		mcp.WithResourceDescription("Strengths, weaknesses, tolerances and typical "+
			"use of FDM, SLA, CNC and injection molding"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleProcesses returns the static process comparison table as JSON.
func (h *Handler) HandleProcesses(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, simulate.AllInfos())
}

// DrillsResource returns the MCP resource definition for standard drills.
func (h *Handler) DrillsResource() mcp.Resource {
	return mcp.NewResource(
		"dfm://standard-drills",
		"Standard Drill Sizes",
		mcp.WithResourceDescription("Standard metric drill diameters in mm; holes "+
			"off this chart need custom tooling on CNC"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleDrills returns the standard drill chart as JSON.
func (h *Handler) HandleDrills(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, map[string]any{
		"unit":         "mm",
		"diameters_mm": h.registry.StandardSizes(),
	})
}

// jsonContents marshals v as the single JSON content of a resource read.
func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
