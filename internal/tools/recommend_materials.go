package tools

import (
	"context"
	"fmt"

	"github.com/cadlyhq/cadly/internal/catalog"
	"github.com/mark3labs/mcp-go/mcp"
)

// RecommendMaterialsTool handles the dfm_recommend_materials MCP tool.
type RecommendMaterialsTool struct {
	materials *catalog.MaterialDB
}

// NewRecommendMaterialsTool creates a RecommendMaterialsTool.
func NewRecommendMaterialsTool(materials *catalog.MaterialDB) *RecommendMaterialsTool {
	return &RecommendMaterialsTool{materials: materials}
}

// Definition returns the MCP tool definition for registration.
func (t *RecommendMaterialsTool) Definition() mcp.Tool {
	return mcp.NewTool("dfm_recommend_materials",
		mcp.WithDescription(
			"Recommend materials for a manufacturing process, ranked by weighted "+
				"property scores (strength, heat resistance, flexibility, cost, "+
				"machinability). Optional hard filters drop materials below a "+
				"minimum tensile strength or above a cost ceiling.",
		),
		mcp.WithString("process",
			mcp.Required(),
			mcp.Description("Process to recommend materials for: fdm, sla, cnc, or injection_molding."),
		),
		mcp.WithNumber("min_tensile_mpa",
			mcp.Description("Drop materials with tensile strength below this (MPa)."),
		),
		mcp.WithNumber("max_cost_per_kg",
			mcp.Description("Drop materials costing more than this per kg (USD)."),
		),
		mcp.WithNumber("strength_weight",
			mcp.Description("Scoring weight for strength (default 0.25)."),
		),
		mcp.WithNumber("cost_weight",
			mcp.Description("Scoring weight for low cost (default 0.25)."),
		),
	)
}

// Handle processes the dfm_recommend_materials tool call.
func (t *RecommendMaterialsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	process, err := parseProcess(req.GetString("process", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	weights := catalog.Requirements{}
	for axis, def := range catalog.DefaultRequirements {
		weights[axis] = def
	}
	if w := floatArg(req, "strength_weight", -1); w >= 0 {
		weights["strength"] = w
	}
	if w := floatArg(req, "cost_weight", -1); w >= 0 {
		weights["cost"] = w
	}

	minTensile := floatArg(req, "min_tensile_mpa", 0)
	maxCost := floatArg(req, "max_cost_per_kg", 0)

	matches := t.materials.MatchMaterials(process, weights)

	filtered := matches[:0]
	for _, m := range matches {
		props := m.Material.Properties
		if minTensile > 0 && props.TensileStrengthMPa < minTensile {
			continue
		}
		if maxCost > 0 && props.CostPerKgUSD > maxCost {
			continue
		}
		filtered = append(filtered, m)
	}

	if len(filtered) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf(
			"no materials for process %s match the filters", process)), nil
	}

	return jsonResult(map[string]any{
		"process": process,
		"matches": filtered,
	})
}
