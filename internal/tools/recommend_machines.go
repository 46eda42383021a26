package tools

import (
	"context"

	"github.com/cadlyhq/cadly/internal/catalog"
	"github.com/cadlyhq/cadly/internal/dfm"
	"github.com/mark3labs/mcp-go/mcp"
)

// RecommendMachinesTool handles the dfm_recommend_machines MCP tool. It
// ranks catalog machines for a process against the current part's size.
type RecommendMachinesTool struct {
	src      dfm.Source
	machines *catalog.MachineDB
}

// NewRecommendMachinesTool creates a RecommendMachinesTool.
func NewRecommendMachinesTool(src dfm.Source, machines *catalog.MachineDB) *RecommendMachinesTool {
	return &RecommendMachinesTool{src: src, machines: machines}
}

// Definition returns the MCP tool definition for registration.
func (t *RecommendMachinesTool) Definition() mcp.Tool {
	return mcp.NewTool("dfm_recommend_machines",
		mcp.WithDescription(
			"Recommend machines for manufacturing the current part with a given "+
				"process. Machines that physically fit the part always rank above "+
				"ones that do not; within each group they are scored by the "+
				"speed/precision/cost priority weights.",
		),
		mcp.WithString("process",
			mcp.Required(),
			mcp.Description("Process to recommend machines for: fdm, sla, cnc, or injection_molding."),
		),
		mcp.WithNumber("speed_priority",
			mcp.Description("Weight for machine speed, 0-1 (default 0.3)."),
		),
		mcp.WithNumber("precision_priority",
			mcp.Description("Weight for machine precision, 0-1 (default 0.4)."),
		),
		mcp.WithNumber("cost_priority",
			mcp.Description("Weight for machine cost, 0-1 (default 0.3)."),
		),
	)
}

// Handle processes the dfm_recommend_machines tool call.
func (t *RecommendMachinesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	process, err := parseProcess(req.GetString("process", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pri := catalog.Priorities{
		Speed:     floatArg(req, "speed_priority", catalog.DefaultPriorities.Speed),
		Precision: floatArg(req, "precision_priority", catalog.DefaultPriorities.Precision),
		Cost:      floatArg(req, "cost_priority", catalog.DefaultPriorities.Cost),
	}

	snap, err := t.src.Snapshot(ctx)
	if err != nil {
		return cadError(err), nil
	}

	matches := t.machines.MatchMachines(process, snap.BoundingBoxMM, pri)
	if len(matches) == 0 {
		return mcp.NewToolResultError("no machines in the catalog support process " + string(process)), nil
	}

	return jsonResult(map[string]any{
		"part_name":       snap.PartName,
		"process":         process,
		"bounding_box_mm": snap.BoundingBoxMM,
		"priorities":      pri,
		"matches":         matches,
	})
}
