package tools

import (
	"context"

	"github.com/cadlyhq/cadly/internal/fixes"
	"github.com/cadlyhq/cadly/internal/history"
	"github.com/cadlyhq/cadly/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// FixTool handles the dfm_fix MCP tool. It attempts to resolve one
// violation by mutating the design, then validates the mutation took.
type FixTool struct {
	runner *fixes.Runner
	store  *history.Store // nil when history is disabled
}

// NewFixTool creates a FixTool. store may be nil.
func NewFixTool(runner *fixes.Runner, store *history.Store) *FixTool {
	return &FixTool{runner: runner, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *FixTool) Definition() mcp.Tool {
	return mcp.NewTool("dfm_fix",
		mcp.WithDescription(
			"Attempt to automatically fix a single DFM violation reported by "+
				"dfm_analyze. Mutates the Fusion 360 design, waits for the change "+
				"to settle, re-checks the geometry, and rolls back if the fix did "+
				"not take effect. Pass the fields of the violation to fix.",
		),
		mcp.WithString("rule_id",
			mcp.Required(),
			mcp.Description("Rule ID from the violation (e.g. CNC-003)."),
		),
		mcp.WithString("feature_id",
			mcp.Required(),
			mcp.Description("Feature ID from the violation (e.g. hole_2, wall_0_5, edge_7)."),
		),
		mcp.WithNumber("current_value",
			mcp.Description("The violating measurement in mm, from the violation."),
		),
		mcp.WithNumber("required_value",
			mcp.Description("The target value in mm, from the violation."),
		),
	)
}

// Handle processes the dfm_fix tool call.
func (t *FixTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ruleID := req.GetString("rule_id", "")
	featureID := req.GetString("feature_id", "")
	if ruleID == "" || featureID == "" {
		return mcp.NewToolResultError("rule_id and feature_id are required"), nil
	}

	v := rules.Violation{
		RuleID:        ruleID,
		FeatureID:     featureID,
		CurrentValue:  floatArg(req, "current_value", 0),
		RequiredValue: floatArg(req, "required_value", 0),
		Fixable:       true,
	}

	result, err := t.runner.FixViolation(ctx, v)
	if err != nil {
		return cadError(err), nil
	}

	t.record(result)
	return jsonResult(result)
}

func (t *FixTool) record(r fixes.Result) {
	if t.store == nil {
		return
	}
	_, _ = t.store.RecordFix(history.FixEntry{
		RuleID:     r.RuleID,
		FeatureID:  r.FeatureID,
		Success:    r.Success,
		RolledBack: r.RolledBack,
		OldValue:   r.OldValue,
		NewValue:   r.NewValue,
		Message:    r.Message,
	})
}
