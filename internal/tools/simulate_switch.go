package tools

import (
	"context"
	"errors"

	"github.com/cadlyhq/cadly/internal/fusion"
	"github.com/cadlyhq/cadly/internal/simulate"
	"github.com/mark3labs/mcp-go/mcp"
)

// SimulateSwitchTool handles the dfm_simulate_switch MCP tool. It evaluates
// the current design under two process rule sets without touching it.
type SimulateSwitchTool struct {
	switcher *simulate.Switcher
}

// NewSimulateSwitchTool creates a SimulateSwitchTool.
func NewSimulateSwitchTool(switcher *simulate.Switcher) *SimulateSwitchTool {
	return &SimulateSwitchTool{switcher: switcher}
}

// Definition returns the MCP tool definition for registration.
func (t *SimulateSwitchTool) Definition() mcp.Tool {
	return mcp.NewTool("dfm_simulate_switch",
		mcp.WithDescription(
			"Simulate switching the current part to a different manufacturing "+
				"process. Nothing in the design is modified: the same geometry is "+
				"evaluated under both rule sets and the result lists violations "+
				"that would be resolved, introduced, or persist, the cost delta at "+
				"the given quantity, redesign steps for new violations, and a "+
				"recommendation verdict.",
		),
		mcp.WithString("from_process",
			mcp.Required(),
			mcp.Description("Current process: fdm, sla, cnc, or injection_molding."),
		),
		mcp.WithString("to_process",
			mcp.Required(),
			mcp.Description("Target process: fdm, sla, cnc, or injection_molding."),
		),
		mcp.WithNumber("quantity",
			mcp.Description("Production quantity for the cost comparison (default 1)."),
		),
	)
}

// Handle processes the dfm_simulate_switch tool call.
func (t *SimulateSwitchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := parseProcess(req.GetString("from_process", ""))
	if err != nil {
		return mcp.NewToolResultError("from_process: " + err.Error()), nil
	}
	to, err := parseProcess(req.GetString("to_process", ""))
	if err != nil {
		return mcp.NewToolResultError("to_process: " + err.Error()), nil
	}
	quantity := intArg(req, "quantity", 1)

	result, err := t.switcher.Simulate(ctx, from, to, quantity)
	if err != nil {
		if errors.Is(err, fusion.ErrUnreachable) {
			return cadError(err), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}
