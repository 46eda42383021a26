// Package prompts implements the MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the dfm-review MCP prompt. It guides the AI through
// a full analyze → discuss → fix walkthrough of the active design.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("dfm-review",
		mcp.WithPromptDescription(
			"Run a guided design-for-manufacturing review of the active "+
				"Fusion 360 design: analyze, walk through every violation, "+
				"and fix what can be fixed automatically.",
		),
		mcp.WithArgument("process",
			mcp.ArgumentDescription(
				"Manufacturing process to review against: fdm, sla, cnc, "+
					"injection_molding, or all. Default: all",
			),
		),
		mcp.WithArgument("quantity",
			mcp.ArgumentDescription(
				"Planned production quantity, used for cost context. Default: 1",
			),
		),
	)
}

// Handle processes the dfm-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	process := "all"
	quantity := "1"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["process"]; ok && v != "" {
			process = v
		}
		if v, ok := args["quantity"]; ok && v != "" {
			quantity = v
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("DFM review for process: %s", process),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please run a design-for-manufacturing review of my current "+
						"Fusion 360 design for the '%s' process at quantity %s.\n\n"+
						"Work through it in this order:\n"+
						"1. Call `dfm_connection` to confirm the add-in is reachable\n"+
						"2. Call `dfm_analyze` with process='%s' and summarize the report: "+
						"how many violations, which are critical, is the part manufacturable\n"+
						"3. Walk me through each violation in severity order — explain in "+
						"plain terms what the problem is and what it would cost me in "+
						"production\n"+
						"4. For each fixable violation, ask me before calling `dfm_fix` "+
						"(or offer `dfm_fix_all` if there are many)\n"+
						"5. Call `dfm_estimate_costs` with quantity=%s and tell me which "+
						"process is cheapest at my volume\n"+
						"6. If another process looks better, call `dfm_simulate_switch` and "+
						"summarize the trade-offs before recommending anything\n\n"+
						"Keep the explanations concrete — reference the actual feature IDs "+
						"and measurements from the report.",
					process, quantity, process, quantity,
				)),
			},
		},
	}, nil
}
