package tools

import (
	"context"

	"github.com/cadlyhq/cadly/internal/costs"
	"github.com/cadlyhq/cadly/internal/dfm"
	"github.com/mark3labs/mcp-go/mcp"
)

// EstimateCostsTool handles the dfm_estimate_costs MCP tool. It prices the
// current part across every supported process at a given quantity.
type EstimateCostsTool struct {
	src       dfm.Source
	estimator *costs.Estimator
}

// NewEstimateCostsTool creates an EstimateCostsTool.
func NewEstimateCostsTool(src dfm.Source, estimator *costs.Estimator) *EstimateCostsTool {
	return &EstimateCostsTool{src: src, estimator: estimator}
}

// Definition returns the MCP tool definition for registration.
func (t *EstimateCostsTool) Definition() mcp.Tool {
	return mcp.NewTool("dfm_estimate_costs",
		mcp.WithDescription(
			"Estimate manufacturing cost for the current part across FDM, SLA, "+
				"CNC, and injection molding at the given quantity. Includes per-unit "+
				"cost, the cheapest process, and the quantities where one process "+
				"becomes cheaper than another.",
		),
		mcp.WithNumber("quantity",
			mcp.Description("Production quantity (default 1)."),
		),
	)
}

// costsResponse is the dfm_estimate_costs result payload.
type costsResponse struct {
	PartName   string            `json:"part_name"`
	Quantity   int               `json:"quantity"`
	Estimates  []costs.Estimate  `json:"estimates"`
	Cheapest   string            `json:"cheapest_process,omitempty"`
	Crossovers []costs.Crossover `json:"crossovers,omitempty"`
}

// Handle processes the dfm_estimate_costs tool call.
func (t *EstimateCostsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	quantity := intArg(req, "quantity", 1)

	snap, err := t.src.Snapshot(ctx)
	if err != nil {
		return cadError(err), nil
	}

	part := costs.PartFromSnapshot(snap)
	estimates := t.estimator.EstimateAll(part, quantity)

	resp := costsResponse{
		PartName:   snap.PartName,
		Quantity:   quantity,
		Estimates:  estimates,
		Crossovers: t.estimator.Crossovers(part),
	}
	if cheapest, ok := costs.Cheapest(estimates); ok {
		resp.Cheapest = string(cheapest.Process)
	}
	return jsonResult(resp)
}
