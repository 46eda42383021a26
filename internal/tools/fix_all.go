package tools

import (
	"context"
	"fmt"

	"github.com/cadlyhq/cadly/internal/dfm"
	"github.com/cadlyhq/cadly/internal/fixes"
	"github.com/cadlyhq/cadly/internal/history"
	"github.com/cadlyhq/cadly/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// FixAllTool handles the dfm_fix_all MCP tool. It analyzes the design and
// then fixes every fixable violation in dependency order: holes, then
// walls, then corners (filleting renumbers edges, so corners go last).
type FixAllTool struct {
	analyzer *dfm.Analyzer
	runner   *fixes.Runner
	store    *history.Store // nil when history is disabled
}

// NewFixAllTool creates a FixAllTool. store may be nil.
func NewFixAllTool(analyzer *dfm.Analyzer, runner *fixes.Runner, store *history.Store) *FixAllTool {
	return &FixAllTool{analyzer: analyzer, runner: runner, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *FixAllTool) Definition() mcp.Tool {
	return mcp.NewTool("dfm_fix_all",
		mcp.WithDescription(
			"Analyze the active design and automatically fix every fixable "+
				"violation for the chosen process. Fixes are applied holes first, "+
				"then walls, then corners, with geometry re-checked between corner "+
				"fixes. Returns the per-fix results.",
		),
		mcp.WithString("process",
			mcp.Description("Manufacturing process to fix for: fdm, sla, cnc, "+
				"injection_molding, or all (default all)."),
		),
	)
}

// fixAllResponse is the dfm_fix_all result payload.
type fixAllResponse struct {
	Process        string         `json:"process"`
	ViolationCount int            `json:"violation_count"`
	Attempted      int            `json:"attempted"`
	Succeeded      int            `json:"succeeded"`
	Results        []fixes.Result `json:"results"`
}

// Handle processes the dfm_fix_all tool call.
func (t *FixAllTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := req.GetString("process", rules.FilterAll)
	if filter != rules.FilterAll {
		if _, err := parseProcess(filter); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	report, err := t.analyzer.Analyze(ctx, filter)
	if err != nil {
		return cadError(err), nil
	}

	results, fixErr := t.runner.FixAll(ctx, report.Violations)

	resp := fixAllResponse{
		Process:        filter,
		ViolationCount: report.ViolationCount,
		Attempted:      len(results),
		Results:        results,
	}
	for _, r := range results {
		t.record(r)
		if r.Success {
			resp.Succeeded++
		}
	}

	if fixErr != nil {
		// The host went away mid-run. Report what completed alongside the error.
		return mcp.NewToolResultError(fmt.Sprintf(
			"fix run aborted after %d of %d fixes: %v",
			resp.Attempted, resp.ViolationCount, fixErr)), nil
	}
	return jsonResult(resp)
}

func (t *FixAllTool) record(r fixes.Result) {
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
