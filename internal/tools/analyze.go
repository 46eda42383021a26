package tools

import (
	"context"

	"github.com/cadlyhq/cadly/internal/dfm"
	"github.com/cadlyhq/cadly/internal/history"
	"github.com/cadlyhq/cadly/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// AnalyzeTool handles the dfm_analyze MCP tool. It runs the full rule
// engine against the active design and returns the violation report.
type AnalyzeTool struct {
	analyzer *dfm.Analyzer
	store    *history.Store // nil when history is disabled
}

// NewAnalyzeTool creates an AnalyzeTool. store may be nil.
func NewAnalyzeTool(analyzer *dfm.Analyzer, store *history.Store) *AnalyzeTool {
	return &AnalyzeTool{analyzer: analyzer, store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("dfm_analyze",
		mcp.WithDescription(
			"Analyze the active Fusion 360 design for manufacturability. "+
				"Checks wall thickness, hole sizes, internal corners, depth ratios, "+
				"overhangs and standard drill sizes against the rules for the chosen "+
				"process. Returns a JSON report with every violation found.",
		),
		mcp.WithString("process",
			mcp.Description("Manufacturing process to check against: fdm, sla, cnc, "+
				"injection_molding, or all (default all)."),
		),
	)
}

// Handle processes the dfm_analyze tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	if t.store != nil {
		// History is best effort; a full disk must not fail the analysis.
		_, _ = t.store.RecordAnalysis(history.AnalysisEntry{
			PartName:           report.PartName,
			Process:            report.Process,
			ViolationCount:     report.ViolationCount,
			CriticalCount:      report.CriticalCount,
			IsManufacturable:   report.IsManufacturable,
			RecommendedProcess: string(report.RecommendedProcess),
		})
	}

	return jsonResult(report)
}
