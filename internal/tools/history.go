package tools

import (
	"context"

	"github.com/cadlyhq/cadly/internal/history"
	"github.com/mark3labs/mcp-go/mcp"
)

// HistoryTool handles the dfm_history MCP tool.
type HistoryTool struct {
	store *history.Store
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(store *history.Store) *HistoryTool {
	return &HistoryTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("dfm_history",
		mcp.WithDescription(
			"Show recent DFM activity: past analysis runs and fix attempts, "+
				"newest first. Optionally filter analyses by part name.",
		),
		mcp.WithString("part_name",
			mcp.Description("Only show analyses of this part."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries per list (default 10)."),
		),
	)
}

// Handle processes the dfm_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	partName := req.GetString("part_name", "")
	limit := intArg(req, "limit", 10)

	analyses, err := t.store.RecentAnalyses(partName, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fixAttempts, err := t.store.RecentFixes(limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]any{
		"analyses": analyses,
		"fixes":    fixAttempts,
	})
}

// StatsTool handles the dfm_stats MCP tool.
type StatsTool struct {
	store *history.Store
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(store *history.Store) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("dfm_stats",
		mcp.WithDescription(
			"Aggregate DFM statistics: total analyses, total fixes, success "+
				"and rollback counts, and the parts analyzed so far.",
		),
	)
}

// Handle processes the dfm_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.store.Stats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(stats)
}
