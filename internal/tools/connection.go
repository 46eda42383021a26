package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// HealthChecker reports whether the CAD host add-in answers.
// *fusion.Client satisfies it.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// ConnectionTool handles the dfm_connection MCP tool.
type ConnectionTool struct {
	cad     HealthChecker
	baseURL string
}

// NewConnectionTool creates a ConnectionTool.
func NewConnectionTool(cad HealthChecker, baseURL string) *ConnectionTool {
	return &ConnectionTool{cad: cad, baseURL: baseURL}
}

// Definition returns the MCP tool definition for registration.
func (t *ConnectionTool) Definition() mcp.Tool {
	return mcp.NewTool("dfm_connection",
		mcp.WithDescription(
			"Check the connection to the Fusion 360 DFM add-in. Use this first "+
				"when other tools report the add-in as unreachable.",
		),
	)
}

// Handle processes the dfm_connection tool call.
func (t *ConnectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.cad.Healthy(ctx) {
		return jsonResult(map[string]any{
			"connected": true,
			"url":       t.baseURL,
			"message":   "Fusion 360 add-in is reachable.",
		})
	}
	return jsonResult(map[string]any{
		"connected": false,
		"url":       t.baseURL,
		"message": fmt.Sprintf(
			"Cannot reach the Fusion 360 add-in at %s. Start Fusion 360 and "+
				"run the DFM add-in, then retry.", t.baseURL),
	})
}
