// Package tools implements the MCP tool handlers.
//
// Each tool follows the same pattern:
// - A struct with its dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Tools never return Go errors for domain failures — those become
// structured error results the client can read. A Go error from Handle
// means the request itself could not be served.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cadlyhq/cadly/internal/fusion"
	"github.com/cadlyhq/cadly/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// floatArg extracts a float argument from a tool request.
func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}

// parseProcess validates a process name from a tool argument.
func parseProcess(s string) (rules.Process, error) {
	for _, p := range rules.Processes {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown process %q (valid: fdm, sla, cnc, injection_molding)", s)
}

// jsonResult marshals v as an indented JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// cadError formats a failure talking to the CAD host. An unreachable
// add-in gets an actionable message instead of a bare connection error.
func cadError(err error) *mcp.CallToolResult {
	if errors.Is(err, fusion.ErrUnreachable) {
		return mcp.NewToolResultError(
			"Cannot reach the Fusion 360 add-in. Make sure Fusion 360 is running " +
				"with the DFM add-in started, then try again. (" + err.Error() + ")")
	}
	return mcp.NewToolResultError(err.Error())
}
