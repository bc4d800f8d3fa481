package tools

import (
	"context"

	"hermes/pkg/errors"
)

// Tool represents a callable capability exposed to the agent loop.
type Tool interface {
	// Name returns the unique tool identifier.
	Name() string
	// Description returns a short human-readable summary.
	Description() string
	// Parameters returns the JSON schema of the tool's arguments.
	Parameters() map[string]interface{}
	// Execute performs the tool's action using the provided arguments.
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// FunctionTool is a simple Tool implementation backed by a handler function.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]interface{}
	handler     HandlerFunc
}

// New creates a new function-backed Tool.
func New(name, description string, parameters map[string]interface{}, handler HandlerFunc) Tool {
	if parameters == nil {
		parameters = NoParams()
	}
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		handler:     handler,
	}
}

// Name returns the tool identifier.
func (t *FunctionTool) Name() string { return t.name }

// Description returns a human description of the tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the argument schema.
func (t *FunctionTool) Parameters() map[string]interface{} { return t.parameters }

// Execute runs the underlying handler.
func (t *FunctionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if t.handler == nil {
		return nil, errors.New("tool handler is not defined")
	}
	return t.handler(ctx, args)
}

// NoParams is the schema of a tool that takes no arguments.
func NoParams() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// StringArg extracts an optional string argument.
func StringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// IntArg extracts an optional integer argument, tolerating the float64
// values JSON decoding produces.
func IntArg(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// FloatArg extracts an optional numeric argument.
func FloatArg(args map[string]interface{}, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}
