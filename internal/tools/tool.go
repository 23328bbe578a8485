// Package tools provides the tool registry and the trace envelope wrapped
// around every tool invocation.
//
// A tool is a named operation over a dynamic argument bag. Each tool
// declares an output schema; tools without one are rejected at execution
// time, deliberately: unknown output shapes are unsafe to hand downstream.
package tools

import (
	"context"
	"encoding/json"
)

// Tool is a named operation the executor can invoke.
type Tool interface {
	// Name returns the registered tool name, e.g. "message.send".
	Name() string

	// Description explains what the tool does, for capability listings
	// and LLM prompts.
	Description() string

	// InputSchema describes the accepted argument bag (JSON schema).
	InputSchema() json.RawMessage

	// OutputSchema describes the result shape (JSON schema). A nil or
	// empty schema makes the tool unexecutable.
	OutputSchema() json.RawMessage

	// Execute runs the tool. The returned map is the raw tool output;
	// an "ok" field of false marks a tool-level failure. A returned
	// error marks an infrastructure failure.
	Execute(ctx context.Context, args map[string]any) (map[string]any, error)
}

// MetricsSink receives a notification after every tool call.
// Implementations must be safe for concurrent fire-and-forget use.
type MetricsSink interface {
	RecordToolExecution(tool, status string, durationSeconds float64)
}
