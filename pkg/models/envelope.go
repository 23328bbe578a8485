package models

// EnvelopeMeta is the trace metadata attached to every tool result.
type EnvelopeMeta struct {
	// Tool is the invoked tool name.
	Tool string `json:"tool"`

	// Ms is the elapsed wall time in milliseconds.
	Ms int64 `json:"ms"`

	// TraceID correlates the call across logs and audit events.
	TraceID string `json:"traceId"`

	// Ts is the completion time in RFC 3339.
	Ts string `json:"ts"`
}

// ToolResultEnvelope is the bounded result record of a single tool
// invocation. Exactly one envelope is produced per attempted tool call.
//
// OK is authoritative: Output is the raw tool return and may be non-nil even
// on failure; Error is a human-readable string.
type ToolResultEnvelope struct {
	// TraceID identifies this invocation.
	TraceID string `json:"traceId"`

	// Tool is the invoked tool name.
	Tool string `json:"tool"`

	// OK reports whether the invocation succeeded. Taken from the
	// result's "ok" field when present, true otherwise; false on error.
	OK bool `json:"ok"`

	// Error is the failure description, empty on success.
	Error string `json:"error,omitempty"`

	// Ms is the elapsed wall time in milliseconds, never negative.
	Ms int64 `json:"ms"`

	// Input is the argument bag the tool was invoked with.
	Input map[string]any `json:"input,omitempty"`

	// Output is the raw tool return.
	Output map[string]any `json:"output,omitempty"`

	// Meta duplicates trace details in the shape downstream consumers
	// (the console event stream) expect under "_meta".
	Meta *EnvelopeMeta `json:"_meta,omitempty"`
}

// StepOutput pairs a plan step with the envelope its execution produced.
type StepOutput struct {
	Step     Step               `json:"step"`
	Envelope ToolResultEnvelope `json:"envelope"`
}

// ExecutionResult is the outcome of running one plan.
// Success is the conjunction of every envelope's OK.
type ExecutionResult struct {
	Success bool         `json:"success"`
	Outputs []StepOutput `json:"outputs"`
}

// FailedExecution is the executor's failure default.
func FailedExecution() *ExecutionResult {
	return &ExecutionResult{Success: false, Outputs: []StepOutput{}}
}
