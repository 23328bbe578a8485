package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/haasonsaas/vigil/pkg/models"
)

// Sentinel errors callers branch on.
var (
	// ErrUnknownTool is returned when a plan references an unregistered
	// tool.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrNoOutputSchema is returned when a tool declares no output
	// schema. Such tools never execute.
	ErrNoOutputSchema = errors.New("tool declares no output schema")
)

// DefaultCallTimeout bounds a single tool invocation when the registry is
// constructed without an explicit timeout.
const DefaultCallTimeout = 30 * time.Second

// Registry manages available tools with thread-safe registration and
// lookup. The registry is read-only at steady state: wrapping happens once
// at init, lookups happen per plan step.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	sink    MetricsSink
	timeout time.Duration
}

// NewRegistry creates an empty registry. The sink may be nil; the timeout
// defaults to DefaultCallTimeout when non-positive.
func NewRegistry(sink MetricsSink, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Registry{
		tools:   make(map[string]Tool),
		sink:    sink,
		timeout: timeout,
	}
}

// Register adds a tool by its name, replacing any existing registration.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// All returns all registered tools.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		all = append(all, t)
	}
	return all
}

// Invoke runs a tool and wraps the outcome in a trace envelope. Exactly one
// envelope is produced per call; errors and panics never escape, they land
// in the envelope. The metrics sink is notified after every call.
//
// OK-ness is taken from the output's "ok" field when present, true
// otherwise; infrastructure errors force ok=false.
func (r *Registry) Invoke(ctx context.Context, tool Tool, args map[string]any) *models.ToolResultEnvelope {
	traceID := NewTraceID()
	start := time.Now()

	envelope := &models.ToolResultEnvelope{
		TraceID: traceID,
		Tool:    tool.Name(),
		Input:   args,
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	output, err := r.execute(callCtx, tool, args)

	elapsed := time.Since(start)
	envelope.Ms = elapsed.Milliseconds()
	if envelope.Ms < 0 {
		envelope.Ms = 0
	}

	switch {
	case err != nil:
		envelope.OK = false
		if errors.Is(err, context.DeadlineExceeded) {
			envelope.Error = "timeout"
		} else {
			envelope.Error = err.Error()
		}
		envelope.Output = output
	default:
		envelope.OK = outputOK(output)
		envelope.Output = output
		if !envelope.OK {
			envelope.Error = outputError(output)
		}
	}

	envelope.Meta = &models.EnvelopeMeta{
		Tool:    tool.Name(),
		Ms:      envelope.Ms,
		TraceID: traceID,
		Ts:      time.Now().UTC().Format(time.RFC3339),
	}
	if envelope.Output != nil {
		envelope.Output["_meta"] = envelope.Meta
	}

	if r.sink != nil {
		status := "success"
		if !envelope.OK {
			status = "error"
		}
		r.sink.RecordToolExecution(tool.Name(), status, elapsed.Seconds())
	}

	return envelope
}

// execute calls the tool, converting panics into errors so no invocation
// can take the pipeline down.
func (r *Registry) execute(ctx context.Context, tool Tool, args map[string]any) (output map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			output = nil
			err = fmt.Errorf("tool panic: %v", rec)
		}
	}()
	return tool.Execute(ctx, args)
}

// outputOK reads the authoritative "ok" field; absence means success.
func outputOK(output map[string]any) bool {
	if output == nil {
		return true
	}
	if ok, present := output["ok"].(bool); present {
		return ok
	}
	return true
}

// outputError extracts a human-readable failure string from a failed
// output.
func outputError(output map[string]any) string {
	if output == nil {
		return ""
	}
	if msg, ok := output["error"].(string); ok && msg != "" {
		return msg
	}
	return "tool reported failure"
}
