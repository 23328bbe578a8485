// Package executor runs validated plans step by step.
//
// Execution is strictly sequential and aborts on the first failed step.
// Every attempted step produces exactly one envelope; tool output is
// validated against the tool's declared output schema, and a failed
// validation or execution earns exactly one retry before the step is
// declared failed.
package executor

import (
	"context"

	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/internal/tools"
	"github.com/haasonsaas/vigil/pkg/models"
)

// ContentHook lets the host adjust outward message content per user just
// before a message.send step executes. Nil means no adjustment.
type ContentHook func(userID, content string) string

// Executor runs plans against the tool registry.
type Executor struct {
	registry    *tools.Registry
	logger      *observability.Logger
	contentHook ContentHook
}

// New creates an executor.
func New(registry *tools.Registry, logger *observability.Logger) *Executor {
	return &Executor{registry: registry, logger: logger}
}

// SetContentHook installs the per-user content hook. Call before serving.
func (e *Executor) SetContentHook(hook ContentHook) {
	e.contentHook = hook
}

// Execute runs every step of the plan in order. Success is the conjunction
// of every envelope's OK. The observation must be the sanitized copy; its
// fields are used to enrich step arguments.
func (e *Executor) Execute(ctx context.Context, plan *models.Plan, obs *models.Observation) *models.ExecutionResult {
	result := &models.ExecutionResult{Success: true, Outputs: []models.StepOutput{}}
	if plan.IsEmpty() {
		return result
	}

	for i, step := range plan.Steps {
		envelope := e.runStep(ctx, step, obs, result.Outputs)
		result.Outputs = append(result.Outputs, models.StepOutput{Step: step, Envelope: *envelope})

		if !envelope.OK {
			result.Success = false
			e.logger.Warn(ctx, "step failed, aborting plan",
				"step", i, "tool", step.Tool, "trace_id", envelope.TraceID, "error", envelope.Error)
			break
		}
	}
	return result
}

// runStep resolves, enriches, interpolates, and invokes one step, retrying
// once on failure.
func (e *Executor) runStep(ctx context.Context, step models.Step, obs *models.Observation, prior []models.StepOutput) *models.ToolResultEnvelope {
	tool, ok := e.registry.Get(step.Tool)
	if !ok {
		return failureEnvelope(step, "unknown tool: "+step.Tool)
	}
	if len(tool.OutputSchema()) == 0 {
		return failureEnvelope(step, tools.ErrNoOutputSchema.Error())
	}

	args := e.enrichArgs(step, obs)
	args = interpolateArgs(args, prior)

	if e.contentHook != nil && step.Tool == "message.send" && obs != nil {
		if content, ok := args["content"].(string); ok {
			args["content"] = e.contentHook(obs.AuthorID, content)
		}
	}

	envelope := e.invoke(ctx, tool, args)
	if envelope.OK {
		return envelope
	}

	e.logger.Info(ctx, "retrying failed step", "tool", step.Tool, "error", envelope.Error)
	return e.invoke(ctx, tool, args)
}

// invoke calls the tool through the registry and layers output schema
// validation on top. Schema violations flip OK off even when the tool
// itself reported success.
func (e *Executor) invoke(ctx context.Context, tool tools.Tool, args map[string]any) *models.ToolResultEnvelope {
	envelope := e.registry.Invoke(ctx, tool, args)
	if !envelope.OK {
		return envelope
	}
	if err := tools.ValidateOutput(tool, envelope.Output); err != nil {
		envelope.OK = false
		envelope.Error = err.Error()
	}
	return envelope
}

// enrichArgs copies the step's args and fills in the standard ambient
// fields from the observation. Planner-provided values always win.
func (e *Executor) enrichArgs(step models.Step, obs *models.Observation) map[string]any {
	args := make(map[string]any, len(step.Args)+5)
	for k, v := range step.Args {
		args[k] = v
	}
	if obs == nil {
		return args
	}

	setDefault := func(key string, value any) {
		if s, ok := value.(string); ok && s == "" {
			return
		}
		if _, present := args[key]; !present {
			args[key] = value
		}
	}
	setDefault("channelId", obs.ChannelID)
	setDefault("userId", obs.AuthorID)
	setDefault("username", obs.AuthorDisplayName)
	setDefault("guildId", obs.GuildID)
	setDefault("originalContent", obs.Content)
	return args
}

// failureEnvelope is the no-invocation failure record for steps that never
// reach a tool.
func failureEnvelope(step models.Step, reason string) *models.ToolResultEnvelope {
	return &models.ToolResultEnvelope{
		TraceID: tools.NewTraceID(),
		Tool:    step.Tool,
		OK:      false,
		Error:   reason,
		Input:   step.Args,
	}
}
