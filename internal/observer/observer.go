// Package observer orchestrates the reasoning pipeline for one observation:
// retrieval, zone resolution, intent, planning, sanitization, gating,
// execution, reflection, and skill learning.
//
// Every stage is isolated: a stage failure is logged, counted, audited, and
// replaced by that stage's safe default so one bad stage never takes down
// the observation. Handle never panics and never returns an error.
package observer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/haasonsaas/vigil/internal/audit"
	"github.com/haasonsaas/vigil/internal/executor"
	"github.com/haasonsaas/vigil/internal/identity"
	"github.com/haasonsaas/vigil/internal/intent"
	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/internal/planner"
	"github.com/haasonsaas/vigil/internal/reflector"
	"github.com/haasonsaas/vigil/internal/retriever"
	"github.com/haasonsaas/vigil/internal/sanitize"
	"github.com/haasonsaas/vigil/internal/skillgraph"
	"github.com/haasonsaas/vigil/pkg/models"
)

// Observer wires the pipeline stages together.
type Observer struct {
	retriever *retriever.Retriever
	intents   *intent.Engine
	planner   *planner.Planner
	sanitizer *sanitize.Sanitizer
	executor  *executor.Executor
	reflector *reflector.Reflector
	skills    *skillgraph.Graph

	sink    audit.Sink
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Options carries the observer's stage dependencies. Retriever, Planner,
// Sanitizer, and Executor are required; the rest may be nil and their
// stages become no-ops.
type Options struct {
	Retriever *retriever.Retriever
	Intents   *intent.Engine
	Planner   *planner.Planner
	Sanitizer *sanitize.Sanitizer
	Executor  *executor.Executor
	Reflector *reflector.Reflector
	Skills    *skillgraph.Graph

	AuditSink audit.Sink
	Logger    *observability.Logger
	Metrics   *observability.Metrics
}

// New creates an observer. A nil Logger is replaced with a discarding one
// so the recovery paths can always log.
func New(opts Options) *Observer {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{Level: "error", Output: io.Discard})
	}
	return &Observer{
		retriever: opts.Retriever,
		intents:   opts.Intents,
		planner:   opts.Planner,
		sanitizer: opts.Sanitizer,
		executor:  opts.Executor,
		reflector: opts.Reflector,
		skills:    opts.Skills,
		sink:      opts.AuditSink,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// Outcome is the full record of one processed observation.
type Outcome struct {
	Observation *models.Observation
	Zone        identity.Zone
	Decision    *models.IntentDecision
	Plan        *models.Plan
	Result      *models.ExecutionResult
}

// Handle runs the pipeline for one observation. It never panics and never
// returns an error; the outcome records what happened.
func (o *Observer) Handle(ctx context.Context, obs *models.Observation) (outcome *Outcome) {
	outcome = &Outcome{Observation: obs}
	if obs == nil {
		return outcome
	}

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error(ctx, "pipeline panic recovered", "panic", fmt.Sprint(rec))
			if outcome.Result == nil {
				outcome.Result = models.FailedExecution()
			}
		}
	}()

	ctx = observability.WithObservation(ctx, obs.ID, obs.AuthorID, obs.ChannelID)
	audit.Emit(o.sink, audit.Event{
		Type:          audit.EventObservationReceived,
		ObservationID: obs.ID,
		Details:       map[string]any{"channelId": obs.ChannelID, "guildId": obs.GuildID},
	})

	// Retrieval. Failure default: empty context.
	memCtx := o.retrieve(ctx, obs)

	// Zone and identity are pure functions and cannot fail.
	zone := identity.ResolveZone(obs)
	outcome.Zone = zone
	profile := identity.BuildProfile(obs, memCtx.UserEntity)

	// Intent. Failure default: soft-gated fallback decision.
	decision := o.resolveIntent(ctx, obs, memCtx)
	outcome.Decision = decision

	// The executor and planner only ever see the sanitized observation;
	// the original is kept for reflection.
	cleanObs := o.sanitizer.SanitizeObservation(ctx, obs, zone, profile)

	// Planning. The planner is total, but a panic inside it still lands
	// in the fallback default.
	plan := o.buildPlan(ctx, cleanObs, memCtx, decision, zone, profile)

	// Observer-level sanitization catches every planner path, including
	// replayed skills that recorded a private alias.
	if o.sanitizer.SanitizePlan(ctx, plan, zone, profile) {
		audit.Emit(o.sink, audit.Event{
			Type:          audit.EventPlanSanitized,
			ObservationID: obs.ID,
			Details:       map[string]any{"source": string(plan.Source)},
		})
	}

	// Gating.
	gated := intent.ApplyGating(ctx, plan, decision, o.logger)
	if gated != plan {
		audit.Emit(o.sink, audit.Event{
			Type:          audit.EventPlanGated,
			ObservationID: obs.ID,
			Details:       map[string]any{"mode": string(decision.Gating)},
		})
	}
	plan = gated
	outcome.Plan = plan

	audit.Emit(o.sink, audit.Event{
		Type:          audit.EventPlanBuilt,
		ObservationID: obs.ID,
		Details: map[string]any{
			"source": string(plan.Source),
			"steps":  len(plan.Steps),
		},
	})

	// Execution.
	result := o.execute(ctx, plan, cleanObs)
	outcome.Result = result
	o.auditExecution(obs.ID, result)

	// Reflection and identity sync are fire-and-forget.
	o.reflect(ctx, obs, plan, result, profile)

	// Skill learning. Only intentful plans teach the graph; fallback and
	// empty plans carry no reusable pattern.
	o.learn(ctx, decision, plan, result)

	if o.metrics != nil {
		o.metrics.RecordObservation(string(zone), result.Success)
	}
	audit.Emit(o.sink, audit.Event{
		Type:          audit.EventPipelineCompleted,
		ObservationID: obs.ID,
		Details:       map[string]any{"success": result.Success},
	})
	return outcome
}

func (o *Observer) retrieve(ctx context.Context, obs *models.Observation) *models.Context {
	start := time.Now()
	memCtx := func() (c *models.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				o.stageFailed(ctx, "retriever", fmt.Sprint(rec))
				c = models.EmptyContext()
			}
		}()
		return o.retriever.Retrieve(ctx, obs)
	}()
	o.recordStage("retriever", start, false)
	if memCtx == nil {
		memCtx = models.EmptyContext()
	}
	return memCtx
}

func (o *Observer) resolveIntent(ctx context.Context, obs *models.Observation, memCtx *models.Context) *models.IntentDecision {
	if o.intents == nil {
		return models.FallbackIntent()
	}
	start := time.Now()
	decision := func() (d *models.IntentDecision) {
		defer func() {
			if rec := recover(); rec != nil {
				o.stageFailed(ctx, "intent", fmt.Sprint(rec))
				d = models.FallbackIntent()
			}
		}()
		return o.intents.Resolve(ctx, obs, memCtx)
	}()
	o.recordStage("intent", start, decision.Source == "fallback")
	return decision
}

func (o *Observer) buildPlan(ctx context.Context, obs *models.Observation, memCtx *models.Context, decision *models.IntentDecision, zone identity.Zone, profile *identity.Profile) *models.Plan {
	start := time.Now()
	plan := func() (p *models.Plan) {
		defer func() {
			if rec := recover(); rec != nil {
				o.stageFailed(ctx, "planner", fmt.Sprint(rec))
				p = &models.Plan{
					Steps:     []models.Step{},
					Reasoning: "LLM planning failed: planner panic",
					Source:    models.SourceFallback,
				}
			}
		}()
		return o.planner.Plan(ctx, obs, memCtx, decision, zone, profile)
	}()
	o.recordStage("planner", start, plan.Source == models.SourceFallback)
	return plan
}

func (o *Observer) execute(ctx context.Context, plan *models.Plan, obs *models.Observation) *models.ExecutionResult {
	start := time.Now()
	result := func() (r *models.ExecutionResult) {
		defer func() {
			if rec := recover(); rec != nil {
				o.stageFailed(ctx, "executor", fmt.Sprint(rec))
				r = models.FailedExecution()
			}
		}()
		return o.executor.Execute(ctx, plan, obs)
	}()
	o.recordStage("executor", start, !result.Success)
	return result
}

func (o *Observer) reflect(ctx context.Context, obs *models.Observation, plan *models.Plan, result *models.ExecutionResult, profile *identity.Profile) {
	if o.reflector == nil {
		return
	}
	start := time.Now()
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				o.stageFailed(ctx, "reflector", fmt.Sprint(rec))
			}
		}()
		o.reflector.Reflect(ctx, obs, plan, result)
	}()
	// Identity sync runs even when reflection itself blew up.
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				o.stageFailed(ctx, "reflector", fmt.Sprint(rec))
			}
		}()
		o.reflector.SyncIdentity(ctx, profile)
	}()
	o.recordStage("reflector", start, false)
}

func (o *Observer) learn(ctx context.Context, decision *models.IntentDecision, plan *models.Plan, result *models.ExecutionResult) {
	if o.skills == nil || decision == nil || decision.Intent == "" {
		return
	}
	if plan == nil || plan.Source == models.SourceFallback || plan.IsEmpty() {
		return
	}
	start := time.Now()
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				o.stageFailed(ctx, "skillgraph", fmt.Sprint(rec))
			}
		}()
		o.skills.RecordExecution(ctx, decision.Intent, plan, result.Success)
	}()
	o.recordStage("skillgraph", start, false)
}

func (o *Observer) recordStage(stage string, start time.Time, failed bool) {
	if o.metrics != nil {
		o.metrics.RecordStage(stage, time.Since(start).Seconds(), failed)
	}
}

func (o *Observer) stageFailed(ctx context.Context, stage, detail string) {
	o.logger.Error(ctx, "stage failed, using default", "stage", stage, "detail", detail)
	if o.metrics != nil {
		o.metrics.StageFailures.WithLabelValues(stage).Inc()
	}
	audit.Emit(o.sink, audit.Event{
		Type:  audit.EventStageFailed,
		Error: detail,
		Details: map[string]any{
			"stage": stage,
		},
	})
}

func (o *Observer) auditExecution(obsID string, result *models.ExecutionResult) {
	for _, out := range result.Outputs {
		event := audit.Event{
			Type:          audit.EventStepExecuted,
			ObservationID: obsID,
			Tool:          out.Envelope.Tool,
			TraceID:       out.Envelope.TraceID,
			Details:       map[string]any{"ok": out.Envelope.OK, "ms": out.Envelope.Ms},
		}
		if !out.Envelope.OK {
			event.Type = audit.EventStepAborted
			event.Error = out.Envelope.Error
		}
		audit.Emit(o.sink, event)
	}
}
