// Package planner turns an observation plus its context and intent decision
// into an executable plan.
//
// Planning is a cascade of paths ordered cheapest-first: mock mode, the
// addressing filter, the deterministic intent map, direct shortcuts, stated
// identity preferences, skill replay, and finally the language model. Every
// path is total: the planner never returns an error, only a plan. When the
// language model fails for any reason the plan degrades to a safe apology
// with Source "fallback".
package planner

import (
	"context"
	"fmt"

	"github.com/haasonsaas/vigil/internal/identity"
	"github.com/haasonsaas/vigil/internal/llm"
	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/internal/sanitize"
	"github.com/haasonsaas/vigil/internal/tools"
	"github.com/haasonsaas/vigil/pkg/models"
)

// fallbackApology is the reply attached to a failed planning attempt.
const fallbackApology = "Sorry, I couldn't work out what to do there. Mind rephrasing?"

// clarificationReply is sent when the model returns a valid but empty plan.
const clarificationReply = "I'm not sure what you'd like me to do. Could you say a bit more?"

// Planner produces plans for observations.
type Planner struct {
	provider  llm.Provider
	registry  *tools.Registry
	sanitizer *sanitize.Sanitizer
	agentName string
	mockMode  bool
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// Options configures a Planner.
type Options struct {
	// Provider is the language model used by the final cascade path.
	Provider llm.Provider

	// Registry supplies the tool catalog for prompt composition.
	Registry *tools.Registry

	// Sanitizer rewrites model-produced replies for public zones.
	Sanitizer *sanitize.Sanitizer

	// AgentName is the word-bounded mention required in guild channels.
	AgentName string

	// MockMode short-circuits the cascade with a canned reply.
	MockMode bool

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// New creates a planner.
func New(opts Options) *Planner {
	return &Planner{
		provider:  opts.Provider,
		registry:  opts.Registry,
		sanitizer: opts.Sanitizer,
		agentName: opts.AgentName,
		mockMode:  opts.MockMode,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Plan runs the planning cascade. The observation must already be
// sanitized for the zone; the returned plan is ready for gating and
// execution. Plan never fails.
func (p *Planner) Plan(ctx context.Context, obs *models.Observation, memCtx *models.Context, decision *models.IntentDecision, zone identity.Zone, profile *identity.Profile) *models.Plan {
	plan := p.plan(ctx, obs, memCtx, decision, zone, profile)
	if p.metrics != nil {
		p.metrics.RecordPlanSource(string(plan.Source))
	}
	return plan
}

func (p *Planner) plan(ctx context.Context, obs *models.Observation, memCtx *models.Context, decision *models.IntentDecision, zone identity.Zone, profile *identity.Profile) *models.Plan {
	if p.mockMode {
		return p.mockPlan(profile)
	}

	if !p.addressed(obs) {
		return &models.Plan{
			Steps:     []models.Step{},
			Reasoning: "message not addressed to the assistant",
			Source:    models.SourceIntentMap,
		}
	}

	if decision != nil && decision.Source == "intent-map" {
		if plan := p.intentMapPlan(obs, decision); plan != nil {
			return plan
		}
	}

	if plan := p.shortcutPlan(obs); plan != nil {
		return plan
	}

	if plan := p.identityPreferencePlan(obs, zone); plan != nil {
		return plan
	}

	if decision != nil && decision.SkillMatch != nil {
		if plan := p.replayPlan(decision.SkillMatch); plan != nil {
			return plan
		}
	}

	return p.llmPlan(ctx, obs, memCtx, zone, profile)
}

// mockPlan is the deterministic dev-harness reply.
func (p *Planner) mockPlan(profile *identity.Profile) *models.Plan {
	name := "there"
	if profile != nil {
		name = profile.SafeName()
	}
	return &models.Plan{
		Steps: []models.Step{{
			Tool:   "message.send",
			Args:   map[string]any{"content": fmt.Sprintf("(mock) Hi %s! Planning is running in mock mode.", name)},
			Reason: "mock mode canned reply",
		}},
		Reasoning:  "mock mode",
		Confidence: 1,
		Source:     models.SourceLLM,
	}
}

// replayPlan converts a stored skill's actions into a plan. Skills with no
// actions are rejected so replay never produces an accidental no-op.
func (p *Planner) replayPlan(match *models.SkillMatch) *models.Plan {
	if match == nil || len(match.Skill.Actions) == 0 {
		return nil
	}
	steps := make([]models.Step, 0, len(match.Skill.Actions))
	for _, action := range match.Skill.Actions {
		args := make(map[string]any, len(action.Input))
		for k, v := range action.Input {
			args[k] = v
		}
		steps = append(steps, models.Step{
			Tool:   action.Tool,
			Args:   args,
			Reason: "replayed from skill " + match.Skill.ID,
		})
	}
	return &models.Plan{
		Steps:      steps,
		Reasoning:  fmt.Sprintf("replaying skill %s (similarity %.2f)", match.Skill.ID, match.Similarity),
		Confidence: match.Similarity,
		Source:     models.SourceSkillGraph,
	}
}

// llmPlan is the final cascade path: prompt, complete, parse, validate,
// sanitize. Any failure degrades to the fallback plan.
func (p *Planner) llmPlan(ctx context.Context, obs *models.Observation, memCtx *models.Context, zone identity.Zone, profile *identity.Profile) *models.Plan {
	if p.provider == nil {
		return p.fallbackPlan("no language model provider configured")
	}

	req := llm.Request{
		System: p.systemPrompt(zone, profile),
		Prompt: p.userPrompt(obs, memCtx),
	}

	resp, err := p.provider.Complete(ctx, req)
	if err != nil {
		p.logger.Warn(ctx, "llm completion failed", "provider", p.provider.Name(), "error", err)
		return p.fallbackPlan(err.Error())
	}

	plan, err := ParseCompletion(resp.Text)
	if err != nil {
		p.logger.Warn(ctx, "llm plan parse failed", "error", err)
		return p.fallbackPlan(err.Error())
	}

	if len(plan.Steps) == 0 {
		plan.Steps = []models.Step{{
			Tool:   "message.send",
			Args:   map[string]any{"content": clarificationReply},
			Reason: "model returned an empty plan",
		}}
	}

	plan.Source = models.SourceLLM

	if p.sanitizer != nil {
		p.sanitizer.SanitizePlan(ctx, plan, zone, profile)
	}
	return plan
}

// fallbackPlan is the terminal safe plan. Its reasoning always begins with
// "LLM planning failed" so downstream consumers can recognize degraded
// plans.
func (p *Planner) fallbackPlan(cause string) *models.Plan {
	return &models.Plan{
		Steps: []models.Step{{
			Tool:   "message.send",
			Args:   map[string]any{"content": fallbackApology},
			Reason: "planning fallback",
		}},
		Reasoning:  "LLM planning failed: " + cause,
		Confidence: 0.1,
		Source:     models.SourceFallback,
	}
}
