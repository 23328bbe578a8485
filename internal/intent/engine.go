package intent

import (
	"context"
	"strings"
	"time"

	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/pkg/models"
)

// SkillMatcher reports a usable stored skill for an intent text, or nil.
type SkillMatcher interface {
	Match(ctx context.Context, intentText string) (*models.SkillMatch, error)
}

// Engine produces IntentDecisions by combining the deterministic intent
// map, the skill graph, and fallback NLP signals.
type Engine struct {
	skills SkillMatcher
	logger *observability.Logger
}

// NewEngine creates an intent engine. The skill matcher may be nil.
func NewEngine(skills SkillMatcher, logger *observability.Logger) *Engine {
	return &Engine{skills: skills, logger: logger}
}

// Resolve decides intent, confidence, and gating for one observation.
// It never fails: unresolvable inputs produce a soft-gated NLP decision
// that routes to the language-model planner.
func (e *Engine) Resolve(ctx context.Context, obs *models.Observation, _ *models.Context) *models.IntentDecision {
	decision := &models.IntentDecision{
		Source:       "nlp",
		Confidence:   0.5,
		Gating:       models.GatingSoft,
		AllowedTools: []string{},
		ResolvedAt:   time.Now(),
	}

	if tool, ok := LookupTool(obs.Content); ok {
		decision.Source = "intent-map"
		decision.Intent = tool
		decision.Confidence = 0.9
		decision.Gating = models.GatingStrict
		decision.AllowedTools = []string{tool}
		decision.ContributingSignals = append(decision.ContributingSignals, "intent-map")
		return decision
	}

	if e.skills != nil {
		match, err := e.skills.Match(ctx, obs.Content)
		if err != nil {
			e.logger.Warn(ctx, "skill match failed", "error", err)
		} else if match != nil {
			decision.Source = "skill-graph"
			decision.Intent = match.Skill.Intent
			decision.Confidence = match.Similarity
			decision.Gating = models.GatingSoft
			decision.SkillMatch = match
			decision.ContributingSignals = append(decision.ContributingSignals, "skill-graph")
			for _, action := range match.Skill.Actions {
				decision.AllowedTools = append(decision.AllowedTools, action.Tool)
			}
			return decision
		}
	}

	// Weak NLP signals only bias confidence; they never gate.
	lower := strings.ToLower(obs.Content)
	if strings.Contains(lower, "?") {
		decision.Confidence = 0.6
		decision.ContributingSignals = append(decision.ContributingSignals, "question")
	}
	return decision
}
