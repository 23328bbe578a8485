package intent

import (
	"context"

	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/pkg/models"
)

// alwaysAllowed tools survive strict gating unconditionally: the pipeline
// must always be able to reply.
var alwaysAllowed = map[string]bool{
	"message.send": true,
}

// unavailableMessage is the safe reply when strict gating empties a plan.
const unavailableMessage = "That action isn't available in this context."

// ApplyGating enforces the decision's allowed-tool list on a plan.
//
//   - strict: steps outside the allowlist (plus message.send) are dropped;
//     an emptied plan is replaced with one safe informational reply.
//   - soft: every step survives, but out-of-allowlist tools are logged.
//   - none: the plan passes through untouched.
func ApplyGating(ctx context.Context, plan *models.Plan, decision *models.IntentDecision, logger *observability.Logger) *models.Plan {
	if plan == nil || decision == nil {
		return plan
	}

	switch decision.Gating {
	case models.GatingStrict:
		return applyStrict(ctx, plan, decision, logger)
	case models.GatingSoft:
		applySoft(ctx, plan, decision, logger)
		return plan
	default:
		return plan
	}
}

func applyStrict(ctx context.Context, plan *models.Plan, decision *models.IntentDecision, logger *observability.Logger) *models.Plan {
	allow := allowSet(decision.AllowedTools)

	kept := make([]models.Step, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		if allow[step.Tool] || alwaysAllowed[step.Tool] {
			kept = append(kept, step)
			continue
		}
		if logger != nil {
			logger.Warn(ctx, "strict gating dropped step", "tool", step.Tool, "intent", decision.Intent)
		}
	}

	if len(kept) == 0 {
		return &models.Plan{
			Steps: []models.Step{{
				Tool:   "message.send",
				Args:   map[string]any{"content": unavailableMessage},
				Reason: "strict gating removed every planned step",
			}},
			Reasoning: "plan replaced by gating: no planned tool was allowed",
			Source:    plan.Source,
		}
	}

	plan.Steps = kept
	return plan
}

func applySoft(ctx context.Context, plan *models.Plan, decision *models.IntentDecision, logger *observability.Logger) {
	if logger == nil {
		return
	}
	allow := allowSet(decision.AllowedTools)
	for _, step := range plan.Steps {
		if !allow[step.Tool] && !alwaysAllowed[step.Tool] {
			logger.Info(ctx, "soft gating: tool outside allowlist", "tool", step.Tool, "intent", decision.Intent)
		}
	}
}

func allowSet(tools []string) map[string]bool {
	set := make(map[string]bool, len(tools))
	for _, tool := range tools {
		set[tool] = true
	}
	return set
}
