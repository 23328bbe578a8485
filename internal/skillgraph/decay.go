package skillgraph

import (
	"context"
	"time"

	"github.com/haasonsaas/vigil/pkg/models"
)

// RunDecay periodically re-evaluates stored skills until the context is
// cancelled. Intended to run in its own goroutine.
func (g *Graph) RunDecay(ctx context.Context) {
	interval := g.cfg.DecayInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.DecayPass(ctx)
		}
	}
}

// DecayPass walks the stored skills once and applies the lifecycle rules:
//
//   - success rate below the decay floor demotes the skill
//   - no use for the archive window archives it
//   - an active skill at or above the preferred rate becomes preferred
//
// Status patches are idempotent, so re-applying a state is harmless.
func (g *Graph) DecayPass(ctx context.Context) {
	skills, err := g.client.SkillList(ctx)
	if err != nil {
		g.logger.Warn(ctx, "skill list failed, skipping decay pass", "error", err)
		return
	}

	now := time.Now()
	for i := range skills {
		skill := &skills[i].Skill
		stats := skills[i].Stats

		switch {
		case stats.Status != models.SkillArchived && stats.SuccessRate < g.cfg.DecayFloor:
			g.patchStatus(ctx, skill.ID, models.SkillDemoted, "success rate below decay floor", "demoted")

		case stats.Status != models.SkillArchived && g.cfg.ArchiveAfter > 0 &&
			!skill.LastUsed.IsZero() && now.Sub(skill.LastUsed) > g.cfg.ArchiveAfter:
			g.patchStatus(ctx, skill.ID, models.SkillArchived, "unused past archive window", "archived")

		case stats.Status == models.SkillActive && stats.SuccessRate >= g.cfg.PreferredRate:
			g.patchStatus(ctx, skill.ID, models.SkillPreferred, "success rate above preferred threshold", "preferred")
		}
	}
}

func (g *Graph) patchStatus(ctx context.Context, skillID string, status models.SkillStatus, reason, event string) {
	if err := g.client.SkillStatusPatch(ctx, skillID, status, reason); err != nil {
		g.logger.Warn(ctx, "skill status patch failed", "skill_id", skillID, "status", status, "error", err)
		return
	}
	g.logger.Info(ctx, "skill status changed", "skill_id", skillID, "status", status, "reason", reason)
	g.recordEvent(event)
}
