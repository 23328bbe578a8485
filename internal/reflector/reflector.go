// Package reflector persists a post-execution summary of each observation
// and keeps the author's stored identity traits in sync.
//
// Reflection is strictly best-effort: every failure is logged and swallowed
// so a down memory service never affects the user-visible outcome.
package reflector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/vigil/internal/identity"
	"github.com/haasonsaas/vigil/internal/memory"
	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/pkg/models"
)

// Reflector writes reflections and identity updates to the memory service.
type Reflector struct {
	client *memory.Client
	logger *observability.Logger
}

// New creates a reflector.
func New(client *memory.Client, logger *observability.Logger) *Reflector {
	return &Reflector{client: client, logger: logger}
}

// Reflect persists a summary of one processed observation. The observation
// must be the original, unsanitized one so the stored record is faithful to
// what the user actually said.
func (r *Reflector) Reflect(ctx context.Context, obs *models.Observation, plan *models.Plan, result *models.ExecutionResult) {
	if obs == nil {
		return
	}

	scope, scopeID := resolveScope(obs)
	reflection := &memory.Reflection{
		Text:    summarize(obs, plan, result),
		Scope:   scope,
		ScopeID: scopeID,
		Meta: map[string]any{
			"type":          "system-reflection",
			"observationId": obs.ID,
			"authorId":      obs.AuthorID,
			"planSource":    planSource(plan),
			"success":       result != nil && result.Success,
			"ts":            time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := r.client.ReflectUpsert(ctx, reflection); err != nil {
		r.logger.Warn(ctx, "reflection upsert failed", "scope", scope, "scope_id", scopeID, "error", err)
	}
}

// SyncIdentity writes the profile's identity traits back to the author's
// entity. Trait upserts are idempotent server-side, so syncing after every
// observation is safe.
func (r *Reflector) SyncIdentity(ctx context.Context, profile *identity.Profile) {
	if profile == nil || profile.UserID == "" {
		return
	}

	traits := map[string]any{
		"identity": map[string]any{
			"publicAliases":        profile.PublicAliases,
			"privateAliases":       profile.PrivateAliases,
			"allowAutoIntimate":    profile.AllowAutoIntimate,
			"lastKnownDisplayName": profile.LastKnownDisplayName,
			"lastUpdated":          profile.LastUpdated.UTC().Format(time.RFC3339),
		},
	}

	entityID := "user:" + profile.UserID
	if err := r.client.UpsertUserEntity(ctx, entityID, traits); err != nil {
		r.logger.Warn(ctx, "identity sync failed", "entity_id", entityID, "error", err)
	}
}

// resolveScope picks the narrowest applicable scope: channel, then guild,
// then user, then system.
func resolveScope(obs *models.Observation) (string, string) {
	switch {
	case obs.ChannelID != "":
		return "channel", obs.ChannelID
	case obs.GuildID != "":
		return "guild", obs.GuildID
	case obs.AuthorID != "":
		return "user", obs.AuthorID
	default:
		return "system", "system"
	}
}

// summarize renders the human-readable reflection body.
func summarize(obs *models.Observation, plan *models.Plan, result *models.ExecutionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User %s said: %s\n", obs.AuthorID, obs.Content)

	if plan.IsEmpty() {
		b.WriteString("No action was taken.")
		return b.String()
	}

	tools := make([]string, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		tools = append(tools, step.Tool)
	}
	fmt.Fprintf(&b, "Plan (%s): %s.\n", planSource(plan), strings.Join(tools, " -> "))

	switch {
	case result == nil:
		b.WriteString("Outcome: not executed.")
	case result.Success:
		fmt.Fprintf(&b, "Outcome: all %d steps succeeded.", len(result.Outputs))
	default:
		failed := "unknown"
		for _, out := range result.Outputs {
			if !out.Envelope.OK {
				failed = fmt.Sprintf("%s (%s)", out.Envelope.Tool, out.Envelope.Error)
				break
			}
		}
		fmt.Fprintf(&b, "Outcome: failed at %s after %d envelopes.", failed, len(result.Outputs))
	}
	return b.String()
}

func planSource(plan *models.Plan) string {
	if plan == nil || plan.Source == "" {
		return "unknown"
	}
	return string(plan.Source)
}
