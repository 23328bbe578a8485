package models

import "time"

// GatingMode controls how the allowed-tool list is enforced on a plan.
type GatingMode string

const (
	// GatingStrict drops any step whose tool is outside the allowlist
	// (message.send is always permitted). An emptied plan is replaced
	// with a single safe informational reply.
	GatingStrict GatingMode = "strict"

	// GatingSoft keeps every step but logs tools outside the allowlist.
	GatingSoft GatingMode = "soft"

	// GatingNone applies no filtering.
	GatingNone GatingMode = "none"
)

// IntentDecision is the intent engine's verdict for one observation.
type IntentDecision struct {
	// Source names the signal path that produced the decision
	// ("intent-map", "skill-graph", "nlp", "fallback").
	Source string `json:"source"`

	// Intent is the resolved canonical intent, empty when unresolved.
	Intent string `json:"intent,omitempty"`

	// Confidence is in [0,1].
	Confidence float64 `json:"confidence"`

	// Gating is the enforcement mode for AllowedTools.
	Gating GatingMode `json:"gating"`

	// AllowedTools is the allowlist applied under strict/soft gating.
	AllowedTools []string `json:"allowedTools"`

	// Meta carries decision-specific details for the audit trail.
	Meta map[string]any `json:"meta,omitempty"`

	// ContributingSignals lists the signals that fed the decision.
	ContributingSignals []string `json:"contributingSignals,omitempty"`

	// ResolvedAt is when the decision was made.
	ResolvedAt time.Time `json:"resolvedAt"`

	// SkillMatch is the usable skill match, when the skill graph found one.
	SkillMatch *SkillMatch `json:"skillMatch,omitempty"`
}

// FallbackIntent is the safe default used when intent resolution fails.
func FallbackIntent() *IntentDecision {
	return &IntentDecision{
		Source:       "fallback",
		Confidence:   0.5,
		Gating:       GatingSoft,
		AllowedTools: []string{},
		ResolvedAt:   time.Now(),
	}
}
