package models

import "time"

// SkillStatus is the lifecycle state of a persisted skill.
type SkillStatus string

const (
	SkillActive    SkillStatus = "active"
	SkillPreferred SkillStatus = "preferred"
	SkillDemoted   SkillStatus = "demoted"
	SkillArchived  SkillStatus = "archived"
)

// SkillAction is one recorded action within a skill's replayable sequence.
type SkillAction struct {
	// Tool is the tool name the action invokes.
	Tool string `json:"tool"`

	// Input is the argument bag recorded for the action.
	Input map[string]any `json:"input,omitempty"`
}

// Skill is a persisted, promoted action sequence addressable by similarity
// to a new intent.
type Skill struct {
	ID        string         `json:"id"`
	Intent    string         `json:"intent"`
	Pattern   string         `json:"pattern"`
	Actions   []SkillAction  `json:"actions"`
	Inputs    []string       `json:"inputs,omitempty"`
	Outputs   []string       `json:"outputs,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	LastUsed  time.Time      `json:"lastUsed,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SkillStats carries the store's bookkeeping for a skill.
type SkillStats struct {
	Status      SkillStatus `json:"status"`
	SuccessRate float64     `json:"successRate"`
	UseCount    int         `json:"useCount,omitempty"`
}

// SkillMatch is one similarity hit from a skill search.
type SkillMatch struct {
	Skill      Skill      `json:"skill"`
	Similarity float64    `json:"similarity"`
	Stats      SkillStats `json:"stats"`
}

// SkillCandidate is an unpromoted pattern tracked locally while it
// accumulates evidence toward the promotion thresholds.
type SkillCandidate struct {
	// Intent is the canonical intent the pattern serves.
	Intent string `json:"intent"`

	// Pattern is the context hash bucketing identical plan bodies
	// against identical intents.
	Pattern string `json:"pattern"`

	// Actions is the recorded action sequence.
	Actions []SkillAction `json:"actions"`

	// SuccessStreak counts consecutive successful executions; any
	// failure resets it to zero.
	SuccessStreak int `json:"successStreak"`

	// TotalExecutions counts every recorded execution.
	TotalExecutions int `json:"totalExecutions"`

	// SuccessCount counts successful executions.
	SuccessCount int `json:"successCount"`
}

// SuccessRate returns the candidate's observed success ratio.
func (c *SkillCandidate) SuccessRate() float64 {
	if c.TotalExecutions == 0 {
		return 0
	}
	return float64(c.SuccessCount) / float64(c.TotalExecutions)
}
