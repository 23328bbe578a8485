package models

// PlanSource identifies which planner path produced a plan.
type PlanSource string

const (
	// SourceLLM marks plans parsed from a language-model response.
	SourceLLM PlanSource = "llm"

	// SourceIntentMap marks plans built from the deterministic intent map.
	SourceIntentMap PlanSource = "intent-map"

	// SourceSkillGraph marks plans replayed from a stored skill.
	SourceSkillGraph PlanSource = "skill-graph"

	// SourceFallback marks the safe plan emitted when planning failed.
	SourceFallback PlanSource = "fallback"
)

// Step is one tool invocation within a plan.
type Step struct {
	// Tool is the registered tool name, e.g. "message.send".
	Tool string `json:"tool"`

	// Args is the argument bag passed to the tool. Values may contain
	// ${path} placeholders resolved by the executor.
	Args map[string]any `json:"args"`

	// Reason explains why the planner chose this step.
	Reason string `json:"reason,omitempty"`

	// Confidence is the planner's confidence in this step, when known.
	Confidence float64 `json:"confidence,omitempty"`
}

// Plan is an ordered sequence of steps together with the planner's
// reasoning. Plans must validate against the plan schema before the
// executor will run them.
type Plan struct {
	// Steps are executed strictly in order; step i+1 starts only after
	// step i has produced its envelope.
	Steps []Step `json:"steps"`

	// Reasoning is the planner's explanation for the plan as a whole.
	Reasoning string `json:"reasoning,omitempty"`

	// Confidence is the overall plan confidence, when known.
	Confidence float64 `json:"confidence,omitempty"`

	// Source identifies which planner path produced the plan.
	Source PlanSource `json:"source,omitempty"`
}

// IsEmpty reports whether the plan carries no steps.
func (p *Plan) IsEmpty() bool {
	return p == nil || len(p.Steps) == 0
}
