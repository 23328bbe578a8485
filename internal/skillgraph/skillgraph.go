// Package skillgraph tracks successful plan patterns, promotes them into
// stored skills, selects skills for replay, and decays stale ones.
//
// The graph is the pipeline's only learning loop. Candidates accumulate
// evidence locally (in memory, single process); promoted skills live in the
// memory service and survive restarts. All mutation goes through one mutex:
// the graph is a single-writer structure by design, matching the pipeline's
// one-observation-at-a-time execution model.
package skillgraph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/vigil/internal/config"
	"github.com/haasonsaas/vigil/internal/memory"
	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/pkg/models"
)

// historyLimit bounds the execution history ring.
const historyLimit = 1000

// replayRateFloor rejects skills whose recorded success rate has fallen
// below it, independent of the decay loop's demotions.
const replayRateFloor = 0.5

// Execution is one recorded plan execution.
type Execution struct {
	Intent  string    `json:"intent"`
	Pattern string    `json:"pattern"`
	Success bool      `json:"success"`
	At      time.Time `json:"at"`
}

// Graph is the in-process skill learning state.
type Graph struct {
	mu         sync.Mutex
	candidates map[string]*models.SkillCandidate
	history    []Execution

	client  *memory.Client
	cfg     config.SkillsConfig
	logger  *observability.Logger
	metrics *observability.Metrics
}

// New creates a skill graph.
func New(client *memory.Client, cfg config.SkillsConfig, logger *observability.Logger, metrics *observability.Metrics) *Graph {
	return &Graph{
		candidates: make(map[string]*models.SkillCandidate),
		client:     client,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
	}
}

// ContextHash digests an intent and its action sequence into a stable
// pattern key. Identical plans for identical intents always hash the same;
// argument order inside a step does not matter because arguments are
// JSON-encoded with sorted keys.
func ContextHash(intent string, actions []models.SkillAction) string {
	parts := make([]string, 0, len(actions))
	for _, action := range actions {
		encoded, err := json.Marshal(canonical(action.Input))
		if err != nil {
			encoded = []byte("{}")
		}
		parts = append(parts, action.Tool+":"+string(encoded))
	}
	sum := sha256.Sum256([]byte(intent + "::" + strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:16])
}

// canonical returns a shallow copy whose map keys marshal in sorted order.
// encoding/json already sorts map keys; the copy just normalizes nil.
func canonical(input map[string]any) map[string]any {
	if input == nil {
		return map[string]any{}
	}
	return input
}

// RecordExecution feeds one completed plan execution into the graph. A
// success extends the pattern's streak; any failure resets it to zero.
// Patterns that cross every promotion threshold are promoted immediately.
func (g *Graph) RecordExecution(ctx context.Context, intent string, plan *models.Plan, success bool) {
	if plan == nil || len(plan.Steps) == 0 || intent == "" {
		return
	}
	if g.blacklisted(intent) {
		return
	}

	actions := actionsFromPlan(plan)
	pattern := ContextHash(intent, actions)

	g.mu.Lock()
	g.history = append(g.history, Execution{Intent: intent, Pattern: pattern, Success: success, At: time.Now()})
	if len(g.history) > historyLimit {
		g.history = g.history[len(g.history)-historyLimit:]
	}

	cand, ok := g.candidates[pattern]
	if !ok {
		cand = &models.SkillCandidate{Intent: intent, Pattern: pattern, Actions: actions}
		g.candidates[pattern] = cand
	}
	cand.TotalExecutions++
	if success {
		cand.SuccessCount++
		cand.SuccessStreak++
	} else {
		cand.SuccessStreak = 0
	}

	promote := success &&
		cand.SuccessStreak >= g.cfg.MinStreak &&
		cand.SuccessRate() >= g.cfg.MinSuccessRate &&
		cand.TotalExecutions >= g.cfg.MinExecutions
	var snapshot models.SkillCandidate
	if promote {
		snapshot = *cand
	}
	g.mu.Unlock()

	if promote {
		g.promote(ctx, &snapshot)
	}
}

// promote pushes a qualified candidate to the skill store. The candidate is
// only forgotten locally once the store accepted it; a failed promotion
// keeps accumulating evidence and will retry on the next success.
func (g *Graph) promote(ctx context.Context, cand *models.SkillCandidate) {
	skill := &models.Skill{
		ID:        uuid.NewString(),
		Intent:    cand.Intent,
		Pattern:   cand.Pattern,
		Actions:   cand.Actions,
		CreatedAt: time.Now(),
		Metadata: map[string]any{
			"streak":     cand.SuccessStreak,
			"executions": cand.TotalExecutions,
			"rate":       cand.SuccessRate(),
		},
	}

	if err := g.client.SkillPromote(ctx, skill); err != nil {
		g.logger.Warn(ctx, "skill promotion failed",
			"intent", cand.Intent,
			"pattern", cand.Pattern,
			"streak", cand.SuccessStreak,
			"executions", cand.TotalExecutions,
			"rate", cand.SuccessRate(),
			"error", err)
		g.recordEvent("promotion_failed")
		return
	}

	g.mu.Lock()
	delete(g.candidates, cand.Pattern)
	g.mu.Unlock()

	g.logger.Info(ctx, "skill promoted", "skill_id", skill.ID, "intent", cand.Intent, "pattern", cand.Pattern)
	g.recordEvent("promoted")
}

// Match returns a stored skill usable for the given intent text, or nil.
// A skill is usable when it clears the similarity threshold, is neither
// archived nor demoted, keeps a success rate at or above the replay floor,
// has a non-empty action sequence, shares at least one token with the
// intent text, and is not blacklisted.
func (g *Graph) Match(ctx context.Context, intentText string) (*models.SkillMatch, error) {
	if g.blacklisted(intentText) {
		return nil, nil
	}

	matches, err := g.client.SkillSearch(ctx, intentText, 5)
	if err != nil {
		return nil, err
	}

	for i := range matches {
		match := &matches[i]
		if match.Similarity < g.cfg.SimilarityThreshold {
			continue
		}
		if match.Stats.Status == models.SkillArchived || match.Stats.Status == models.SkillDemoted {
			continue
		}
		if match.Stats.SuccessRate < replayRateFloor {
			continue
		}
		if len(match.Skill.Actions) == 0 {
			continue
		}
		if !tokenOverlap(intentText, match.Skill.Intent) {
			continue
		}
		if g.blacklisted(match.Skill.Intent) {
			continue
		}
		g.recordEvent("replayed")
		return match, nil
	}
	return nil, nil
}

// History returns a copy of the recorded executions, oldest first.
func (g *Graph) History() []Execution {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Execution, len(g.history))
	copy(out, g.history)
	return out
}

// CandidateCount reports how many unpromoted patterns are being tracked.
func (g *Graph) CandidateCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.candidates)
}

// blacklisted reports whether the text touches a blacklisted domain.
func (g *Graph) blacklisted(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range g.cfg.PatternBlacklist {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// tokenOverlap reports whether the two texts share at least one token of
// three or more characters.
func tokenOverlap(a, b string) bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(strings.ToLower(a)) {
		token = strings.Trim(token, ".,!?\"'")
		if len(token) >= 3 {
			set[token] = true
		}
	}
	for _, token := range strings.Fields(strings.ToLower(b)) {
		token = strings.Trim(token, ".,!?\"'")
		if len(token) >= 3 && set[token] {
			return true
		}
	}
	return false
}

// actionsFromPlan converts plan steps to skill actions, dropping the
// ambient fields the executor re-derives per observation so replays bind to
// the new observation, not the recorded one.
func actionsFromPlan(plan *models.Plan) []models.SkillAction {
	actions := make([]models.SkillAction, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		input := make(map[string]any, len(step.Args))
		keys := make([]string, 0, len(step.Args))
		for k := range step.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch k {
			case "channelId", "userId", "username", "guildId", "originalContent":
				continue
			}
			input[k] = step.Args[k]
		}
		actions = append(actions, models.SkillAction{Tool: step.Tool, Input: input})
	}
	return actions
}

// recordEvent counts a lifecycle event when metrics are wired.
func (g *Graph) recordEvent(event string) {
	if g.metrics != nil {
		g.metrics.RecordSkillEvent(event)
	}
}
