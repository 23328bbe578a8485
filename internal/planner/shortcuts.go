package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/haasonsaas/vigil/internal/identity"
	"github.com/haasonsaas/vigil/pkg/models"
)

// recallPattern routes memory questions straight to memory.query.
var recallPattern = regexp.MustCompile(`(?i)\b(what did (we|you|i)|do you remember|who (likes|said|mentioned)|recall|what have we)\b`)

// recentPattern captures a quantified look-back window such as
// "5 minutes ago" or "2 hours ago".
var recentPattern = regexp.MustCompile(`(?i)\b(\d{1,4})\s*(minutes?|mins?|hours?|hrs?)\s+ago\b`)

// reflectionPattern routes questions about what the assistant has learned
// to the stored reflections.
var reflectionPattern = regexp.MustCompile(`(?i)\b(what have you (learned|noticed)|reflect on (our|my|this|that)|your reflections?)\b`)

// preferencePatterns capture a stated addressing preference. The first
// capture group is the requested name.
var preferencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcall me ([\p{L}\p{N} _'-]{1,64})`),
	regexp.MustCompile(`(?i)\bmy name is ([\p{L}\p{N} _'-]{1,64})`),
	regexp.MustCompile(`(?i)\bi go by ([\p{L}\p{N} _'-]{1,64})`),
}

// addressed reports whether the observation is directed at the assistant.
// Direct messages always are; guild messages must mention the agent name
// with word boundaries so "vi" inside "evil" does not count.
func (p *Planner) addressed(obs *models.Observation) bool {
	if obs.IsDirectMessage() {
		return true
	}
	if p.agentName == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(p.agentName) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(obs.Content)
}

// intentMapPlan builds the deterministic plan for intent-map decisions whose
// arguments are fully derivable from the observation. Intents that need
// argument extraction (reminders) return nil and fall through to the model,
// still under strict gating.
func (p *Planner) intentMapPlan(obs *models.Observation, decision *models.IntentDecision) *models.Plan {
	var steps []models.Step

	switch decision.Intent {
	case "guild.member.count":
		if obs.GuildID == "" {
			return nil
		}
		steps = []models.Step{
			{Tool: "guild.member.count", Args: map[string]any{"guildId": obs.GuildID}, Reason: "deterministic intent"},
			{Tool: "message.send", Args: map[string]any{"content": "This server has ${0.output.count} members."}, Reason: "report the count"},
		}
	case "guild.info":
		if obs.GuildID == "" {
			return nil
		}
		steps = []models.Step{
			{Tool: "guild.info", Args: map[string]any{"guildId": obs.GuildID}, Reason: "deterministic intent"},
			{Tool: "message.send", Args: map[string]any{"content": "You're in ${0.output.guild.name} (${0.output.guild.memberCount} members)."}, Reason: "report guild info"},
		}
	case "guild.moderation.stats":
		if obs.GuildID == "" {
			return nil
		}
		steps = []models.Step{
			{Tool: "guild.moderation.stats", Args: map[string]any{"guildId": obs.GuildID, "windowHours": 24}, Reason: "deterministic intent"},
			{Tool: "message.send", Args: map[string]any{"content": "Last ${0.output.stats.windowHours}h: ${0.output.stats.messagesFlagged} flagged, ${0.output.stats.membersWarned} warned, ${0.output.stats.membersBanned} banned."}, Reason: "report moderation stats"},
		}
	case "system.capabilities":
		steps = []models.Step{
			{Tool: "system.capabilities", Args: map[string]any{}, Reason: "deterministic intent"},
			{Tool: "message.send", Args: map[string]any{"content": "Here's what I can do: ${0.output.summary}"}, Reason: "report capabilities"},
		}
	default:
		return nil
	}

	return &models.Plan{
		Steps:      steps,
		Reasoning:  "intent map matched " + decision.Intent,
		Confidence: decision.Confidence,
		Source:     models.SourceIntentMap,
	}
}

// shortcutPlan routes reflection, recall, and recent-window questions to
// memory.query without spending a model call. The quantified window is
// checked before the generic recall phrases so "what did we talk about
// 5 minutes ago" queries in recent mode.
func (p *Planner) shortcutPlan(obs *models.Observation) *models.Plan {
	if reflectionPattern.MatchString(obs.Content) {
		args := map[string]any{"q": obs.Content, "channelId": obs.ChannelID}
		return memoryPlan(args, "reflection question", "reflection shortcut")
	}

	if m := recentPattern.FindStringSubmatch(obs.Content); m != nil {
		if minutes, err := strconv.Atoi(m[1]); err == nil && minutes > 0 {
			if strings.HasPrefix(strings.ToLower(m[2]), "h") {
				minutes *= 60
			}
			args := map[string]any{
				"q":             obs.Content,
				"channelId":     obs.ChannelID,
				"mode":          "recent",
				"windowMinutes": minutes,
			}
			return memoryPlan(args, "recent-conversation recall", "recent recall shortcut")
		}
	}

	if recallPattern.MatchString(obs.Content) {
		args := map[string]any{"q": obs.Content, "channelId": obs.ChannelID}
		return memoryPlan(args, "recall question", "recall shortcut")
	}
	return nil
}

// memoryPlan is the query-then-relay shape every memory shortcut emits.
func memoryPlan(args map[string]any, reason, reasoning string) *models.Plan {
	return &models.Plan{
		Steps: []models.Step{
			{Tool: "memory.query", Args: args, Reason: reason},
			{Tool: "message.send", Args: map[string]any{"content": "${0.output.answer}"}, Reason: "relay the recall answer"},
		},
		Reasoning:  reasoning,
		Confidence: 0.7,
		Source:     models.SourceIntentMap,
	}
}

// identityPreferencePlan handles "call me X": store the alias, confirm.
// In a direct message the alias is private; in a guild it is public.
func (p *Planner) identityPreferencePlan(obs *models.Observation, zone identity.Zone) *models.Plan {
	var name string
	for _, re := range preferencePatterns {
		if m := re.FindStringSubmatch(obs.Content); m != nil {
			name = strings.TrimSpace(m[1])
			break
		}
	}
	if name == "" {
		return nil
	}
	// Trailing politeness gets trimmed off the captured name.
	name = strings.TrimSuffix(name, " please")
	name = strings.TrimRight(name, ".!? ")
	if name == "" {
		return nil
	}

	updateArgs := map[string]any{"userId": obs.AuthorID}
	if zone == identity.ZonePrivateDM {
		updateArgs["addPrivateAliases"] = []any{name}
	} else {
		updateArgs["addPublicAliases"] = []any{name}
	}

	return &models.Plan{
		Steps: []models.Step{
			{Tool: "identity.update", Args: updateArgs, Reason: "store stated addressing preference"},
			{Tool: "message.send", Args: map[string]any{"content": fmt.Sprintf("Got it, I'll call you %s.", name)}, Reason: "confirm the preference"},
		},
		Reasoning:  "stated addressing preference",
		Confidence: 0.9,
		Source:     models.SourceIntentMap,
	}
}
