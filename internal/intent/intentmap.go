// Package intent resolves an observation into an IntentDecision and
// enforces the resulting tool gating on plans.
package intent

import (
	"regexp"
	"strings"
)

// mapping pairs a natural-language trigger with a canonical tool.
type mapping struct {
	phrases []string
	tool    string
}

// intentMappings is the deterministic intent map: a phrase hit resolves
// directly to a canonical tool without consulting the language model.
// Order matters; first match wins.
var intentMappings = []mapping{
	{phrases: []string{"member count", "how many members", "how many people"}, tool: "guild.member.count"},
	{phrases: []string{"server info", "guild info", "about this server"}, tool: "guild.info"},
	{phrases: []string{"moderation stats", "mod stats", "moderation summary"}, tool: "guild.moderation.stats"},
	{phrases: []string{"what can you do", "capabilities", "list your tools"}, tool: "system.capabilities"},
	{phrases: []string{"remind me"}, tool: "user.remind"},
}

// qualitativeWords are conversational signals that disqualify an utterance
// from deterministic mapping; they fall through to the LLM planner.
var qualitativeWords = []string{"vibe", "vibes", "feel", "feels", "feeling", "busy today"}

// clausePattern detects multi-clause composition.
var clausePattern = regexp.MustCompile(`\b(and|then|but)\b`)

// multiClauseWordLimit is the length past which a clause-joined utterance
// is considered too compositional for the intent map.
const multiClauseWordLimit = 12

// LookupTool resolves content to a canonical tool through the intent map.
// Qualitative or long multi-clause utterances never match: they belong to
// the language-model planner.
func LookupTool(content string) (string, bool) {
	lower := strings.ToLower(content)

	for _, word := range qualitativeWords {
		if strings.Contains(lower, word) {
			return "", false
		}
	}
	if clausePattern.MatchString(lower) && len(strings.Fields(lower)) > multiClauseWordLimit {
		return "", false
	}

	for _, m := range intentMappings {
		for _, phrase := range m.phrases {
			if strings.Contains(lower, phrase) {
				return m.tool, true
			}
		}
	}
	return "", false
}
