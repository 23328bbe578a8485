// Package sanitize enforces identity invariants on outward-facing content.
//
// The sanitizer runs at the observer level regardless of which planner path
// produced the plan, and again inside the planner after LLM output parsing.
// It only acts in the public-guild zone: private aliases are rewritten to
// the safe name before any tool executes. Replacements are word-bounded so
// substrings inside longer words never fire ("hi" in "history" is left
// alone), and the whole pass is idempotent: the safe name is never itself a
// private alias, so a second application finds nothing to rewrite.
package sanitize

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/haasonsaas/vigil/internal/identity"
	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/pkg/models"
)

// Rule names reported to metrics and audit.
const (
	RuleGreeting   = "greeting"
	RuleAliasSweep = "alias-sweep"
	RuleRedact     = "redact"
)

// greetings matched by the greeting rule.
const greetingAlternates = `hi|hey|hello|greetings`

// Sanitizer rewrites plans and observations for safe public execution.
type Sanitizer struct {
	logger  *observability.Logger
	metrics *observability.Metrics
}

// New creates a sanitizer. Logger and metrics may be nil in tests.
func New(logger *observability.Logger, metrics *observability.Metrics) *Sanitizer {
	return &Sanitizer{logger: logger, metrics: metrics}
}

// SanitizePlan rewrites every message.send step's content in place and
// strips the originalContent side-channel from all steps. It reports
// whether anything changed. Zones other than public guild pass through
// untouched.
func (s *Sanitizer) SanitizePlan(ctx context.Context, plan *models.Plan, zone identity.Zone, profile *identity.Profile) bool {
	if plan == nil || profile == nil {
		return false
	}

	changed := false
	for i := range plan.Steps {
		step := &plan.Steps[i]

		// The raw utterance must never ride along to a tool.
		if step.Args != nil {
			if _, ok := step.Args["originalContent"]; ok {
				delete(step.Args, "originalContent")
				changed = true
			}
		}

		if zone != identity.ZonePublicGuild {
			continue
		}
		if step.Tool != "message.send" || step.Args == nil {
			continue
		}
		content, ok := step.Args["content"].(string)
		if !ok || content == "" {
			continue
		}

		rewritten, rules := s.sanitizeContent(content, profile)
		if rewritten != content {
			step.Args["content"] = rewritten
			changed = true
			for _, rule := range rules {
				s.record(ctx, rule, step.Tool)
			}
		}
	}
	return changed
}

// SanitizeObservation returns a copy of the observation whose content has
// private aliases redacted. The executor sees the sanitized copy; the
// original is kept for reflection so the audit log stays faithful.
func (s *Sanitizer) SanitizeObservation(ctx context.Context, obs *models.Observation, zone identity.Zone, profile *identity.Profile) *models.Observation {
	if obs == nil {
		return nil
	}
	clean := *obs
	if zone != identity.ZonePublicGuild || profile == nil {
		return &clean
	}

	safe := profile.SafeName()
	content := clean.Content
	for _, alias := range profile.PrivateAliases {
		re, err := aliasPattern(alias)
		if err != nil {
			continue
		}
		content = re.ReplaceAllString(content, safe)
	}
	if content != clean.Content {
		clean.Content = content
		s.record(ctx, RuleRedact, "")
	}
	return &clean
}

// sanitizeContent applies the greeting rule and then the alias sweep,
// returning the rewritten content and the rules that fired.
func (s *Sanitizer) sanitizeContent(content string, profile *identity.Profile) (string, []string) {
	safe := profile.SafeName()
	var rules []string

	// Pass 1: word-bounded greeting followed by a private alias becomes
	// "<greeting>, <safeName>".
	for _, alias := range profile.PrivateAliases {
		re, err := greetingPattern(alias)
		if err != nil {
			continue
		}
		next := re.ReplaceAllString(content, "${1}, "+safe)
		if next != content {
			content = next
			rules = append(rules, RuleGreeting)
		}
	}

	// Pass 2: every standalone private alias becomes the safe name.
	for _, alias := range profile.PrivateAliases {
		re, err := aliasPattern(alias)
		if err != nil {
			continue
		}
		next := re.ReplaceAllString(content, safe)
		if next != content {
			content = next
			rules = append(rules, RuleAliasSweep)
		}
	}

	return content, rules
}

func (s *Sanitizer) record(ctx context.Context, rule, tool string) {
	if s.metrics != nil {
		s.metrics.RecordSanitizerCorrection(rule)
	}
	if s.logger != nil {
		s.logger.Warn(ctx, "sanitizer correction applied", "rule", rule, "tool", tool)
	}
}

// greetingPattern matches "<greeting>[,\s]+<alias>" with word boundaries on
// both sides.
func greetingPattern(alias string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\b(` + greetingAlternates + `)[,\s]+` + regexp.QuoteMeta(alias) + `\b`)
}

// aliasPattern matches a standalone, word-bounded private alias.
func aliasPattern(alias string) (*regexp.Regexp, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, fmt.Errorf("empty alias")
	}
	return regexp.Compile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b`)
}
