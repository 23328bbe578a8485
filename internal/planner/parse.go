package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/haasonsaas/vigil/internal/tools"
	"github.com/haasonsaas/vigil/pkg/models"
)

// planSchema is the structural contract every parsed plan must satisfy
// before execution.
var planSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"steps": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"tool":   {"type": "string", "minLength": 1},
					"args":   {"type": "object"},
					"reason": {"type": "string"}
				},
				"required": ["tool"]
			}
		},
		"reasoning":  {"type": "string"},
		"confidence": {"type": "number"}
	},
	"required": ["steps"]
}`)

// trailingCommaPattern removes the commas sloppy models leave before
// closing brackets.
var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// contentFieldPattern pulls a reply string out of malformed JSON that still
// carries a recognizable "content" field.
var contentFieldPattern = regexp.MustCompile(`"content"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// plainTextLimit is the longest non-JSON completion accepted as a direct
// reply. Anything longer is likelier to be broken JSON than prose.
const plainTextLimit = 600

// ParseCompletion turns a raw model completion into a validated plan.
//
// The parser is deliberately tolerant, in recovery order:
//  1. strict JSON (after stripping code fences)
//  2. JSON with trailing commas removed
//  3. a "content" field extracted from otherwise broken JSON
//  4. short plain text treated as the reply itself
//
// Anything else is an error; the caller falls back.
func ParseCompletion(text string) (*models.Plan, error) {
	text = stripFences(strings.TrimSpace(text))
	if text == "" {
		return nil, fmt.Errorf("empty completion")
	}

	if plan, err := parseJSONPlan(text); err == nil {
		return plan, nil
	}

	repaired := trailingCommaPattern.ReplaceAllString(text, "$1")
	if plan, err := parseJSONPlan(repaired); err == nil {
		return plan, nil
	}

	if m := contentFieldPattern.FindStringSubmatch(text); m != nil {
		var content string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &content); err == nil && strings.TrimSpace(content) != "" {
			return messagePlan(content, "recovered content field from malformed completion"), nil
		}
	}

	if !strings.Contains(text, "{") && len(text) <= plainTextLimit {
		return messagePlan(text, "LLM planning failed: plain-text completion relayed as a reply"), nil
	}

	return nil, fmt.Errorf("unparseable completion (%d bytes)", len(text))
}

// parseJSONPlan decodes and schema-validates one JSON candidate.
func parseJSONPlan(text string) (*models.Plan, error) {
	text = extractObject(text)

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, err
	}

	schema, err := tools.CompileSchema(planSchema)
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("plan schema: %w", err)
	}

	var plan models.Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, err
	}
	for i := range plan.Steps {
		if plan.Steps[i].Args == nil {
			plan.Steps[i].Args = map[string]any{}
		}
	}
	return &plan, nil
}

// messagePlan wraps bare reply text in a single message.send step.
func messagePlan(content, reasoning string) *models.Plan {
	return &models.Plan{
		Steps: []models.Step{{
			Tool:   "message.send",
			Args:   map[string]any{"content": strings.TrimSpace(content)},
			Reason: "reply",
		}},
		Reasoning: reasoning,
	}
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", ...).
		first := strings.TrimSpace(text[:idx])
		if len(first) <= 10 && !strings.Contains(first, "{") {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// extractObject trims any prose surrounding the outermost JSON object.
func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
