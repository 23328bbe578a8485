// Package identitytool provides the identity.update tool for user-driven
// addressing preferences.
package identitytool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/vigil/internal/memory"
	"github.com/haasonsaas/vigil/pkg/models"
)

// Tool merges alias and intimacy preferences into the user entity's
// identity traits.
type Tool struct {
	client *memory.Client
}

// NewTool creates the identity.update tool.
func NewTool(client *memory.Client) *Tool {
	return &Tool{client: client}
}

func (t *Tool) Name() string { return "identity.update" }

func (t *Tool) Description() string {
	return "Update a user's addressing preferences: public/private aliases and auto-intimate consent."
}

func (t *Tool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"userId":               {"type": "string"},
			"addPublicAliases":     {"type": "array", "items": {"type": "string"}},
			"addPrivateAliases":    {"type": "array", "items": {"type": "string"}},
			"setAllowAutoIntimate": {"type": "boolean"}
		},
		"required": ["userId"]
	}`)
}

func (t *Tool) OutputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"ok":    {"type": "boolean"},
			"error": {"type": "string"}
		},
		"required": ["ok"]
	}`)
}

func (t *Tool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	userID, _ := args["userId"].(string)
	if strings.TrimSpace(userID) == "" {
		return map[string]any{"ok": false, "error": "userId is required"}, nil
	}

	entityID := "user:" + userID
	entity, err := t.client.GetUserEntity(ctx, entityID)
	if err != nil {
		return map[string]any{"ok": false, "error": fmt.Sprintf("load entity: %v", err)}, nil
	}
	var traits models.IdentityTraits
	if entity != nil {
		traits = entity.IdentityTraits()
	}

	traits.PublicAliases = mergeAliases(traits.PublicAliases, anyStrings(args["addPublicAliases"]))
	traits.PrivateAliases = mergeAliases(traits.PrivateAliases, anyStrings(args["addPrivateAliases"]))
	if v, ok := args["setAllowAutoIntimate"].(bool); ok {
		traits.AllowAutoIntimate = v
	}

	// A name can only live on one side: private wins, and the public
	// list is scrubbed of every private alias.
	traits.PublicAliases = subtract(traits.PublicAliases, traits.PrivateAliases)

	update := map[string]any{
		"identity": map[string]any{
			"publicAliases":     traits.PublicAliases,
			"privateAliases":    traits.PrivateAliases,
			"allowAutoIntimate": traits.AllowAutoIntimate,
		},
	}
	if err := t.client.UpsertUserEntity(ctx, entityID, update); err != nil {
		return map[string]any{"ok": false, "error": fmt.Sprintf("save entity: %v", err)}, nil
	}
	return map[string]any{"ok": true}, nil
}

// mergeAliases appends new aliases, deduplicating case-insensitively.
func mergeAliases(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(added))
	for _, alias := range existing {
		key := strings.ToLower(alias)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, alias)
	}
	for _, alias := range added {
		alias = strings.TrimSpace(alias)
		key := strings.ToLower(alias)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, alias)
	}
	return out
}

// subtract removes every member of drop from list, case-insensitively.
func subtract(list, drop []string) []string {
	dropSet := make(map[string]bool, len(drop))
	for _, alias := range drop {
		dropSet[strings.ToLower(alias)] = true
	}
	out := make([]string, 0, len(list))
	for _, alias := range list {
		if dropSet[strings.ToLower(alias)] {
			continue
		}
		out = append(out, alias)
	}
	return out
}

func anyStrings(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
