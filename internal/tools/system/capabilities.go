// Package system provides introspection tools over the runtime itself.
package system

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/haasonsaas/vigil/internal/tools"
)

// CapabilitiesTool lists the registered tools and their descriptions.
type CapabilitiesTool struct {
	registry *tools.Registry
}

// NewCapabilitiesTool creates the system.capabilities tool.
func NewCapabilitiesTool(registry *tools.Registry) *CapabilitiesTool {
	return &CapabilitiesTool{registry: registry}
}

func (t *CapabilitiesTool) Name() string { return "system.capabilities" }

func (t *CapabilitiesTool) Description() string {
	return "List the tools currently available to the assistant."
}

func (t *CapabilitiesTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *CapabilitiesTool) OutputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"ok":      {"type": "boolean"},
			"summary": {"type": "string"},
			"capabilities": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"name":        {"type": "string"},
						"description": {"type": "string"}
					},
					"required": ["name"]
				}
			}
		},
		"required": ["ok", "capabilities"]
	}`)
}

func (t *CapabilitiesTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	all := t.registry.All()
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })

	capabilities := make([]map[string]any, 0, len(all))
	names := make([]string, 0, len(all))
	for _, tool := range all {
		capabilities = append(capabilities, map[string]any{
			"name":        tool.Name(),
			"description": tool.Description(),
		})
		names = append(names, tool.Name())
	}
	return map[string]any{
		"ok":           true,
		"summary":      strings.Join(names, ", "),
		"capabilities": capabilities,
	}, nil
}
