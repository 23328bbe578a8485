// Package memoryquery provides the memory.query tool over the memory
// service's hybrid search.
package memoryquery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/vigil/internal/memory"
)

// defaultWindowMinutes is the look-back window when recent mode is asked
// for without one.
const defaultWindowMinutes = 60

// Tool answers recall questions from stored memories.
type Tool struct {
	client *memory.Client
}

// NewTool creates the memory.query tool.
func NewTool(client *memory.Client) *Tool {
	return &Tool{client: client}
}

func (t *Tool) Name() string { return "memory.query" }

func (t *Tool) Description() string {
	return "Search long-term memory for relevant entries. Accepts a free-text query; recent mode restricts hits to a look-back window."
}

func (t *Tool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"q":             {"type": "string", "description": "Search query"},
			"query":         {"type": "string", "description": "Alias for q"},
			"limit":         {"type": "integer", "minimum": 1, "maximum": 50},
			"channelId":     {"type": "string"},
			"mode":          {"type": "string", "enum": ["hybrid", "recent"]},
			"windowMinutes": {"type": "integer", "minimum": 1, "maximum": 10080}
		}
	}`)
}

func (t *Tool) OutputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"ok":     {"type": "boolean"},
			"items":  {"type": "array"},
			"answer": {"type": "string"},
			"error":  {"type": "string"}
		},
		"required": ["ok", "items"]
	}`)
}

func (t *Tool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	query, _ := args["q"].(string)
	if query == "" {
		query, _ = args["query"].(string)
	}
	if strings.TrimSpace(query) == "" {
		return map[string]any{"ok": false, "items": []any{}, "error": "q is required"}, nil
	}

	limit := 10
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	results, err := t.client.HybridSearch(ctx, query, limit)
	if err != nil {
		return map[string]any{"ok": false, "items": []any{}, "error": fmt.Sprintf("memory search failed: %v", err)}, nil
	}

	if mode, _ := args["mode"].(string); mode == "recent" {
		window := defaultWindowMinutes
		if v, ok := intArg(args, "windowMinutes"); ok && v > 0 {
			window = v
		}
		results = withinWindow(results, time.Now().Add(-time.Duration(window)*time.Minute))
	}

	items := make([]any, 0, len(results))
	for _, r := range results {
		item := map[string]any{
			"content": r.Content,
			"score":   r.Score,
		}
		if r.Timestamp != "" {
			item["timestamp"] = r.Timestamp
		}
		items = append(items, item)
	}

	out := map[string]any{"ok": true, "items": items}
	if len(results) > 0 {
		out["answer"] = results[0].Content
	}
	return out, nil
}

// withinWindow keeps hits whose timestamp falls inside the look-back
// window. Hits without a parseable timestamp cannot prove recency and are
// dropped.
func withinWindow(results []memory.SearchResult, cutoff time.Time) []memory.SearchResult {
	kept := make([]memory.SearchResult, 0, len(results))
	for _, r := range results {
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			continue
		}
		if !ts.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	return kept
}

// intArg reads a numeric argument that may arrive as a JSON float or as a
// Go int from a deterministic plan.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
