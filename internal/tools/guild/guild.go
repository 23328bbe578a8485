// Package guild provides guild introspection tools. The pipeline reads
// guild state through the Provider interface; the gateway adapter (out of
// scope here) supplies the live implementation.
package guild

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Info is a guild's basic metadata.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
	OwnerID     string `json:"ownerId,omitempty"`
}

// ModerationStats summarizes moderation activity over a window.
type ModerationStats struct {
	WindowHours     int `json:"windowHours"`
	MessagesFlagged int `json:"messagesFlagged"`
	MembersWarned   int `json:"membersWarned"`
	MembersBanned   int `json:"membersBanned"`
}

// Provider supplies guild state to the introspection tools.
type Provider interface {
	GuildInfo(ctx context.Context, guildID string) (*Info, error)
	ModerationStats(ctx context.Context, guildID string, window time.Duration) (*ModerationStats, error)
}

// StaticProvider serves a fixed snapshot. It backs the dev harness and
// tests.
type StaticProvider struct {
	Guilds map[string]*Info
	Stats  map[string]*ModerationStats
}

// GuildInfo implements Provider.
func (p *StaticProvider) GuildInfo(ctx context.Context, guildID string) (*Info, error) {
	info, ok := p.Guilds[guildID]
	if !ok {
		return nil, fmt.Errorf("unknown guild: %s", guildID)
	}
	return info, nil
}

// ModerationStats implements Provider.
func (p *StaticProvider) ModerationStats(ctx context.Context, guildID string, window time.Duration) (*ModerationStats, error) {
	stats, ok := p.Stats[guildID]
	if !ok {
		return nil, fmt.Errorf("unknown guild: %s", guildID)
	}
	out := *stats
	out.WindowHours = int(window / time.Hour)
	return &out, nil
}

// InfoTool implements guild.info.
type InfoTool struct {
	provider Provider
}

// NewInfoTool creates the guild.info tool.
func NewInfoTool(provider Provider) *InfoTool {
	return &InfoTool{provider: provider}
}

func (t *InfoTool) Name() string { return "guild.info" }

func (t *InfoTool) Description() string {
	return "Fetch basic metadata about the current guild."
}

func (t *InfoTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"guildId": {"type": "string"}},
		"required": ["guildId"]
	}`)
}

func (t *InfoTool) OutputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"ok":    {"type": "boolean"},
			"guild": {"type": "object"},
			"error": {"type": "string"}
		},
		"required": ["ok"]
	}`)
}

func (t *InfoTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	guildID, _ := args["guildId"].(string)
	if guildID == "" {
		return map[string]any{"ok": false, "error": "guildId is required"}, nil
	}
	info, err := t.provider.GuildInfo(ctx, guildID)
	if err != nil {
		return map[string]any{"ok": false, "error": err.Error()}, nil
	}
	return map[string]any{"ok": true, "guild": map[string]any{
		"id":          info.ID,
		"name":        info.Name,
		"memberCount": info.MemberCount,
		"ownerId":     info.OwnerID,
	}}, nil
}

// MemberCountTool implements guild.member.count.
type MemberCountTool struct {
	provider Provider
}

// NewMemberCountTool creates the guild.member.count tool.
func NewMemberCountTool(provider Provider) *MemberCountTool {
	return &MemberCountTool{provider: provider}
}

func (t *MemberCountTool) Name() string { return "guild.member.count" }

func (t *MemberCountTool) Description() string {
	return "Report how many members the current guild has."
}

func (t *MemberCountTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"guildId": {"type": "string"}},
		"required": ["guildId"]
	}`)
}

func (t *MemberCountTool) OutputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"ok":    {"type": "boolean"},
			"count": {"type": "integer"},
			"error": {"type": "string"}
		},
		"required": ["ok"]
	}`)
}

func (t *MemberCountTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	guildID, _ := args["guildId"].(string)
	if guildID == "" {
		return map[string]any{"ok": false, "error": "guildId is required"}, nil
	}
	info, err := t.provider.GuildInfo(ctx, guildID)
	if err != nil {
		return map[string]any{"ok": false, "error": err.Error()}, nil
	}
	return map[string]any{"ok": true, "count": info.MemberCount}, nil
}

// ModerationStatsTool implements guild.moderation.stats.
type ModerationStatsTool struct {
	provider Provider
}

// NewModerationStatsTool creates the guild.moderation.stats tool.
func NewModerationStatsTool(provider Provider) *ModerationStatsTool {
	return &ModerationStatsTool{provider: provider}
}

func (t *ModerationStatsTool) Name() string { return "guild.moderation.stats" }

func (t *ModerationStatsTool) Description() string {
	return "Summarize moderation activity in the current guild over a window of hours."
}

func (t *ModerationStatsTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"guildId":     {"type": "string"},
			"windowHours": {"type": "integer", "minimum": 1, "maximum": 720}
		},
		"required": ["guildId"]
	}`)
}

func (t *ModerationStatsTool) OutputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"ok":    {"type": "boolean"},
			"stats": {"type": "object"},
			"error": {"type": "string"}
		},
		"required": ["ok"]
	}`)
}

func (t *ModerationStatsTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	guildID, _ := args["guildId"].(string)
	if guildID == "" {
		return map[string]any{"ok": false, "error": "guildId is required"}, nil
	}

	windowHours := 24
	if v, ok := args["windowHours"].(float64); ok && v > 0 {
		windowHours = int(v)
	}

	stats, err := t.provider.ModerationStats(ctx, guildID, time.Duration(windowHours)*time.Hour)
	if err != nil {
		return map[string]any{"ok": false, "error": err.Error()}, nil
	}
	return map[string]any{"ok": true, "stats": map[string]any{
		"windowHours":     stats.WindowHours,
		"messagesFlagged": stats.MessagesFlagged,
		"membersWarned":   stats.MembersWarned,
		"membersBanned":   stats.MembersBanned,
	}}, nil
}
