// Package message provides the message.send tool, the pipeline's only
// outward reply surface.
package message

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MaxContentRunes caps outbound message length (platform limit).
const MaxContentRunes = 2000

// mentionPattern matches mass-mention tags that must never be emitted.
var mentionPattern = regexp.MustCompile(`@(everyone|here)`)

// Transport delivers a message to a channel. The gateway adapter implements
// this; the dev harness uses an in-process echo.
type Transport interface {
	// Send delivers content to the channel, returning a transport
	// status code.
	Send(ctx context.Context, channelID, content string) (int, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, channelID, content string) (int, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, channelID, content string) (int, error) {
	return f(ctx, channelID, content)
}

// Tool sends outbound messages through a transport.
type Tool struct {
	transport Transport
}

// NewTool creates the message.send tool.
func NewTool(transport Transport) *Tool {
	return &Tool{transport: transport}
}

func (t *Tool) Name() string { return "message.send" }

func (t *Tool) Description() string {
	return "Send a message to a channel. Content is length-capped and mass mentions are neutralized."
}

func (t *Tool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"channelId": {"type": "string", "description": "Destination channel id"},
			"content":   {"type": "string", "description": "Message text to send"}
		},
		"required": ["channelId", "content"]
	}`)
}

func (t *Tool) OutputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"ok":        {"type": "boolean"},
			"status":    {"type": "integer"},
			"rateLimit": {"type": "boolean"},
			"error":     {"type": "string"}
		},
		"required": ["ok"]
	}`)
}

// Execute sends the message. Tool-level failures (missing args, transport
// refusal) are reported through the output's ok field, not as errors.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	channelID, _ := args["channelId"].(string)
	content, _ := args["content"].(string)

	if strings.TrimSpace(channelID) == "" {
		return map[string]any{"ok": false, "error": "channelId is required"}, nil
	}
	if strings.TrimSpace(content) == "" {
		return map[string]any{"ok": false, "error": "content is required"}, nil
	}

	content = Guard(content)

	if t.transport == nil {
		return map[string]any{"ok": false, "error": "message transport unavailable"}, nil
	}

	status, err := t.transport.Send(ctx, channelID, content)
	if err != nil {
		return map[string]any{"ok": false, "error": fmt.Sprintf("send failed: %v", err)}, nil
	}

	out := map[string]any{"ok": true, "status": status}
	if status == 429 {
		out["ok"] = false
		out["rateLimit"] = true
		out["error"] = "rate limited"
	}
	return out, nil
}

// Guard neutralizes mass mentions and caps the content length.
// A zero-width space after the @ keeps the text readable while defusing
// the mention.
func Guard(content string) string {
	content = mentionPattern.ReplaceAllString(content, "@\u200b${1}")
	runes := []rune(content)
	if len(runes) > MaxContentRunes {
		content = string(runes[:MaxContentRunes-1]) + "…"
	}
	return content
}
