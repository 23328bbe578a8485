// Package reminders provides the user.remind tool.
package reminders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/vigil/internal/datetime"
	"github.com/haasonsaas/vigil/internal/tools/message"
)

// Scheduler fires reminder deliveries. The in-process implementation below
// backs the dev harness; production hosts swap in a durable one.
type Scheduler interface {
	// Schedule arranges for deliver to run after delay. The returned id
	// identifies the scheduled reminder.
	Schedule(delay time.Duration, deliver func()) string
}

// TimerScheduler schedules reminders on in-process timers. Reminders do not
// survive a restart; durability belongs to the host.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimerScheduler creates an in-process scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[string]*time.Timer)}
}

// Schedule implements Scheduler.
func (s *TimerScheduler) Schedule(delay time.Duration, deliver func()) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[id] = time.AfterFunc(delay, func() {
		deliver()
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
	})
	return id
}

// Tool sets reminders that send a message back to the user later.
type Tool struct {
	scheduler Scheduler
	transport message.Transport
	location  *time.Location
	now       func() time.Time
}

// NewTool creates the user.remind tool. The location resolves ambiguous
// time phrases; nil means host local.
func NewTool(scheduler Scheduler, transport message.Transport, location *time.Location) *Tool {
	return &Tool{
		scheduler: scheduler,
		transport: transport,
		location:  location,
		now:       time.Now,
	}
}

func (t *Tool) Name() string { return "user.remind" }

func (t *Tool) Description() string {
	return "Set a reminder for a user. Accepts compact ('10s', '5m'), natural ('5 minutes'), day ('tomorrow morning'), and clock ('at 14:30', '9pm') times."
}

func (t *Tool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"userId":    {"type": "string"},
			"text":      {"type": "string", "description": "Reminder text"},
			"content":   {"type": "string", "description": "Alias for text"},
			"message":   {"type": "string", "description": "Alias for text"},
			"time":      {"type": "string", "description": "When to fire"},
			"duration":  {"type": "string", "description": "Alias for time"},
			"delay":     {"type": "string", "description": "Alias for time"},
			"delaySec":  {"type": "number", "description": "Delay in seconds"},
			"channelId": {"type": "string"}
		},
		"required": ["userId"]
	}`)
}

func (t *Tool) OutputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"ok":         {"type": "boolean"},
			"delaySec":   {"type": "number"},
			"reminderId": {"type": "string"},
			"error":      {"type": "string"}
		},
		"required": ["ok"]
	}`)
}

func (t *Tool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	userID, _ := args["userId"].(string)
	if strings.TrimSpace(userID) == "" {
		return map[string]any{"ok": false, "error": "userId is required"}, nil
	}

	text := firstString(args, "text", "content", "message")
	if text == "" {
		return map[string]any{"ok": false, "error": "reminder text is required"}, nil
	}

	delay, err := t.resolveDelay(args)
	if err != nil {
		return map[string]any{"ok": false, "error": err.Error()}, nil
	}
	if delay <= 0 {
		return map[string]any{"ok": false, "error": "reminder time is in the past"}, nil
	}

	channelID, _ := args["channelId"].(string)
	reminder := fmt.Sprintf("⏰ <@%s> %s", userID, text)

	id := t.scheduler.Schedule(delay, func() {
		if t.transport == nil || channelID == "" {
			return
		}
		// Delivery context is detached from the originating pipeline.
		t.transport.Send(context.Background(), channelID, message.Guard(reminder)) //nolint:errcheck
	})

	return map[string]any{
		"ok":         true,
		"delaySec":   delay.Seconds(),
		"reminderId": id,
	}, nil
}

// resolveDelay reads the accepted time argument spellings.
func (t *Tool) resolveDelay(args map[string]any) (time.Duration, error) {
	if v, ok := args["delaySec"].(float64); ok && v > 0 {
		return time.Duration(v * float64(time.Second)), nil
	}

	spec := firstString(args, "time", "duration", "delay")
	if spec == "" {
		return 0, fmt.Errorf("a time is required")
	}

	now := t.now()
	at, err := datetime.ParseWhen(spec, now, t.location)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %v", spec, err)
	}
	return at.Sub(now), nil
}

func firstString(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := args[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
