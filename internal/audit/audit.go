// Package audit provides append-only event records for pipeline runs.
// The console event stream (out of scope here) consumes these records;
// the core only emits them.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes audit events.
type EventType string

const (
	// Pipeline events
	EventObservationReceived EventType = "observation.received"
	EventPipelineCompleted   EventType = "pipeline.completed"
	EventStageFailed         EventType = "stage.failed"

	// Planning events
	EventPlanBuilt     EventType = "plan.built"
	EventPlanGated     EventType = "plan.gated"
	EventPlanSanitized EventType = "plan.sanitized"

	// Execution events
	EventStepExecuted EventType = "step.executed"
	EventStepRetried  EventType = "step.retried"
	EventStepAborted  EventType = "step.aborted"

	// Skill events
	EventSkillPromoted EventType = "skill.promoted"
	EventSkillDemoted  EventType = "skill.demoted"
	EventSkillReplayed EventType = "skill.replayed"
)

// Event is a single append-only audit record.
type Event struct {
	// ID is a unique identifier for this event.
	ID string `json:"id"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// Timestamp when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// ObservationID correlates the event with a pipeline run.
	ObservationID string `json:"observation_id,omitempty"`

	// Tool identifies the tool for execution events.
	Tool string `json:"tool,omitempty"`

	// TraceID links to a specific tool invocation.
	TraceID string `json:"trace_id,omitempty"`

	// Details contains event-specific structured data.
	Details map[string]any `json:"details,omitempty"`

	// Error contains failure information if applicable.
	Error string `json:"error,omitempty"`
}

// Sink accepts append-only audit records. Implementations must be safe for
// concurrent use; Append must never block the pipeline for long.
type Sink interface {
	Append(event Event)
}

// Emit stamps and appends an event. A nil sink is a no-op so callers never
// need to guard emission.
func Emit(sink Sink, event Event) {
	if sink == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	sink.Append(event)
}

// RingSink retains the most recent events in memory. It backs the dev
// harness and tests; production hosts install their own sink.
type RingSink struct {
	mu     sync.Mutex
	events []Event
	limit  int
	next   int
	full   bool
}

// NewRingSink creates a sink retaining at most limit events.
func NewRingSink(limit int) *RingSink {
	if limit <= 0 {
		limit = 1000
	}
	return &RingSink{
		events: make([]Event, limit),
		limit:  limit,
	}
}

// Append adds an event, evicting the oldest when full.
func (s *RingSink) Append(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[s.next] = event
	s.next = (s.next + 1) % s.limit
	if s.next == 0 {
		s.full = true
	}
}

// Events returns the retained events in append order.
func (s *RingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.full {
		out := make([]Event, s.next)
		copy(out, s.events[:s.next])
		return out
	}
	out := make([]Event, 0, s.limit)
	out = append(out, s.events[s.next:]...)
	out = append(out, s.events[:s.next]...)
	return out
}
