package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type stubTool struct {
	name   string
	schema string
	fn     func(ctx context.Context, args map[string]any) (map[string]any, error)
}

func (s *stubTool) Name() string                     { return s.name }
func (s *stubTool) Description() string              { return "stub" }
func (s *stubTool) InputSchema() json.RawMessage     { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) OutputSchema() json.RawMessage    { return json.RawMessage(s.schema) }
func (s *stubTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	return s.fn(ctx, args)
}

func okSchema() string {
	return `{"type":"object","properties":{"ok":{"type":"boolean"}},"required":["ok"]}`
}

type sinkRecord struct {
	tool   string
	status string
}

type recordingSink struct {
	records []sinkRecord
}

func (s *recordingSink) RecordToolExecution(tool, status string, _ float64) {
	s.records = append(s.records, sinkRecord{tool, status})
}

func TestRegistryInvoke(t *testing.T) {
	ctx := context.Background()

	t.Run("success envelope carries output and meta", func(t *testing.T) {
		tool := &stubTool{name: "t", schema: okSchema(), fn: func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		}}
		registry := NewRegistry(nil, time.Second)
		registry.Register(tool)

		env := registry.Invoke(ctx, tool, map[string]any{"x": 1})
		if !env.OK || env.Tool != "t" || env.TraceID == "" {
			t.Fatalf("envelope = %+v", env)
		}
		if env.Meta == nil || env.Meta.TraceID != env.TraceID {
			t.Fatalf("meta = %+v", env.Meta)
		}
		if env.Output["_meta"] == nil {
			t.Fatal("output missing _meta")
		}
	})

	t.Run("ok false in output marks a tool-level failure", func(t *testing.T) {
		tool := &stubTool{name: "t", schema: okSchema(), fn: func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{"ok": false, "error": "nope"}, nil
		}}
		registry := NewRegistry(nil, time.Second)

		env := registry.Invoke(ctx, tool, nil)
		if env.OK || env.Error != "nope" {
			t.Fatalf("envelope = %+v", env)
		}
	})

	t.Run("missing ok field means success", func(t *testing.T) {
		tool := &stubTool{name: "t", schema: okSchema(), fn: func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{"answer": 42}, nil
		}}
		registry := NewRegistry(nil, time.Second)

		if env := registry.Invoke(ctx, tool, nil); !env.OK {
			t.Fatalf("envelope = %+v", env)
		}
	})

	t.Run("infrastructure error lands in the envelope", func(t *testing.T) {
		tool := &stubTool{name: "t", schema: okSchema(), fn: func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New("connection reset")
		}}
		registry := NewRegistry(nil, time.Second)

		env := registry.Invoke(ctx, tool, nil)
		if env.OK || env.Error != "connection reset" {
			t.Fatalf("envelope = %+v", env)
		}
	})

	t.Run("panics are contained", func(t *testing.T) {
		tool := &stubTool{name: "t", schema: okSchema(), fn: func(context.Context, map[string]any) (map[string]any, error) {
			panic("boom")
		}}
		registry := NewRegistry(nil, time.Second)

		env := registry.Invoke(ctx, tool, nil)
		if env.OK || env.Error == "" {
			t.Fatalf("envelope = %+v", env)
		}
	})

	t.Run("timeouts are reported as such", func(t *testing.T) {
		tool := &stubTool{name: "t", schema: okSchema(), fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		registry := NewRegistry(nil, 10*time.Millisecond)

		env := registry.Invoke(ctx, tool, nil)
		if env.OK || env.Error != "timeout" {
			t.Fatalf("envelope = %+v", env)
		}
	})

	t.Run("sink sees every call with its status", func(t *testing.T) {
		good := &stubTool{name: "good", schema: okSchema(), fn: func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		}}
		bad := &stubTool{name: "bad", schema: okSchema(), fn: func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{"ok": false}, nil
		}}
		sink := &recordingSink{}
		registry := NewRegistry(sink, time.Second)

		registry.Invoke(ctx, good, nil)
		registry.Invoke(ctx, bad, nil)

		want := []sinkRecord{{"good", "success"}, {"bad", "error"}}
		if len(sink.records) != 2 || sink.records[0] != want[0] || sink.records[1] != want[1] {
			t.Fatalf("records = %+v", sink.records)
		}
	})
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(nil, 0)
	registry.Register(&stubTool{name: "a", schema: okSchema()})
	registry.Register(&stubTool{name: "b", schema: okSchema()})

	if _, ok := registry.Get("a"); !ok {
		t.Fatal("registered tool not found")
	}
	if _, ok := registry.Get("missing"); ok {
		t.Fatal("unregistered tool found")
	}
	if got := len(registry.Names()); got != 2 {
		t.Fatalf("names = %d, want 2", got)
	}
}

func TestValidateOutput(t *testing.T) {
	t.Run("valid output passes", func(t *testing.T) {
		tool := &stubTool{name: "t", schema: `{"type":"object","properties":{"ok":{"type":"boolean"},"count":{"type":"integer"}},"required":["ok","count"]}`}
		if err := ValidateOutput(tool, map[string]any{"ok": true, "count": 3}); err != nil {
			t.Fatalf("ValidateOutput: %v", err)
		}
	})

	t.Run("missing required field fails", func(t *testing.T) {
		tool := &stubTool{name: "t", schema: `{"type":"object","required":["ok"]}`}
		if err := ValidateOutput(tool, map[string]any{}); err == nil {
			t.Fatal("expected a validation error")
		}
	})

	t.Run("no schema is rejected", func(t *testing.T) {
		tool := &stubTool{name: "t", schema: ""}
		if err := ValidateOutput(tool, map[string]any{"ok": true}); !errors.Is(err, ErrNoOutputSchema) {
			t.Fatalf("err = %v, want ErrNoOutputSchema", err)
		}
	})
}
