package identitytool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/vigil/internal/memory"
)

// entityStub serves a single user entity and records upserts.
type entityStub struct {
	entity   map[string]any
	upserted map[string]any
}

func (s *entityStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/entities/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if s.entity == nil {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(s.entity)
		default:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			s.upserted = body
			w.WriteHeader(http.StatusOK)
		}
	})
	return mux
}

func (s *entityStub) identityTraits(t *testing.T) map[string]any {
	t.Helper()
	outer, ok := s.upserted["traits"].(map[string]any)
	if !ok {
		t.Fatalf("upserted = %v", s.upserted)
	}
	traits, ok := outer["identity"].(map[string]any)
	if !ok {
		t.Fatalf("traits = %v", outer)
	}
	return traits
}

func testTool(t *testing.T, stub *entityStub) *Tool {
	t.Helper()
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)
	return NewTool(memory.NewClient(server.URL, time.Second))
}

func stringsOf(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestIdentityUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("adds aliases to a fresh entity", func(t *testing.T) {
		stub := &entityStub{}
		tool := testTool(t, stub)

		out, err := tool.Execute(ctx, map[string]any{
			"userId":            "u1",
			"addPublicAliases":  []any{"Quei"},
			"addPrivateAliases": []any{"Kae"},
		})
		if err != nil || out["ok"] != true {
			t.Fatalf("out = %v, err = %v", out, err)
		}
		traits := stub.identityTraits(t)
		if got := stringsOf(traits["publicAliases"]); !reflect.DeepEqual(got, []string{"Quei"}) {
			t.Fatalf("public = %v", got)
		}
		if got := stringsOf(traits["privateAliases"]); !reflect.DeepEqual(got, []string{"Kae"}) {
			t.Fatalf("private = %v", got)
		}
	})

	t.Run("merge deduplicates case-insensitively", func(t *testing.T) {
		stub := &entityStub{entity: map[string]any{
			"id": "user:u1",
			"traits": map[string]any{
				"identity": map[string]any{"publicAliases": []any{"Quei"}},
			},
		}}
		tool := testTool(t, stub)

		tool.Execute(ctx, map[string]any{
			"userId":           "u1",
			"addPublicAliases": []any{"quei", "Lin"},
		})
		got := stringsOf(stub.identityTraits(t)["publicAliases"])
		if !reflect.DeepEqual(got, []string{"Quei", "Lin"}) {
			t.Fatalf("public = %v", got)
		}
	})

	t.Run("a private alias is scrubbed from the public list", func(t *testing.T) {
		stub := &entityStub{entity: map[string]any{
			"id": "user:u1",
			"traits": map[string]any{
				"identity": map[string]any{"publicAliases": []any{"Kae", "Quei"}},
			},
		}}
		tool := testTool(t, stub)

		tool.Execute(ctx, map[string]any{
			"userId":            "u1",
			"addPrivateAliases": []any{"kae"},
		})
		traits := stub.identityTraits(t)
		if got := stringsOf(traits["publicAliases"]); !reflect.DeepEqual(got, []string{"Quei"}) {
			t.Fatalf("public = %v", got)
		}
		if got := stringsOf(traits["privateAliases"]); !reflect.DeepEqual(got, []string{"kae"}) {
			t.Fatalf("private = %v", got)
		}
	})

	t.Run("consent flag round-trips", func(t *testing.T) {
		stub := &entityStub{}
		tool := testTool(t, stub)
		tool.Execute(ctx, map[string]any{"userId": "u1", "setAllowAutoIntimate": true})
		if stub.identityTraits(t)["allowAutoIntimate"] != true {
			t.Fatalf("traits = %v", stub.identityTraits(t))
		}
	})

	t.Run("missing userId fails in-band", func(t *testing.T) {
		tool := testTool(t, &entityStub{})
		out, err := tool.Execute(ctx, map[string]any{"addPublicAliases": []any{"x"}})
		if err != nil || out["ok"] != false {
			t.Fatalf("out = %v, err = %v", out, err)
		}
		if msg, _ := out["error"].(string); !strings.Contains(msg, "userId") {
			t.Fatalf("error = %v", out["error"])
		}
	})
}
