package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haasonsaas/vigil/internal/retry"
)

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Factor: 1}
}

func TestHybridSearch(t *testing.T) {
	t.Run("decodes the items field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/memory/search" {
				t.Errorf("path = %s", r.URL.Path)
			}
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["q"] != "meows" {
				t.Errorf("q = %v", body["q"])
			}
			w.Write([]byte(`{"items":[{"content":"mari likes meows","score":0.92}]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second, WithRetry(fastRetry()))
		results, err := client.HybridSearch(context.Background(), "meows", 10)
		if err != nil {
			t.Fatalf("HybridSearch: %v", err)
		}
		if len(results) != 1 || results[0].Content != "mari likes meows" {
			t.Fatalf("results = %+v", results)
		}
	})

	t.Run("tolerates the results field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":[{"content":"a","score":1.4}]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second, WithRetry(fastRetry()))
		results, err := client.HybridSearch(context.Background(), "q", 0)
		if err != nil || len(results) != 1 {
			t.Fatalf("results = %+v, err = %v", results, err)
		}
		// Scores above 1 pass through untouched.
		if results[0].Score != 1.4 {
			t.Fatalf("score = %v", results[0].Score)
		}
	})

	t.Run("server errors are retried then surfaced", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second, WithRetry(fastRetry()))
		if _, err := client.HybridSearch(context.Background(), "q", 5); err == nil {
			t.Fatal("expected an error")
		}
		if calls.Load() != 2 {
			t.Fatalf("calls = %d, want 2", calls.Load())
		}
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "bad request", http.StatusBadRequest)
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second, WithRetry(fastRetry()))
		if _, err := client.HybridSearch(context.Background(), "q", 5); err == nil {
			t.Fatal("expected an error")
		}
		if calls.Load() != 1 {
			t.Fatalf("calls = %d, want 1", calls.Load())
		}
	})
}

func TestGetUserEntity(t *testing.T) {
	t.Run("missing entity returns nil without error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second, WithRetry(fastRetry()))
		entity, err := client.GetUserEntity(context.Background(), "user:u1")
		if err != nil {
			t.Fatalf("GetUserEntity: %v", err)
		}
		if entity != nil {
			t.Fatalf("entity = %+v, want nil", entity)
		}
	})

	t.Run("fills the id when the service omits it", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"display":"Quei"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second, WithRetry(fastRetry()))
		entity, err := client.GetUserEntity(context.Background(), "user:u1")
		if err != nil || entity == nil {
			t.Fatalf("entity = %+v, err = %v", entity, err)
		}
		if entity.ID != "user:u1" || entity.Display != "Quei" {
			t.Fatalf("entity = %+v", entity)
		}
	})
}

func TestSkillStatusPatch(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, WithRetry(fastRetry()))
	if err := client.SkillStatusPatch(context.Background(), "s1", "demoted", "rate fell"); err != nil {
		t.Fatalf("SkillStatusPatch: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/api/skills/s1/status" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if gotBody["status"] != "demoted" || gotBody["reason"] != "rate fell" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestReflectUpsert(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, WithRetry(fastRetry()))
	err := client.ReflectUpsert(context.Background(), &Reflection{
		Text:    "summary",
		Scope:   "channel",
		ScopeID: "c1",
	})
	if err != nil {
		t.Fatalf("ReflectUpsert: %v", err)
	}
	if gotBody["scope"] != "channel" || gotBody["scopeId"] != "c1" {
		t.Fatalf("body = %v", gotBody)
	}
}
