package retriever

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/haasonsaas/vigil/internal/memory"
	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/internal/retry"
	"github.com/haasonsaas/vigil/pkg/models"
)

func testRetriever(t *testing.T, handler http.Handler) *Retriever {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := memory.NewClient(server.URL, time.Second, memory.WithRetry(retry.Config{
		MaxAttempts: 1, InitialDelay: time.Millisecond,
	}))
	logger := observability.NewLogger(observability.LogConfig{Level: "error"})
	return New(client, logger)
}

func obs() *models.Observation {
	return &models.Observation{ID: "o1", Content: "who likes meows", AuthorID: "u1", ChannelID: "c1"}
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("builds recent and relevant from search hits", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/memory/search", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"items":[
				{"content":"a","score":0.9,"timestamp":"2026-03-01T00:00:00Z"},
				{"content":"b","score":0.8},
				{"content":"c","score":0.7},
				{"content":"d","score":0.6},
				{"content":"e","score":0.5},
				{"content":"f","score":0.4},
				{"content":"g","score":1.2}
			]}`))
		})
		mux.HandleFunc("/api/entities/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"user:u1","display":"Quei"}`))
		})
		r := testRetriever(t, mux)

		out := r.Retrieve(ctx, obs())
		if len(out.Relevant) != 7 {
			t.Fatalf("relevant = %d", len(out.Relevant))
		}
		if len(out.Recent) != 5 {
			t.Fatalf("recent = %d, want capped at 5", len(out.Recent))
		}
		if out.Recent[1].Timestamp == "" {
			t.Fatal("missing timestamps should be filled")
		}
		// Out-of-range scores pass through untouched.
		if out.Relevant[6].Score != 1.2 {
			t.Fatalf("score = %v", out.Relevant[6].Score)
		}
		if out.UserEntity == nil || out.UserEntity.Display != "Quei" {
			t.Fatalf("entity = %+v", out.UserEntity)
		}
	})

	t.Run("search failure degrades to an empty context", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/memory/search", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		})
		mux.HandleFunc("/api/entities/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"user:u1"}`))
		})
		r := testRetriever(t, mux)

		out := r.Retrieve(ctx, obs())
		if len(out.Relevant) != 0 || len(out.Recent) != 0 {
			t.Fatalf("context = %+v", out)
		}
		if out.UserEntity == nil {
			t.Fatal("entity fetch should still run")
		}
	})

	t.Run("missing entity leaves the context entity nil", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/memory/search", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"items":[]}`))
		})
		mux.HandleFunc("/api/entities/", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
		r := testRetriever(t, mux)

		out := r.Retrieve(ctx, obs())
		if out.UserEntity != nil {
			t.Fatalf("entity = %+v, want nil", out.UserEntity)
		}
	})
}
