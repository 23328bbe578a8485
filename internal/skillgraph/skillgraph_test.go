package skillgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/vigil/internal/config"
	"github.com/haasonsaas/vigil/internal/memory"
	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/pkg/models"
)

// memoryStub is a scriptable memory service for skill tests.
type memoryStub struct {
	mu       sync.Mutex
	promoted []models.Skill
	patches  map[string]string
	matches  []models.SkillMatch
	list     []models.SkillMatch

	// failPromotes fails that many promote requests before recovering.
	// The client retries 5xx once, so covering one promotion takes two.
	failPromotes int
}

func (s *memoryStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/skills/search", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		json.NewEncoder(w).Encode(s.matches)
	})
	mux.HandleFunc("/api/skills/promote", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failPromotes > 0 {
			s.failPromotes--
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		var body struct {
			Skill models.Skill `json:"skill"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		s.promoted = append(s.promoted, body.Skill)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/skills", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		json.NewEncoder(w).Encode(s.list)
	})
	mux.HandleFunc("/api/skills/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		var body struct {
			Status string `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if s.patches == nil {
			s.patches = make(map[string]string)
		}
		// Path shape: /api/skills/<id>/status
		s.patches[r.URL.Path] = body.Status
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *memoryStub) promotedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.promoted)
}

func testGraph(t *testing.T, stub *memoryStub) *Graph {
	t.Helper()
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	client := memory.NewClient(server.URL, 2*time.Second)
	cfg := config.Default().Skills
	logger := observability.NewLogger(observability.LogConfig{Level: "error"})
	return New(client, cfg, logger, nil)
}

func countPlan() *models.Plan {
	return &models.Plan{
		Steps: []models.Step{
			{Tool: "guild.member.count", Args: map[string]any{"guildId": "g1"}},
			{Tool: "message.send", Args: map[string]any{"content": "counted", "channelId": "c1"}},
		},
		Source: models.SourceIntentMap,
	}
}

func TestContextHash(t *testing.T) {
	actions := []models.SkillAction{{Tool: "a", Input: map[string]any{"x": 1, "y": 2}}}

	t.Run("stable across calls", func(t *testing.T) {
		if ContextHash("i", actions) != ContextHash("i", actions) {
			t.Fatal("hash not stable")
		}
	})

	t.Run("intent changes the hash", func(t *testing.T) {
		if ContextHash("i", actions) == ContextHash("j", actions) {
			t.Fatal("different intents collided")
		}
	})

	t.Run("actions change the hash", func(t *testing.T) {
		other := []models.SkillAction{{Tool: "b", Input: map[string]any{"x": 1}}}
		if ContextHash("i", actions) == ContextHash("i", other) {
			t.Fatal("different actions collided")
		}
	})
}

func TestRecordExecution(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes after the success streak threshold", func(t *testing.T) {
		stub := &memoryStub{}
		g := testGraph(t, stub)

		for i := 0; i < 3; i++ {
			g.RecordExecution(ctx, "count members", countPlan(), true)
		}
		if stub.promotedCount() != 1 {
			t.Fatalf("promotions = %d, want 1", stub.promotedCount())
		}
		if g.CandidateCount() != 0 {
			t.Fatalf("candidates = %d, want 0 after promotion", g.CandidateCount())
		}
	})

	t.Run("failure resets the streak", func(t *testing.T) {
		stub := &memoryStub{}
		g := testGraph(t, stub)

		g.RecordExecution(ctx, "count members", countPlan(), true)
		g.RecordExecution(ctx, "count members", countPlan(), true)
		g.RecordExecution(ctx, "count members", countPlan(), false)
		g.RecordExecution(ctx, "count members", countPlan(), true)

		if stub.promotedCount() != 0 {
			t.Fatalf("promotions = %d, want 0", stub.promotedCount())
		}
	})

	t.Run("failed promotion keeps the candidate", func(t *testing.T) {
		stub := &memoryStub{failPromotes: 2}
		g := testGraph(t, stub)

		for i := 0; i < 3; i++ {
			g.RecordExecution(ctx, "count members", countPlan(), true)
		}
		if stub.promotedCount() != 0 {
			t.Fatal("promotion should have failed")
		}
		if g.CandidateCount() != 1 {
			t.Fatalf("candidates = %d, want 1 (kept for retry)", g.CandidateCount())
		}

		// The next success crosses the thresholds again and retries.
		g.RecordExecution(ctx, "count members", countPlan(), true)
		if stub.promotedCount() != 1 {
			t.Fatalf("promotions = %d, want 1 on retry", stub.promotedCount())
		}
	})

	t.Run("blacklisted intents are never tracked", func(t *testing.T) {
		stub := &memoryStub{}
		g := testGraph(t, stub)

		for i := 0; i < 5; i++ {
			g.RecordExecution(ctx, "check the weather", countPlan(), true)
		}
		if g.CandidateCount() != 0 || stub.promotedCount() != 0 {
			t.Fatal("blacklisted intent was tracked")
		}
	})

	t.Run("history is bounded", func(t *testing.T) {
		stub := &memoryStub{}
		g := testGraph(t, stub)

		for i := 0; i < historyLimit+50; i++ {
			// Alternate success so no promotion fires.
			g.RecordExecution(ctx, "count members", countPlan(), i%2 == 0)
		}
		if got := len(g.History()); got != historyLimit {
			t.Fatalf("history = %d, want %d", got, historyLimit)
		}
	})
}

func TestMatch(t *testing.T) {
	ctx := context.Background()

	usable := models.SkillMatch{
		Skill: models.Skill{
			ID:      "s1",
			Intent:  "count members",
			Actions: []models.SkillAction{{Tool: "guild.member.count"}},
		},
		Similarity: 0.9,
		Stats:      models.SkillStats{Status: models.SkillActive, SuccessRate: 0.9},
	}

	t.Run("accepts a qualifying skill", func(t *testing.T) {
		stub := &memoryStub{matches: []models.SkillMatch{usable}}
		g := testGraph(t, stub)
		match, err := g.Match(ctx, "count the members again")
		if err != nil || match == nil || match.Skill.ID != "s1" {
			t.Fatalf("match = %+v, err = %v", match, err)
		}
	})

	t.Run("rejects below the similarity threshold", func(t *testing.T) {
		low := usable
		low.Similarity = 0.5
		stub := &memoryStub{matches: []models.SkillMatch{low}}
		g := testGraph(t, stub)
		if match, _ := g.Match(ctx, "count the members again"); match != nil {
			t.Fatalf("match = %+v, want nil", match)
		}
	})

	t.Run("rejects archived and demoted skills", func(t *testing.T) {
		for _, status := range []models.SkillStatus{models.SkillArchived, models.SkillDemoted} {
			stale := usable
			stale.Stats.Status = status
			stub := &memoryStub{matches: []models.SkillMatch{stale}}
			g := testGraph(t, stub)
			if match, _ := g.Match(ctx, "count the members again"); match != nil {
				t.Fatalf("status %s: match = %+v, want nil", status, match)
			}
		}
	})

	t.Run("rejects a low success rate", func(t *testing.T) {
		weak := usable
		weak.Stats.SuccessRate = 0.3
		stub := &memoryStub{matches: []models.SkillMatch{weak}}
		g := testGraph(t, stub)
		if match, _ := g.Match(ctx, "count the members again"); match != nil {
			t.Fatalf("match = %+v, want nil", match)
		}
	})

	t.Run("rejects empty action sequences", func(t *testing.T) {
		empty := usable
		empty.Skill.Actions = nil
		stub := &memoryStub{matches: []models.SkillMatch{empty}}
		g := testGraph(t, stub)
		if match, _ := g.Match(ctx, "count the members again"); match != nil {
			t.Fatalf("match = %+v, want nil", match)
		}
	})

	t.Run("rejects without token overlap", func(t *testing.T) {
		stub := &memoryStub{matches: []models.SkillMatch{usable}}
		g := testGraph(t, stub)
		if match, _ := g.Match(ctx, "play some jazz"); match != nil {
			t.Fatalf("match = %+v, want nil", match)
		}
	})

	t.Run("rejects blacklisted intent text", func(t *testing.T) {
		stub := &memoryStub{matches: []models.SkillMatch{usable}}
		g := testGraph(t, stub)
		if match, _ := g.Match(ctx, "weather check on the members count"); match != nil {
			t.Fatalf("match = %+v, want nil", match)
		}
	})
}

func TestDecayPass(t *testing.T) {
	ctx := context.Background()

	stub := &memoryStub{list: []models.SkillMatch{
		{
			Skill: models.Skill{ID: "weak", LastUsed: time.Now()},
			Stats: models.SkillStats{Status: models.SkillActive, SuccessRate: 0.3},
		},
		{
			Skill: models.Skill{ID: "stale", LastUsed: time.Now().Add(-40 * 24 * time.Hour)},
			Stats: models.SkillStats{Status: models.SkillActive, SuccessRate: 0.7},
		},
		{
			Skill: models.Skill{ID: "great", LastUsed: time.Now()},
			Stats: models.SkillStats{Status: models.SkillActive, SuccessRate: 0.95},
		},
		{
			Skill: models.Skill{ID: "steady", LastUsed: time.Now()},
			Stats: models.SkillStats{Status: models.SkillActive, SuccessRate: 0.7},
		},
	}}
	g := testGraph(t, stub)
	g.DecayPass(ctx)

	stub.mu.Lock()
	defer stub.mu.Unlock()

	if got := stub.patches["/api/skills/weak/status"]; got != string(models.SkillDemoted) {
		t.Fatalf("weak = %q, want demoted", got)
	}
	if got := stub.patches["/api/skills/stale/status"]; got != string(models.SkillArchived) {
		t.Fatalf("stale = %q, want archived", got)
	}
	if got := stub.patches["/api/skills/great/status"]; got != string(models.SkillPreferred) {
		t.Fatalf("great = %q, want preferred", got)
	}
	if _, ok := stub.patches["/api/skills/steady/status"]; ok {
		t.Fatal("steady skill should be untouched")
	}
}
