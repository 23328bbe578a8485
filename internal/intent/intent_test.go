package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/pkg/models"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{Level: "error"})
}

func obsWith(content string) *models.Observation {
	return &models.Observation{ID: "o1", Content: content, AuthorID: "u1", ChannelID: "c1", GuildID: "g1"}
}

func TestLookupTool(t *testing.T) {
	cases := []struct {
		name    string
		content string
		tool    string
		ok      bool
	}{
		{"member count phrase", "vi, what's the member count here?", "guild.member.count", true},
		{"how many members", "how many members does this place have", "guild.member.count", true},
		{"capabilities", "vi what can you do", "system.capabilities", true},
		{"remind", "remind me to stretch in 10 minutes", "user.remind", true},
		{"qualitative vibe", "what's the vibe with the members today", "", false},
		{"qualitative feel", "how do you feel about how many members we have", "", false},
		{"busy today", "is the server busy today, how many members are on", "", false},
		{"long multi-clause", "check the member count and then tell everyone the weather forecast for tomorrow morning please", "", false},
		{"short clause still matches", "hi vi and what can you do", "system.capabilities", true},
		{"no match", "tell me a story about dragons", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tool, ok := LookupTool(tc.content)
			if ok != tc.ok || tool != tc.tool {
				t.Fatalf("LookupTool(%q) = (%q, %v), want (%q, %v)", tc.content, tool, ok, tc.tool, tc.ok)
			}
		})
	}
}

type stubMatcher struct {
	match *models.SkillMatch
	err   error
}

func (s *stubMatcher) Match(_ context.Context, _ string) (*models.SkillMatch, error) {
	return s.match, s.err
}

func TestEngineResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("intent map hit gates strictly", func(t *testing.T) {
		e := NewEngine(nil, testLogger())
		d := e.Resolve(ctx, obsWith("how many members do we have?"), models.EmptyContext())
		if d.Source != "intent-map" || d.Gating != models.GatingStrict {
			t.Fatalf("decision = %+v", d)
		}
		if len(d.AllowedTools) != 1 || d.AllowedTools[0] != "guild.member.count" {
			t.Fatalf("allowed = %v", d.AllowedTools)
		}
	})

	t.Run("skill match gates softly with the skill's tools", func(t *testing.T) {
		match := &models.SkillMatch{
			Skill: models.Skill{
				ID:     "s1",
				Intent: "summarize moderation",
				Actions: []models.SkillAction{
					{Tool: "guild.moderation.stats"},
					{Tool: "message.send"},
				},
			},
			Similarity: 0.91,
		}
		e := NewEngine(&stubMatcher{match: match}, testLogger())
		d := e.Resolve(ctx, obsWith("give me a moderation summary vibe check"), models.EmptyContext())
		if d.Source != "skill-graph" || d.Gating != models.GatingSoft {
			t.Fatalf("decision = %+v", d)
		}
		if len(d.AllowedTools) != 2 {
			t.Fatalf("allowed = %v", d.AllowedTools)
		}
		if d.Confidence != 0.91 {
			t.Fatalf("confidence = %v", d.Confidence)
		}
	})

	t.Run("matcher error degrades to nlp", func(t *testing.T) {
		e := NewEngine(&stubMatcher{err: errors.New("search down")}, testLogger())
		d := e.Resolve(ctx, obsWith("tell me something nice"), models.EmptyContext())
		if d.Source != "nlp" || d.Gating != models.GatingSoft {
			t.Fatalf("decision = %+v", d)
		}
	})

	t.Run("question nudges confidence", func(t *testing.T) {
		e := NewEngine(nil, testLogger())
		d := e.Resolve(ctx, obsWith("could you help me with something?"), models.EmptyContext())
		if d.Confidence != 0.6 {
			t.Fatalf("confidence = %v, want 0.6", d.Confidence)
		}
	})
}

func TestApplyGating(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	twoStep := func() *models.Plan {
		return &models.Plan{
			Steps: []models.Step{
				{Tool: "guild.member.count", Args: map[string]any{"guildId": "g1"}},
				{Tool: "user.remind", Args: map[string]any{"text": "x"}},
				{Tool: "message.send", Args: map[string]any{"content": "done"}},
			},
			Source: models.SourceLLM,
		}
	}

	t.Run("strict drops tools outside the allowlist", func(t *testing.T) {
		decision := &models.IntentDecision{
			Gating:       models.GatingStrict,
			AllowedTools: []string{"guild.member.count"},
		}
		plan := ApplyGating(ctx, twoStep(), decision, logger)
		if len(plan.Steps) != 2 {
			t.Fatalf("steps = %d, want 2", len(plan.Steps))
		}
		if plan.Steps[0].Tool != "guild.member.count" || plan.Steps[1].Tool != "message.send" {
			t.Fatalf("kept = %v", plan.Steps)
		}
	})

	t.Run("strict with nothing allowed yields the safe reply", func(t *testing.T) {
		decision := &models.IntentDecision{
			Gating:       models.GatingStrict,
			AllowedTools: []string{"guild.info"},
		}
		plan := ApplyGating(ctx, &models.Plan{
			Steps:  []models.Step{{Tool: "user.remind", Args: map[string]any{}}},
			Source: models.SourceLLM,
		}, decision, logger)
		if len(plan.Steps) != 1 || plan.Steps[0].Tool != "message.send" {
			t.Fatalf("plan = %+v", plan)
		}
		if plan.Steps[0].Args["content"] != unavailableMessage {
			t.Fatalf("content = %v", plan.Steps[0].Args["content"])
		}
	})

	t.Run("soft keeps every step", func(t *testing.T) {
		decision := &models.IntentDecision{Gating: models.GatingSoft, AllowedTools: []string{"message.send"}}
		plan := ApplyGating(ctx, twoStep(), decision, logger)
		if len(plan.Steps) != 3 {
			t.Fatalf("steps = %d, want 3", len(plan.Steps))
		}
	})

	t.Run("none passes through", func(t *testing.T) {
		decision := &models.IntentDecision{Gating: models.GatingNone}
		plan := ApplyGating(ctx, twoStep(), decision, logger)
		if len(plan.Steps) != 3 {
			t.Fatalf("steps = %d, want 3", len(plan.Steps))
		}
	})
}
