package identity

import (
	"testing"

	"github.com/haasonsaas/vigil/pkg/models"
)

func guildObs(author, display string) *models.Observation {
	return &models.Observation{
		ID:                "o1",
		AuthorID:          author,
		AuthorDisplayName: display,
		ChannelID:         "c1",
		GuildID:           "g1",
	}
}

func dmObs(author, display string) *models.Observation {
	obs := guildObs(author, display)
	obs.GuildID = ""
	return obs
}

func entityWithIdentity(public, private []string, intimate bool) *models.UserEntity {
	return &models.UserEntity{
		ID: "user:u1",
		Traits: map[string]any{
			"identity": map[string]any{
				"publicAliases":     toAny(public),
				"privateAliases":    toAny(private),
				"allowAutoIntimate": intimate,
			},
		},
	}
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func TestResolveZone(t *testing.T) {
	t.Run("guild id means public guild", func(t *testing.T) {
		if zone := ResolveZone(guildObs("u1", "Quei")); zone != ZonePublicGuild {
			t.Fatalf("zone = %q, want %q", zone, ZonePublicGuild)
		}
	})

	t.Run("missing guild id means private dm", func(t *testing.T) {
		if zone := ResolveZone(dmObs("u1", "Quei")); zone != ZonePrivateDM {
			t.Fatalf("zone = %q, want %q", zone, ZonePrivateDM)
		}
	})

	t.Run("nil observation defaults private", func(t *testing.T) {
		if zone := ResolveZone(nil); zone != ZonePrivateDM {
			t.Fatalf("zone = %q, want %q", zone, ZonePrivateDM)
		}
	})
}

func TestBuildProfile(t *testing.T) {
	t.Run("public never intersects private", func(t *testing.T) {
		// "Kaelen" appears in both lists; private wins.
		entity := entityWithIdentity([]string{"Kaelen", "TheLinQuei"}, []string{"Kaelen"}, false)
		p := BuildProfile(guildObs("u1", "TheLinQuei"), entity)

		for _, alias := range p.PublicAliases {
			if p.IsPrivateAlias(alias) {
				t.Fatalf("public alias %q is also private", alias)
			}
		}
	})

	t.Run("non-string trait entries are dropped", func(t *testing.T) {
		entity := &models.UserEntity{
			Traits: map[string]any{
				"identity": map[string]any{
					"publicAliases":  []any{"Quei", 42, nil},
					"privateAliases": []any{true, "Kae"},
				},
			},
		}
		p := BuildProfile(guildObs("u1", ""), entity)
		if len(p.PrivateAliases) != 1 || p.PrivateAliases[0] != "Kae" {
			t.Fatalf("private = %v, want [Kae]", p.PrivateAliases)
		}
	})

	t.Run("empty profile falls back to author id", func(t *testing.T) {
		p := BuildProfile(guildObs("u1", ""), nil)
		if len(p.PublicAliases) != 1 || p.PublicAliases[0] != "u1" {
			t.Fatalf("public = %v, want [u1]", p.PublicAliases)
		}
	})

	t.Run("private deduplicates case-insensitively", func(t *testing.T) {
		entity := entityWithIdentity(nil, []string{"Kae", "kae", "KAE"}, false)
		p := BuildProfile(dmObs("u1", ""), entity)
		if len(p.PrivateAliases) != 1 {
			t.Fatalf("private = %v, want a single entry", p.PrivateAliases)
		}
	})
}

func TestSafeName(t *testing.T) {
	t.Run("prefers display name", func(t *testing.T) {
		p := BuildProfile(guildObs("u1", "TheLinQuei"), entityWithIdentity([]string{"Quei"}, nil, false))
		if got := p.SafeName(); got != "TheLinQuei" {
			t.Fatalf("SafeName() = %q, want TheLinQuei", got)
		}
	})

	t.Run("display colliding with private hard-falls back to user id", func(t *testing.T) {
		// Adversarial: the display name itself is a private alias.
		p := &Profile{
			UserID:               "u1",
			LastKnownDisplayName: "Kaelen",
			PublicAliases:        []string{"Kaelen"},
			PrivateAliases:       []string{"Kaelen"},
		}
		if got := p.SafeName(); got != "u1" {
			t.Fatalf("SafeName() = %q, want u1", got)
		}
	})

	t.Run("falls through to first public alias", func(t *testing.T) {
		p := &Profile{UserID: "u1", PublicAliases: []string{"Quei"}}
		if got := p.SafeName(); got != "Quei" {
			t.Fatalf("SafeName() = %q, want Quei", got)
		}
	})
}

func TestChooseAddressing(t *testing.T) {
	entity := entityWithIdentity([]string{"TheLinQuei"}, []string{"Kaelen"}, true)

	t.Run("public guild never uses intimate names", func(t *testing.T) {
		p := BuildProfile(guildObs("u1", "TheLinQuei"), entity)
		choice := ChooseAddressing(ZonePublicGuild, p)
		if choice.UseIntimate {
			t.Fatal("UseIntimate = true in public guild")
		}
		if p.IsPrivateAlias(choice.PrimaryName) || p.IsPrivateAlias(choice.SafeName) {
			t.Fatalf("addressing leaked a private alias: %+v", choice)
		}
	})

	t.Run("dm with consent uses the private alias", func(t *testing.T) {
		p := BuildProfile(dmObs("u1", "TheLinQuei"), entity)
		choice := ChooseAddressing(ZonePrivateDM, p)
		if !choice.UseIntimate || choice.PrimaryName != "Kaelen" {
			t.Fatalf("choice = %+v, want intimate Kaelen", choice)
		}
	})

	t.Run("dm without consent stays on the safe name", func(t *testing.T) {
		noConsent := entityWithIdentity([]string{"TheLinQuei"}, []string{"Kaelen"}, false)
		p := BuildProfile(dmObs("u1", "TheLinQuei"), noConsent)
		choice := ChooseAddressing(ZonePrivateDM, p)
		if choice.UseIntimate || choice.PrimaryName != "TheLinQuei" {
			t.Fatalf("choice = %+v, want safe TheLinQuei", choice)
		}
	})
}
