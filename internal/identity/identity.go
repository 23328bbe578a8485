// Package identity resolves the trust zone of an observation, builds the
// author's identity profile, and computes the addressing choice.
//
// This package is safety-critical: the invariants here keep private aliases
// out of public channels even when upstream data is malformed or
// adversarial. Profile construction filters non-string alias entries and
// guarantees publicAliases never intersects privateAliases
// (case-insensitive); public-guild addressing never selects a private alias.
package identity

import (
	"strings"
	"time"

	"github.com/haasonsaas/vigil/pkg/models"
)

// Zone is the trust context of an observation.
type Zone string

const (
	// ZonePublicGuild covers guild channels: private aliases must never
	// surface.
	ZonePublicGuild Zone = "PUBLIC_GUILD"

	// ZonePrivateDM covers direct messages.
	ZonePrivateDM Zone = "PRIVATE_DM"

	// ZoneTrusted is reserved for future channel-level trust flags.
	// ResolveZone never produces it today.
	ZoneTrusted Zone = "TRUSTED"
)

// ResolveZone derives the zone from the observation. GuildID absent means
// direct message; everything else is public guild by default.
func ResolveZone(obs *models.Observation) Zone {
	if obs == nil || obs.GuildID == "" {
		return ZonePrivateDM
	}
	return ZonePublicGuild
}

// Profile is the per-observation identity profile for the author.
// Invariant: PublicAliases contains no member of PrivateAliases,
// case-insensitively.
type Profile struct {
	UserID               string
	PublicAliases        []string
	PrivateAliases       []string
	AllowAutoIntimate    bool
	LastKnownDisplayName string
	LastUpdated          time.Time
}

// AddressingChoice is the computed addressing decision for one zone and
// profile. In ZonePublicGuild, UseIntimate is always false and neither name
// is a private alias.
type AddressingChoice struct {
	PrimaryName  string
	SafeName     string
	IntimateName string
	UseIntimate  bool
}

// BuildProfile constructs the author's profile from the observation and the
// stored user entity. Missing entity fields default; alias entries that are
// not strings were already dropped during trait decoding.
func BuildProfile(obs *models.Observation, entity *models.UserEntity) *Profile {
	p := &Profile{
		UserID:      obs.AuthorID,
		LastUpdated: time.Now(),
	}

	var traits models.IdentityTraits
	if entity != nil {
		traits = entity.IdentityTraits()
	}
	p.AllowAutoIntimate = traits.AllowAutoIntimate

	private := make([]string, 0, len(traits.PrivateAliases))
	privateSet := make(map[string]bool, len(traits.PrivateAliases))
	for _, alias := range traits.PrivateAliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		key := strings.ToLower(alias)
		if privateSet[key] {
			continue
		}
		privateSet[key] = true
		private = append(private, alias)
	}
	p.PrivateAliases = private

	// Seed public aliases in precedence order, skipping anything that
	// collides with a private alias.
	seen := make(map[string]bool)
	addPublic := func(alias string) {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			return
		}
		key := strings.ToLower(alias)
		if seen[key] || privateSet[key] {
			return
		}
		seen[key] = true
		p.PublicAliases = append(p.PublicAliases, alias)
	}

	addPublic(obs.AuthorDisplayName)
	if entity != nil {
		addPublic(entity.Display)
		for _, alias := range entity.Aliases {
			addPublic(alias)
		}
	}
	for _, alias := range traits.PublicAliases {
		addPublic(alias)
	}

	if len(p.PublicAliases) == 0 {
		p.PublicAliases = []string{obs.AuthorID}
	}

	p.LastKnownDisplayName = obs.AuthorDisplayName
	if p.LastKnownDisplayName == "" && entity != nil {
		p.LastKnownDisplayName = entity.Display
	}

	return p
}

// IsPrivateAlias reports whether name matches a private alias,
// case-insensitively.
func (p *Profile) IsPrivateAlias(name string) bool {
	lower := strings.ToLower(name)
	for _, alias := range p.PrivateAliases {
		if strings.ToLower(alias) == lower {
			return true
		}
	}
	return false
}

// SafeName computes the identifier permitted for outward reference:
// lastKnownDisplayName, then the first public alias, then the author id.
// Any collision with a private alias hard-falls-back to the author id.
func (p *Profile) SafeName() string {
	candidates := []string{p.LastKnownDisplayName}
	if len(p.PublicAliases) > 0 {
		candidates = append(candidates, p.PublicAliases[0])
	}
	for _, name := range candidates {
		if name == "" {
			continue
		}
		if p.IsPrivateAlias(name) {
			return p.UserID
		}
		return name
	}
	return p.UserID
}

// ChooseAddressing computes the addressing choice for a zone. It is a pure
// function of its inputs.
func ChooseAddressing(zone Zone, p *Profile) AddressingChoice {
	safe := p.SafeName()

	if zone == ZonePublicGuild {
		return AddressingChoice{
			PrimaryName: safe,
			SafeName:    safe,
			UseIntimate: false,
		}
	}

	choice := AddressingChoice{
		PrimaryName: safe,
		SafeName:    safe,
	}
	if p.AllowAutoIntimate && len(p.PrivateAliases) > 0 {
		choice.IntimateName = p.PrivateAliases[0]
		choice.UseIntimate = true
		choice.PrimaryName = choice.IntimateName
	}
	return choice
}
