package models

// UserEntity is the memory store's record for one user. It is fetched
// read-mostly per observation; only the reflector and the identity.update
// tool write it back.
type UserEntity struct {
	// ID is the canonical entity id, "user:<authorId>".
	ID string `json:"id"`

	// Aliases are names the user is known by.
	Aliases []string `json:"aliases,omitempty"`

	// Display is the user's stored display name.
	Display string `json:"display,omitempty"`

	// Traits holds arbitrary trait maps keyed by trait family. The
	// "identity" family carries IdentityTraits.
	Traits map[string]any `json:"traits,omitempty"`
}

// IdentityTraits is the decoded shape of Traits["identity"].
type IdentityTraits struct {
	// PublicAliases are names safe to use in any context.
	PublicAliases []string `json:"publicAliases,omitempty"`

	// PrivateAliases are names that must never surface in public channels.
	PrivateAliases []string `json:"privateAliases,omitempty"`

	// AllowAutoIntimate permits unprompted use of private aliases in
	// private contexts.
	AllowAutoIntimate bool `json:"allowAutoIntimate,omitempty"`
}

// IdentityTraits decodes the "identity" trait family. Missing or malformed
// entries yield a zero value; non-string alias members are dropped.
func (e *UserEntity) IdentityTraits() IdentityTraits {
	var out IdentityTraits
	if e == nil || e.Traits == nil {
		return out
	}
	raw, ok := e.Traits["identity"].(map[string]any)
	if !ok {
		return out
	}
	out.PublicAliases = stringSlice(raw["publicAliases"])
	out.PrivateAliases = stringSlice(raw["privateAliases"])
	if b, ok := raw["allowAutoIntimate"].(bool); ok {
		out.AllowAutoIntimate = b
	}
	return out
}

// stringSlice extracts the string members of an any-typed slice, dropping
// everything else. Trait maps come off the wire as []any.
func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		out := make([]string, 0, len(vals))
		for _, s := range vals {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
