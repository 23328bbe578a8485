// Package models contains the shared wire types that flow through the
// reasoning pipeline: observations, retrieved context, plans, tool result
// envelopes, and skill records.
//
// Everything in this package is a plain data carrier. Behavior lives in the
// internal packages that produce and consume these types.
package models

import "time"

// ObservationType categorizes an inbound observation.
type ObservationType string

const (
	// ObservationMessage is a chat message from a user.
	ObservationMessage ObservationType = "message"

	// ObservationSystem is a synthetic observation injected by the host
	// (timers, startup probes).
	ObservationSystem ObservationType = "system"
)

// Observation is one inbound user message to be processed. It is immutable
// input: pipeline stages derive new values from it but never modify it.
//
// GuildID empty means the observation arrived over a direct message.
type Observation struct {
	// ID uniquely identifies this observation.
	ID string `json:"id"`

	// Type categorizes the observation.
	Type ObservationType `json:"type"`

	// Content is the raw user utterance.
	Content string `json:"content"`

	// AuthorID is the platform user id of the sender.
	AuthorID string `json:"authorId"`

	// ChannelID is the channel the observation arrived on.
	ChannelID string `json:"channelId"`

	// GuildID is the guild (server) id, empty for direct messages.
	GuildID string `json:"guildId,omitempty"`

	// Timestamp is when the observation was received.
	Timestamp time.Time `json:"timestamp"`

	// AuthorDisplayName is the sender's display name, when the gateway
	// provides one.
	AuthorDisplayName string `json:"authorDisplayName,omitempty"`
}

// IsDirectMessage reports whether the observation arrived outside any guild.
func (o *Observation) IsDirectMessage() bool {
	return o.GuildID == ""
}

// ContextItem is one retrieved memory fragment.
type ContextItem struct {
	// Content is the stored text.
	Content string `json:"content"`

	// Score is the similarity score as returned by the memory service.
	// Scores are preserved as-is and are not clamped to [0,1].
	Score float64 `json:"score,omitempty"`

	// Timestamp is when the fragment was stored, if known.
	Timestamp string `json:"timestamp,omitempty"`
}

// Context is the bounded retrieval context built for one observation.
// It is read-only for every stage downstream of the retriever.
type Context struct {
	// Recent holds up to five of the most recent fragments.
	Recent []ContextItem `json:"recent"`

	// Relevant holds similarity-ordered fragments.
	Relevant []ContextItem `json:"relevant"`

	// UserEntity is the stored entity for the author, when one exists.
	UserEntity *UserEntity `json:"userEntity,omitempty"`
}

// EmptyContext returns a pass-through context with no retrieved fragments.
// It is the retriever's failure default: later stages always have an input.
func EmptyContext() *Context {
	return &Context{
		Recent:   []ContextItem{},
		Relevant: []ContextItem{},
	}
}
