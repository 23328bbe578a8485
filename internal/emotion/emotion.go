// Package emotion holds the process-wide tone state used to bias prompt
// composition. The state is purely cosmetic: it never affects gating,
// sanitization, or execution.
package emotion

import "sync/atomic"

// Tone is the assistant's current affect.
type Tone string

const (
	ToneNeutral    Tone = "neutral"
	ToneWarm       Tone = "warm"
	TonePlayful    Tone = "playful"
	ToneFocused    Tone = "focused"
	ToneApologetic Tone = "apologetic"
)

// current holds the process-wide tone. Last writer wins; readers may observe
// a slightly stale value, which is acceptable for tone biasing.
var current atomic.Value

func init() {
	current.Store(ToneNeutral)
}

// Set updates the process-wide tone.
func Set(t Tone) {
	switch t {
	case ToneNeutral, ToneWarm, TonePlayful, ToneFocused, ToneApologetic:
		current.Store(t)
	default:
		current.Store(ToneNeutral)
	}
}

// Get returns the process-wide tone.
func Get() Tone {
	if t, ok := current.Load().(Tone); ok {
		return t
	}
	return ToneNeutral
}
