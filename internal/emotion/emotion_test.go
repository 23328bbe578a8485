package emotion

import "testing"

func TestSetGet(t *testing.T) {
	t.Cleanup(func() { Set(ToneNeutral) })

	if Get() != ToneNeutral {
		t.Fatalf("initial tone = %q", Get())
	}

	Set(ToneWarm)
	if Get() != ToneWarm {
		t.Fatalf("tone = %q, want warm", Get())
	}

	// Unknown tones reset to neutral rather than propagate.
	Set(Tone("grumpy"))
	if Get() != ToneNeutral {
		t.Fatalf("tone = %q, want neutral", Get())
	}
}
