package turns

import (
	"github.com/andrei-git-tower/last-word/internal/insight"
)

// Phase is the governor's decision for the current turn. There is no state
// across requests; the whole machine recomputes from transcript length.
type Phase int

const (
	// Probe: below the minimum exchange count. The model must keep asking
	// and may not emit the completion token.
	Probe Phase = iota
	// Flexible: between min and max. The model may ask exactly one more
	// question or wrap up.
	Flexible
	// HardStop: at or past the maximum. The server forces a single
	// non-streaming closing call; the model gets no further questions.
	HardStop
)

func (p Phase) String() string {
	switch p {
	case Probe:
		return "probe"
	case Flexible:
		return "flexible"
	case HardStop:
		return "hard_stop"
	}
	return "unknown"
}

// Count returns the number of real user turns: user-role messages whose
// trimmed, lower-cased content is not the start sentinel.
func Count(transcript []insight.Message) int {
	n := 0
	for _, m := range transcript {
		if insight.Substantive(m) {
			n++
		}
	}
	return n
}

// For returns the phase for a transcript under the given exchange bounds.
// Bounds are assumed already normalized (min <= max).
func For(transcript []insight.Message, minExchanges, maxExchanges int) Phase {
	count := Count(transcript)
	switch {
	case count >= maxExchanges:
		return HardStop
	case count >= minExchanges:
		return Flexible
	default:
		return Probe
	}
}
