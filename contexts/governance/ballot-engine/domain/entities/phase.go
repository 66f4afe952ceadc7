package entities

import "time"

// Phase is derived from the voting window and a clock reading. It is never
// persisted.
type Phase string

const (
	PhaseUpcoming Phase = "upcoming"
	PhaseCurrent  Phase = "current"
	PhasePast     Phase = "past"
)

// PhaseAt: upcoming while now < start, current while start <= now < end,
// past from end onwards.
func PhaseAt(start time.Time, end time.Time, now time.Time) Phase {
	switch {
	case now.Before(start):
		return PhaseUpcoming
	case now.Before(end):
		return PhaseCurrent
	default:
		return PhasePast
	}
}

func ParsePhase(value string) (Phase, bool) {
	switch Phase(value) {
	case PhaseUpcoming, PhaseCurrent, PhasePast:
		return Phase(value), true
	default:
		return "", false
	}
}
