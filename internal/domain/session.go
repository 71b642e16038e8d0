package domain

import "time"

// Session is the state of one open guided session. It is created when the
// session opens, mutated only through the session state machine, and
// discarded on close — nothing is persisted across sessions.
type Session struct {
	Phase     Phase
	StepIndex int
	Completed map[int]struct{} // prep item IDs marked done
	OpenedAt  time.Time
}

// Phase is one of the two stages of a guided session.
type Phase int

const (
	// PhasePreparation walks the ingredient list.
	PhasePreparation Phase = iota
	// PhaseCooking walks the instruction list.
	PhaseCooking
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhasePreparation:
		return "preparation"
	case PhaseCooking:
		return "cooking"
	default:
		return "unknown"
	}
}

// Utterance is one finalized unit of transcribed speech. Interim results
// never reach the controller; the capture layer discards them.
type Utterance struct {
	Text      string
	IsFinal   bool
	Timestamp time.Time
}
