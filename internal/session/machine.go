// Package session implements the guided-session state machine: phase,
// step index, and per-item completion, mutated only through the navigation
// operations.
package session

import (
	"time"

	"github.com/hammamikhairi/sousvox/internal/domain"
	"github.com/hammamikhairi/sousvox/internal/feedback"
	"github.com/hammamikhairi/sousvox/internal/logger"
)

// Machine walks one guide through its two phases. Every operation returns
// the feedback text to enqueue and never touches audio. Boundary
// conditions are not errors; they resolve to informational text without
// mutation.
//
// The orchestrator is the machine's only caller and serializes access, so
// no locking is needed here.
type Machine struct {
	guide *domain.GuideData
	log   *logger.Logger
	s     domain.Session
}

// New creates a state machine positioned at the first prep item.
func New(guide *domain.GuideData, log *logger.Logger) *Machine {
	return &Machine{
		guide: guide,
		log:   log,
		s: domain.Session{
			Phase:     domain.PhasePreparation,
			Completed: make(map[int]struct{}),
			OpenedAt:  time.Now(),
		},
	}
}

// Next advances the walk. In Preparation the current item is marked
// complete first; at the last item the machine reports ready-to-cook
// without advancing. In Cooking the last instruction yields the completion
// message, again without advancing.
func (m *Machine) Next() string {
	switch m.s.Phase {
	case domain.PhasePreparation:
		items := m.guide.Items
		if len(items) == 0 {
			return feedback.LineReadyToCook(m.guide.Title)
		}
		cur := items[m.s.StepIndex]
		m.s.Completed[cur.ID] = struct{}{}
		if m.s.StepIndex >= len(items)-1 {
			m.log.Debug("session: all %d items gathered", len(items))
			return feedback.LineReadyToCook(m.guide.Title)
		}
		m.s.StepIndex++
		return feedback.LineItem(m.s.StepIndex+1, len(items), items[m.s.StepIndex])

	default: // cooking
		instr := m.guide.Instructions
		if len(instr) == 0 || m.s.StepIndex >= len(instr)-1 {
			m.log.Debug("session: reached last instruction")
			return feedback.LineAllDone(m.guide.Title)
		}
		m.s.StepIndex++
		return feedback.LineInstruction(m.s.StepIndex+1, len(instr), instr[m.s.StepIndex])
	}
}

// Previous steps back one position, flooring at zero.
func (m *Machine) Previous() string {
	if m.s.StepIndex == 0 {
		return feedback.LineFirstStep()
	}
	m.s.StepIndex--
	return m.currentText()
}

// Repeat restates the current step without mutation.
func (m *Machine) Repeat() string {
	return m.currentText()
}

// CompleteItem checks off the current prep item. Idempotent: completing an
// already-completed item returns the same confirmation. Meaningless while
// cooking.
func (m *Machine) CompleteItem() string {
	if m.s.Phase != domain.PhasePreparation {
		return feedback.LineNotPreparing()
	}
	items := m.guide.Items
	if len(items) == 0 {
		return feedback.LineReadyToCook(m.guide.Title)
	}
	cur := items[m.s.StepIndex]
	m.s.Completed[cur.ID] = struct{}{}
	return feedback.LineItemDone(cur)
}

// AdvancePhase moves from Preparation to Cooking, but only once every
// item is checked off. Early attempts report how many remain.
func (m *Machine) AdvancePhase() string {
	if m.s.Phase == domain.PhaseCooking {
		return feedback.LineAlreadyCooking()
	}
	remaining := len(m.guide.Items) - len(m.s.Completed)
	if remaining > 0 {
		m.log.Debug("session: phase advance blocked, %d items remaining", remaining)
		return feedback.LineItemsRemaining(remaining)
	}

	m.s.Phase = domain.PhaseCooking
	m.s.StepIndex = 0
	m.log.Info("session: entering cooking phase (%d instructions)", len(m.guide.Instructions))

	if len(m.guide.Instructions) == 0 {
		return feedback.LineAllDone(m.guide.Title)
	}
	return feedback.LineCookingStart(m.guide.Title, m.guide.Instructions[0])
}

// Phase returns the current phase.
func (m *Machine) Phase() domain.Phase {
	return m.s.Phase
}

// StepIndex returns the current step index within the phase.
func (m *Machine) StepIndex() int {
	return m.s.StepIndex
}

// CompletedCount returns how many prep items are checked off.
func (m *Machine) CompletedCount() int {
	return len(m.s.Completed)
}

// Completed reports whether the prep item with the given ID is checked off.
func (m *Machine) Completed(id int) bool {
	_, ok := m.s.Completed[id]
	return ok
}

// Reset discards all progress, returning the machine to the first prep
// item. Called on session close.
func (m *Machine) Reset() {
	m.s = domain.Session{
		Phase:     domain.PhasePreparation,
		Completed: make(map[int]struct{}),
		OpenedAt:  m.s.OpenedAt,
	}
}

// currentText renders the step the machine is positioned on.
func (m *Machine) currentText() string {
	if m.s.Phase == domain.PhasePreparation {
		items := m.guide.Items
		if len(items) == 0 {
			return feedback.LineReadyToCook(m.guide.Title)
		}
		return feedback.LineItem(m.s.StepIndex+1, len(items), items[m.s.StepIndex])
	}
	instr := m.guide.Instructions
	if len(instr) == 0 {
		return feedback.LineAllDone(m.guide.Title)
	}
	return feedback.LineInstruction(m.s.StepIndex+1, len(instr), instr[m.s.StepIndex])
}
