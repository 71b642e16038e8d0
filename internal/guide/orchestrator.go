// Package guide wires the guided-session components together: capture
// events flow through the matcher, matched actions mutate the session
// state machine, and the resulting feedback text is scheduled on the
// queue. The orchestrator owns the open/close lifecycle.
package guide

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/sousvox/internal/capture"
	"github.com/hammamikhairi/sousvox/internal/domain"
	"github.com/hammamikhairi/sousvox/internal/feedback"
	"github.com/hammamikhairi/sousvox/internal/logger"
	"github.com/hammamikhairi/sousvox/internal/match"
	"github.com/hammamikhairi/sousvox/internal/session"
	"github.com/hammamikhairi/sousvox/internal/vocab"
)

// Orchestrator runs one guided session at a time. The host application
// calls Open when the user enters hands-free mode and Close when they
// leave; in between, everything is driven by capture events.
type Orchestrator struct {
	source  domain.GuideSource
	matcher *match.Matcher
	capture *capture.Controller
	queue   *feedback.Queue
	log     *logger.Logger

	mu      sync.Mutex
	ctx     context.Context
	machine *session.Machine
	guide   *domain.GuideData
	open    bool
}

// New creates an orchestrator and registers it as the capture
// controller's utterance consumer.
func New(source domain.GuideSource, matcher *match.Matcher, cap *capture.Controller, queue *feedback.Queue, log *logger.Logger) *Orchestrator {
	o := &Orchestrator{
		source:  source,
		matcher: matcher,
		capture: cap,
		queue:   queue,
		log:     log,
	}
	cap.OnFinalUtterance(o.handleUtterance)
	return o
}

// Open starts a guided session for the given guide: loads the step data,
// speaks the welcome and the first ingredient, and begins capture.
func (o *Orchestrator) Open(ctx context.Context, guideID string) error {
	o.mu.Lock()
	if o.open {
		o.mu.Unlock()
		return domain.ErrSessionOpen
	}
	o.mu.Unlock()

	g, err := o.source.Get(ctx, guideID)
	if err != nil {
		return fmt.Errorf("loading guide %q: %w", guideID, err)
	}

	o.mu.Lock()
	o.ctx = ctx
	o.guide = g
	o.machine = session.New(g, o.log)
	o.open = true
	o.mu.Unlock()

	o.log.Info("guide: session opened for %q (%d items, %d instructions)",
		g.Title, len(g.Items), len(g.Instructions))

	o.queue.Enqueue(feedback.LineWelcome(g.Title, len(g.Items)))
	o.queue.Enqueue(o.machine.Repeat())
	o.queue.Prefetch(ctx, vocab.HelpText(), feedback.LineReadyToCook(g.Title))

	o.capture.Start(ctx)
	return nil
}

// Close tears the session down: undrained feedback is dropped, capture
// stops for good, and session state is discarded.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if !o.open {
		o.mu.Unlock()
		return domain.ErrSessionClosed
	}
	o.open = false
	machine := o.machine
	o.machine = nil
	o.guide = nil
	o.mu.Unlock()

	o.queue.Clear()
	o.capture.Shutdown()
	if machine != nil {
		machine.Reset()
	}

	o.log.Info("guide: session closed")
	return nil
}

// Machine exposes the live state machine, or nil when no session is open.
// The host uses it for display only.
func (o *Orchestrator) Machine() *session.Machine {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine
}

// HandleText routes typed input through the same match-and-apply pipeline
// as voice. Lets the host offer a keyboard fallback.
func (o *Orchestrator) HandleText(text string) {
	action, ok := o.matcher.Match(text)
	if !ok {
		o.log.Debug("guide: unmatched input: %q", text)
		return
	}
	o.apply(action)
}

// handleUtterance is the capture controller's final-utterance callback.
// Utterances heard while suppressed are discarded — that is the primary
// defense against the queue's own playback being captured as a command.
func (o *Orchestrator) handleUtterance(u domain.Utterance) {
	if o.capture.Suppressed() {
		o.log.Debug("guide: ignoring utterance during suppression: %q", u.Text)
		return
	}

	o.mu.Lock()
	open := o.open
	o.mu.Unlock()
	if !open {
		return
	}

	action, ok := o.matcher.Match(u.Text)
	if !ok {
		// Most open-microphone noise is not a command. Not an error.
		o.log.Debug("guide: unmatched utterance: %q", u.Text)
		return
	}

	o.log.Info("guide: %q -> %s", u.Text, action)
	o.apply(action)
}

// apply executes one recognized action against the session state machine
// and schedules the resulting feedback.
func (o *Orchestrator) apply(action domain.Action) {
	o.mu.Lock()
	m := o.machine
	ctx := o.ctx
	o.mu.Unlock()
	if m == nil {
		return
	}

	switch action {
	case domain.ActionNext:
		o.queue.Enqueue(m.Next())
	case domain.ActionPrevious:
		o.queue.Enqueue(m.Previous())
	case domain.ActionRepeat:
		o.queue.Enqueue(m.Repeat())
	case domain.ActionCompleteItem:
		o.queue.Enqueue(m.CompleteItem())
	case domain.ActionStartCooking:
		o.queue.Enqueue(m.AdvancePhase())
	case domain.ActionMute:
		o.capture.Stop(true)
		o.queue.Enqueue(feedback.LineMuted())
	case domain.ActionUnmute:
		o.capture.Start(ctx)
		o.queue.Enqueue(feedback.LineUnmuted())
	case domain.ActionHelp:
		o.queue.Enqueue(vocab.HelpText())
	}
}
