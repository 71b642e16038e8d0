// Package capture owns the lifecycle of continuous speech capture: start,
// stop, auto-restart on unexpected termination, suppression while feedback
// plays, and classification of capture errors into retryable and fatal.
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/sousvox/internal/domain"
	"github.com/hammamikhairi/sousvox/internal/logger"
)

// defaultTrailingDelay is how long after playback ends before listening
// resumes, so reverberation and tail audio aren't captured as a new
// utterance.
const defaultTrailingDelay = 400 * time.Millisecond

// Option configures the controller.
type Option func(*Controller)

// WithRetryPolicy sets the auto-restart schedule.
func WithRetryPolicy(p *RetryPolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithTrailingDelay sets the pause between playback ending and listening
// resuming.
func WithTrailingDelay(d time.Duration) Option {
	return func(c *Controller) { c.trailing = d }
}

// Controller drives a Recognizer through the capture state machine:
// Stopped -> Listening -> (Suppressed while feedback plays) -> Listening.
//
// Transient capture errors are swallowed and recovered through the retry
// policy; fatal errors surface once through the notifier and leave capture
// stopped until Start is called again. All methods are safe for concurrent
// use.
type Controller struct {
	rec      domain.Recognizer
	notifier domain.Notifier
	log      *logger.Logger
	policy   *RetryPolicy
	trailing time.Duration

	mu              sync.Mutex
	runCtx          context.Context
	open            bool
	listening       bool
	suppressed      bool
	manuallyStopped bool
	fatal           bool
	expectStop      bool // next CaptureEnded is ours, don't auto-restart
	pendingResume   bool // resume elapsed while the recognizer was winding down
	attempts        int
	loopRunning     bool
	resumeTimer     *time.Timer
	restartTimer    *time.Timer
	onFinal         func(domain.Utterance)
}

// New creates a capture controller over the given recognizer. notifier
// receives the user-visible warnings for fatal failures; it must be
// non-nil.
func New(rec domain.Recognizer, notifier domain.Notifier, log *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		rec:      rec,
		notifier: notifier,
		log:      log,
		policy:   NewRetryPolicy(),
		trailing: defaultTrailingDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnFinalUtterance registers the callback invoked once per finalized
// utterance. Interim results never reach it.
func (c *Controller) OnFinalUtterance(cb func(domain.Utterance)) {
	c.mu.Lock()
	c.onFinal = cb
	c.mu.Unlock()
}

// Start begins continuous capture. It never returns an error to the
// caller: failures are logged, and only non-transient classes surface as
// user-visible warnings. Calling Start clears a previous manual stop or
// fatal condition.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.runCtx = ctx
	c.open = true
	c.manuallyStopped = false
	c.fatal = false
	c.attempts = 0
	startLoop := !c.loopRunning
	c.loopRunning = startLoop || c.loopRunning
	alreadyListening := c.listening
	suppressed := c.suppressed
	c.mu.Unlock()

	if startLoop {
		go c.eventLoop(ctx)
	}
	if alreadyListening {
		return
	}
	if suppressed {
		// Feedback is still playing. Opening the microphone now would
		// capture it; finishResume starts the recognizer once the
		// trailing delay runs out.
		c.log.Debug("capture: start deferred until suppression lifts")
		return
	}

	if err := c.rec.Start(ctx); err != nil {
		c.handleStartError(ctx, err)
	}
}

// Stop ends capture. A manual stop disables auto-restart until Start is
// called again explicitly.
func (c *Controller) Stop(manual bool) {
	c.mu.Lock()
	if manual {
		c.manuallyStopped = true
	}
	if c.listening {
		c.expectStop = true
	}
	c.pendingResume = false
	c.cancelTimersLocked()
	c.mu.Unlock()

	c.rec.Stop()
	c.log.Debug("capture: stopped (manual=%v)", manual)
}

// Shutdown marks the session closed and stops capture for good. Used on
// session close; after Shutdown no auto-restart will fire.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	c.Stop(true)
}

// Suppress stops any in-flight capture and holds off auto-restart while
// feedback is playing.
func (c *Controller) Suppress() {
	c.mu.Lock()
	c.suppressed = true
	c.pendingResume = false
	if c.resumeTimer != nil {
		c.resumeTimer.Stop()
		c.resumeTimer = nil
	}
	wasListening := c.listening
	if wasListening {
		c.expectStop = true
	}
	c.mu.Unlock()

	if wasListening {
		c.rec.Stop()
	}
	c.log.Debug("capture: suppressed")
}

// Resume lifts suppression after the trailing delay and restarts capture
// if nothing else holds it stopped.
func (c *Controller) Resume() {
	c.mu.Lock()
	if !c.suppressed {
		c.mu.Unlock()
		return
	}
	if c.resumeTimer != nil {
		c.resumeTimer.Stop()
	}
	c.resumeTimer = time.AfterFunc(c.trailing, c.finishResume)
	c.mu.Unlock()
}

// finishResume runs once the trailing delay elapses.
func (c *Controller) finishResume() {
	c.mu.Lock()
	c.suppressed = false
	c.resumeTimer = nil
	if c.listening {
		// The recognizer is still winding down the chunk in flight from
		// the suppression stop. Restart when its Ended event lands
		// instead of declining, or capture stays down for good.
		c.pendingResume = c.open && !c.manuallyStopped && !c.fatal
		c.mu.Unlock()
		c.log.Debug("capture: resume pending recognizer stop")
		return
	}
	eligible := c.open && !c.manuallyStopped && !c.fatal
	ctx := c.runCtx
	c.mu.Unlock()

	c.log.Debug("capture: resumed (restarting=%v)", eligible)
	if !eligible {
		return
	}
	if err := c.rec.Start(ctx); err != nil {
		c.log.Error("capture: restart after resume failed: %v", err)
		c.scheduleRestart(ctx)
	}
}

// Listening reports whether capture is actively recording.
func (c *Controller) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// Suppressed reports whether capture is held off for playback.
func (c *Controller) Suppressed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suppressed
}

// ManuallyStopped reports whether the user stopped capture explicitly.
func (c *Controller) ManuallyStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manuallyStopped
}

// ── Event handling ───────────────────────────────────────────────

// eventLoop consumes the recognizer's event stream until ctx is cancelled
// or the stream closes.
func (c *Controller) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.rec.Events():
			if !ok {
				return
			}
			c.handleEvent(ctx, ev)
		}
	}
}

func (c *Controller) handleEvent(ctx context.Context, ev domain.CaptureEvent) {
	switch ev.Kind {
	case domain.CaptureStarted:
		c.mu.Lock()
		c.listening = true
		c.attempts = 0
		c.mu.Unlock()
		c.log.Debug("capture: listening")

	case domain.CaptureTranscript:
		c.handleTranscript(ev)

	case domain.CaptureEnded:
		c.mu.Lock()
		c.listening = false
		expected := c.expectStop
		c.expectStop = false
		pending := c.pendingResume
		c.pendingResume = false
		eligible := c.restartEligibleLocked()
		c.mu.Unlock()

		if expected && !pending {
			c.log.Debug("capture: ended (expected)")
			return
		}
		if !eligible {
			c.log.Debug("capture: ended (expected=%v), restart not eligible", expected)
			return
		}
		if pending {
			// Suppression already lifted while this stop was in flight;
			// the trailing delay has been served, restart right away.
			c.log.Debug("capture: ended after resume, restarting")
			if err := c.rec.Start(ctx); err != nil {
				c.log.Error("capture: restart after resume failed: %v", err)
				c.scheduleRestart(ctx)
			}
			return
		}
		c.log.Warn("capture: stream ended unexpectedly, scheduling restart")
		c.scheduleRestart(ctx)

	case domain.CaptureError:
		c.handleError(ctx, ev)
	}
}

func (c *Controller) handleTranscript(ev domain.CaptureEvent) {
	if !ev.IsFinal {
		// Only final transcripts carry a command.
		return
	}

	c.mu.Lock()
	suppressed := c.suppressed
	cb := c.onFinal
	c.mu.Unlock()

	if suppressed {
		c.log.Debug("capture: dropping utterance heard during suppression: %q", ev.Transcript)
		return
	}
	if cb == nil {
		return
	}

	cb(domain.Utterance{
		Text:      ev.Transcript,
		IsFinal:   true,
		Timestamp: ev.Timestamp,
	})
}

func (c *Controller) handleError(ctx context.Context, ev domain.CaptureEvent) {
	if ev.ErrKind.Transient() {
		c.log.Debug("capture: transient error (%s): %v", ev.ErrKind, ev.Err)
		c.mu.Lock()
		c.listening = false
		eligible := c.restartEligibleLocked()
		c.mu.Unlock()
		if eligible {
			c.scheduleRestart(ctx)
		}
		return
	}

	c.log.Error("capture: fatal error (%s): %v", ev.ErrKind, ev.Err)
	c.mu.Lock()
	c.listening = false
	c.fatal = true
	c.mu.Unlock()
	c.notifier.NotifyUrgent(ctx, fmt.Sprintf("Voice capture unavailable (%s). Restart the microphone to try again.", ev.ErrKind))
}

// handleStartError deals with a failed explicit Start.
func (c *Controller) handleStartError(ctx context.Context, err error) {
	kind := classifyError(err)
	if kind.Transient() {
		c.log.Warn("capture: start failed (%s), will retry: %v", kind, err)
		c.scheduleRestart(ctx)
		return
	}
	c.log.Error("capture: start failed (%s): %v", kind, err)
	c.mu.Lock()
	c.fatal = true
	c.mu.Unlock()
	c.notifier.NotifyUrgent(ctx, fmt.Sprintf("Voice capture unavailable (%s). Restart the microphone to try again.", kind))
}

// ── Restart policy ───────────────────────────────────────────────

// restartEligibleLocked checks the three auto-restart preconditions:
// session open, not manually stopped, not suppressed. Callers hold c.mu.
func (c *Controller) restartEligibleLocked() bool {
	return c.open && !c.manuallyStopped && !c.suppressed && !c.fatal
}

// scheduleRestart arms the next restart attempt, or gives up and reports a
// recoverable error once the policy is exhausted.
func (c *Controller) scheduleRestart(ctx context.Context) {
	c.mu.Lock()
	attempt := c.attempts
	if attempt >= c.policy.MaxAttempts() {
		c.mu.Unlock()
		c.log.Warn("capture: giving up after %d restart attempts", attempt)
		c.notifier.Notify(ctx, "Voice capture stopped. Restart the microphone to keep using voice commands.")
		return
	}
	c.attempts++
	delay := c.policy.Delay(attempt)
	if c.restartTimer != nil {
		c.restartTimer.Stop()
	}
	c.restartTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		eligible := c.restartEligibleLocked() && !c.listening
		c.mu.Unlock()
		if !eligible {
			return
		}
		c.log.Info("capture: restart attempt %d", attempt+1)
		if err := c.rec.Start(ctx); err != nil {
			c.log.Error("capture: restart attempt %d failed: %v", attempt+1, err)
			c.scheduleRestart(ctx)
		}
	})
	c.mu.Unlock()
	c.log.Debug("capture: restart attempt %d armed in %s", attempt+1, delay)
}

// cancelTimersLocked stops pending restart and resume timers. Callers
// hold c.mu.
func (c *Controller) cancelTimersLocked() {
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
	if c.resumeTimer != nil {
		c.resumeTimer.Stop()
		c.resumeTimer = nil
	}
}
