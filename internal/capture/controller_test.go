package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/sousvox/internal/domain"
	"github.com/hammamikhairi/sousvox/internal/logger"
)

// fakeRecognizer feeds scripted capture events and counts lifecycle calls.
type fakeRecognizer struct {
	mu       sync.Mutex
	events   chan domain.CaptureEvent
	starts   int
	stops    int
	failFrom int // Start calls numbered >= failFrom return an error; 0 disables
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{events: make(chan domain.CaptureEvent, 16)}
}

func (f *fakeRecognizer) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.failFrom > 0 && f.starts >= f.failFrom {
		return errors.New("connection reset")
	}
	return nil
}

func (f *fakeRecognizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeRecognizer) Events() <-chan domain.CaptureEvent {
	return f.events
}

func (f *fakeRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeRecognizer) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeRecognizer) emit(ev domain.CaptureEvent) {
	f.events <- ev
}

// fakeNotifier records delivered messages.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	urgent   []string
}

func (f *fakeNotifier) Notify(ctx context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeNotifier) NotifyUrgent(ctx context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urgent = append(f.urgent, message)
	return nil
}

func (f *fakeNotifier) notifyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeNotifier) urgentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urgent)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func setupController(t *testing.T, rec *fakeRecognizer, opts ...Option) (*Controller, *fakeNotifier, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	notifier := &fakeNotifier{}
	base := []Option{
		WithRetryPolicy(NewRetryPolicy(2*time.Millisecond, 5*time.Millisecond)),
		WithTrailingDelay(5 * time.Millisecond),
	}
	c := New(rec, notifier, logger.Nop(), append(base, opts...)...)
	return c, notifier, ctx
}

func TestFinalUtterancesForwarded(t *testing.T) {
	rec := newFakeRecognizer()
	c, _, ctx := setupController(t, rec)

	var mu sync.Mutex
	var heard []string
	c.OnFinalUtterance(func(u domain.Utterance) {
		mu.Lock()
		heard = append(heard, u.Text)
		mu.Unlock()
	})

	c.Start(ctx)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureStarted})
	waitFor(t, "listening", c.Listening)

	rec.emit(domain.CaptureEvent{Kind: domain.CaptureTranscript, Transcript: "interim", IsFinal: false})
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureTranscript, Transcript: "next step", IsFinal: true, Timestamp: time.Now()})

	waitFor(t, "utterance", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(heard) > 0
	})

	mu.Lock()
	defer mu.Unlock()
	if len(heard) != 1 || heard[0] != "next step" {
		t.Fatalf("heard %v, want [next step]", heard)
	}
}

func TestSuppressDropsUtterancesAndStopsCapture(t *testing.T) {
	rec := newFakeRecognizer()
	c, _, ctx := setupController(t, rec)

	var mu sync.Mutex
	var heard []string
	c.OnFinalUtterance(func(u domain.Utterance) {
		mu.Lock()
		heard = append(heard, u.Text)
		mu.Unlock()
	})

	c.Start(ctx)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureStarted})
	waitFor(t, "listening", c.Listening)

	c.Suppress()
	if rec.stopCount() != 1 {
		t.Fatalf("recognizer Stop called %d times, want 1", rec.stopCount())
	}

	// Audio that leaks through while suppressed is discarded.
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureTranscript, Transcript: "step two simmer the stock", IsFinal: true})
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureEnded})

	c.Resume()
	waitFor(t, "restart after resume", func() bool { return rec.startCount() >= 2 })

	mu.Lock()
	defer mu.Unlock()
	if len(heard) != 0 {
		t.Fatalf("suppressed utterances were forwarded: %v", heard)
	}
}

// The whisper backend lets an in-flight chunk finish after Stop, so the
// trailing delay can elapse before the Ended event arrives. Capture must
// still come back once it does.
func TestResumeBeforeEndedRestarts(t *testing.T) {
	rec := newFakeRecognizer()
	c, _, ctx := setupController(t, rec)

	c.Start(ctx)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureStarted})
	waitFor(t, "listening", c.Listening)

	c.Suppress()
	c.Resume()
	waitFor(t, "suppression lifted", func() bool { return !c.Suppressed() })

	// Recognizer still winding down: no restart yet.
	time.Sleep(10 * time.Millisecond)
	if got := rec.startCount(); got != 1 {
		t.Fatalf("restarted before the recognizer stopped: %d starts", got)
	}

	rec.emit(domain.CaptureEvent{Kind: domain.CaptureEnded})
	waitFor(t, "restart after late Ended", func() bool { return rec.startCount() >= 2 })
}

// A late Ended must not trigger a restart when capture was re-suppressed
// or manually stopped in the meantime.
func TestLateEndedHonorsManualStop(t *testing.T) {
	rec := newFakeRecognizer()
	c, _, ctx := setupController(t, rec)

	c.Start(ctx)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureStarted})
	waitFor(t, "listening", c.Listening)

	c.Suppress()
	c.Resume()
	waitFor(t, "suppression lifted", func() bool { return !c.Suppressed() })

	c.Stop(true)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureEnded})

	time.Sleep(20 * time.Millisecond)
	if got := rec.startCount(); got != 1 {
		t.Fatalf("restarted despite manual stop: %d starts", got)
	}
}

// An explicit Start during suppression (typed unmute while feedback is
// playing) must not open the microphone; the restart belongs to the
// resume path.
func TestStartWhileSuppressedWaitsForResume(t *testing.T) {
	rec := newFakeRecognizer()
	c, _, ctx := setupController(t, rec)

	c.Start(ctx)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureStarted})
	waitFor(t, "listening", c.Listening)

	c.Suppress()
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureEnded})
	waitFor(t, "stopped", func() bool { return !c.Listening() })

	c.Stop(true)
	c.Start(ctx)
	if got := rec.startCount(); got != 1 {
		t.Fatalf("capture started during suppression: %d starts", got)
	}

	c.Resume()
	waitFor(t, "restart after resume", func() bool { return rec.startCount() >= 2 })
}

func TestUnexpectedEndTriggersRestart(t *testing.T) {
	rec := newFakeRecognizer()
	c, _, ctx := setupController(t, rec)

	c.Start(ctx)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureStarted})
	waitFor(t, "listening", c.Listening)

	rec.emit(domain.CaptureEvent{Kind: domain.CaptureEnded})
	waitFor(t, "auto restart", func() bool { return rec.startCount() >= 2 })
}

func TestRestartGivesUpAfterPolicy(t *testing.T) {
	rec := newFakeRecognizer()
	rec.failFrom = 2 // initial Start succeeds, every restart fails
	c, notifier, ctx := setupController(t, rec)

	c.Start(ctx)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureStarted})
	waitFor(t, "listening", c.Listening)

	rec.emit(domain.CaptureEvent{Kind: domain.CaptureEnded})

	// Two failed attempts, then a recoverable notification.
	waitFor(t, "give-up notification", func() bool { return notifier.notifyCount() >= 1 })
	if got := rec.startCount(); got != 3 {
		t.Fatalf("recognizer started %d times, want 3 (initial + 2 retries)", got)
	}
}

func TestManualStopDisablesRestart(t *testing.T) {
	rec := newFakeRecognizer()
	c, _, ctx := setupController(t, rec)

	c.Start(ctx)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureStarted})
	waitFor(t, "listening", c.Listening)

	c.Stop(true)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureEnded})

	time.Sleep(20 * time.Millisecond)
	if got := rec.startCount(); got != 1 {
		t.Fatalf("recognizer restarted after manual stop: %d starts", got)
	}
	if !c.ManuallyStopped() {
		t.Fatal("manual stop not recorded")
	}

	// An explicit Start clears the manual stop.
	c.Start(ctx)
	if got := rec.startCount(); got != 2 {
		t.Fatalf("explicit Start after manual stop: %d starts, want 2", got)
	}
}

func TestFatalErrorNotifiesAndStaysDown(t *testing.T) {
	rec := newFakeRecognizer()
	c, notifier, ctx := setupController(t, rec)

	c.Start(ctx)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureStarted})
	waitFor(t, "listening", c.Listening)

	rec.emit(domain.CaptureEvent{
		Kind:    domain.CaptureError,
		ErrKind: domain.ErrKindPermission,
		Err:     errors.New("microphone permission denied"),
	})

	waitFor(t, "urgent notification", func() bool { return notifier.urgentCount() >= 1 })

	time.Sleep(20 * time.Millisecond)
	if got := rec.startCount(); got != 1 {
		t.Fatalf("recognizer restarted after fatal error: %d starts", got)
	}
	if c.Listening() {
		t.Fatal("still listening after fatal error")
	}
}

func TestTransientErrorRestarts(t *testing.T) {
	rec := newFakeRecognizer()
	c, _, ctx := setupController(t, rec)

	c.Start(ctx)
	rec.emit(domain.CaptureEvent{Kind: domain.CaptureStarted})
	waitFor(t, "listening", c.Listening)

	rec.emit(domain.CaptureEvent{
		Kind:    domain.CaptureError,
		ErrKind: domain.ErrKindNoSpeech,
		Err:     errors.New("no speech detected"),
	})

	waitFor(t, "restart after transient error", func() bool { return rec.startCount() >= 2 })
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		msg  string
		want domain.CaptureErrorKind
	}{
		{"permission denied", domain.ErrKindPermission},
		{"no such device", domain.ErrKindDevice},
		{"connection timeout", domain.ErrKindNetwork},
		{"operation aborted", domain.ErrKindAborted},
		{"something odd", domain.ErrKindUnknown},
	}

	for _, tt := range tests {
		if got := classifyError(errors.New(tt.msg)); got != tt.want {
			t.Fatalf("classifyError(%q) = %s, want %s", tt.msg, got, tt.want)
		}
	}
}

func TestRetryPolicy(t *testing.T) {
	p := NewRetryPolicy()
	if p.MaxAttempts() != 2 {
		t.Fatalf("default MaxAttempts = %d, want 2", p.MaxAttempts())
	}
	if p.Delay(0) != 1*time.Second || p.Delay(1) != 4*time.Second {
		t.Fatalf("default delays = %s, %s", p.Delay(0), p.Delay(1))
	}
	// Past the schedule the final delay repeats.
	if p.Delay(5) != 4*time.Second {
		t.Fatalf("Delay(5) = %s, want 4s", p.Delay(5))
	}
}
