package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/sousvox/internal/logger"
)

// fakeSynth records synthesis requests and can be told to fail.
type fakeSynth struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.fail {
		return nil, errors.New("synthesis unavailable")
	}
	return []byte(text), nil
}

func (f *fakeSynth) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeOutput records played clips.
type fakeOutput struct {
	mu      sync.Mutex
	played  []string
	stopped int
}

func (f *fakeOutput) Play(wav []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, string(wav))
	return nil
}

func (f *fakeOutput) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeOutput) clips() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

// fakeFallback records locally spoken lines.
type fakeFallback struct {
	mu     sync.Mutex
	spoken []string
	fail   bool
}

func (f *fakeFallback) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("no local synthesizer")
	}
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeFallback) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

// fakeSuppressor records the suppress/resume sequence.
type fakeSuppressor struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeSuppressor) Suppress() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "suppress")
}

func (f *fakeSuppressor) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "resume")
}

func (f *fakeSuppressor) sequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func waitIdle(t *testing.T, q *Queue) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.Idle() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("queue did not go idle")
}

func TestEnqueueOrder(t *testing.T) {
	synth := &fakeSynth{}
	out := &fakeOutput{}
	q := New(synth, out, nil, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.Enqueue("one")
	q.Enqueue("two")
	q.Enqueue("three")
	waitIdle(t, q)

	want := []string{"one", "two", "three"}
	got := out.clips()
	if len(got) != len(want) {
		t.Fatalf("played %d clips, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("clip %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSuppressAroundDrain(t *testing.T) {
	synth := &fakeSynth{}
	out := &fakeOutput{}
	supp := &fakeSuppressor{}
	q := New(synth, out, supp, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.Enqueue("hello")
	waitIdle(t, q)

	// Resume fires after the drain finishes; give it a moment.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(supp.sequence()) >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	seq := supp.sequence()
	if len(seq) < 2 || seq[0] != "suppress" || seq[len(seq)-1] != "resume" {
		t.Fatalf("suppression sequence = %v, want suppress ... resume", seq)
	}
}

func TestFallbackOnSynthFailure(t *testing.T) {
	synth := &fakeSynth{fail: true}
	out := &fakeOutput{}
	fb := &fakeFallback{}
	q := New(synth, out, nil, logger.Nop(), WithFallback(fb))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.Enqueue("step one")
	waitIdle(t, q)

	if len(out.clips()) != 0 {
		t.Fatalf("played remote clips despite failure: %v", out.clips())
	}
	if got := fb.texts(); len(got) != 1 || got[0] != "step one" {
		t.Fatalf("fallback spoke %v, want [step one]", got)
	}
}

// callTrace records the interleaving of suppression and fallback calls.
type callTrace struct {
	mu     sync.Mutex
	events []string
}

func (c *callTrace) add(ev string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *callTrace) sequence() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

type tracingSuppressor struct{ trace *callTrace }

func (s tracingSuppressor) Suppress() { s.trace.add("suppress") }
func (s tracingSuppressor) Resume()   { s.trace.add("resume") }

// tracingFallback blocks briefly in Speak, the way espeak playback does.
type tracingFallback struct{ trace *callTrace }

func (f tracingFallback) Speak(ctx context.Context, text string) error {
	f.trace.add("speak-start")
	time.Sleep(20 * time.Millisecond)
	f.trace.add("speak-end")
	return nil
}

// With the remote provider down, capture must stay suppressed until the
// local fallback's playback has fully completed.
func TestFallbackCompletesBeforeResume(t *testing.T) {
	trace := &callTrace{}
	q := New(&fakeSynth{fail: true}, &fakeOutput{}, tracingSuppressor{trace}, logger.Nop(),
		WithFallback(tracingFallback{trace}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.Enqueue("preheat the oven")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(trace.sequence()) >= 4 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := []string{"suppress", "speak-start", "speak-end", "resume"}
	got := trace.sequence()
	if len(got) != len(want) {
		t.Fatalf("call sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call sequence = %v, want %v", got, want)
		}
	}
}

// A drain cut short by ctx cancellation must still lift suppression.
func TestCancelledDrainStillResumes(t *testing.T) {
	release := make(chan struct{})
	synth := &blockingSynth{release: release, started: make(chan struct{})}
	supp := &fakeSuppressor{}
	q := New(synth, &fakeOutput{}, supp, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	q.Enqueue("one")
	q.Enqueue("two")
	synth.waitEntered(t)

	cancel()
	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		seq := supp.sequence()
		if len(seq) > 0 && seq[len(seq)-1] == "resume" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("suppression never lifted: %v", supp.sequence())
}

func TestTotalFailureDropsItem(t *testing.T) {
	synth := &fakeSynth{fail: true}
	out := &fakeOutput{}
	fb := &fakeFallback{fail: true}
	q := New(synth, out, nil, logger.Nop(), WithFallback(fb))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.Enqueue("doomed")
	q.Enqueue("survivor")
	waitIdle(t, q)

	// Both items were attempted; neither blocked the drain.
	if got := synth.texts(); len(got) != 2 {
		t.Fatalf("synthesis attempts = %v, want both items", got)
	}
	if q.Len() != 0 {
		t.Fatalf("queue still holds %d items", q.Len())
	}
}

func TestClearDropsPending(t *testing.T) {
	synth := &fakeSynth{}
	out := &fakeOutput{}
	q := New(synth, out, nil, logger.Nop())

	// Not started: items stay queued until a drain runs.
	q.Enqueue("one")
	q.Enqueue("two")
	if q.Len() != 2 {
		t.Fatalf("queue length = %d, want 2", q.Len())
	}

	q.Clear()

	if q.Len() != 0 {
		t.Fatalf("queue length after Clear = %d, want 0", q.Len())
	}
	out.mu.Lock()
	stopped := out.stopped
	out.mu.Unlock()
	if stopped != 1 {
		t.Fatalf("output Stop called %d times, want 1", stopped)
	}
}

func TestClearDiscardsInFlightSynthesis(t *testing.T) {
	// A synthesizer that blocks until released, so Clear can run while
	// synthesis is in flight.
	release := make(chan struct{})
	synth := &blockingSynth{release: release, started: make(chan struct{})}
	out := &fakeOutput{}
	q := New(synth, out, nil, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.Enqueue("in flight")
	synth.waitEntered(t)

	q.Clear()
	close(release)
	waitIdle(t, q)

	if got := out.clips(); len(got) != 0 {
		t.Fatalf("cleared item still played: %v", got)
	}
}

type blockingSynth struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (b *blockingSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return []byte(text), nil
}

func (b *blockingSynth) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-b.started:
	case <-time.After(2 * time.Second):
		t.Fatal("synthesis never started")
	}
}

func TestEmptyTextIgnored(t *testing.T) {
	q := New(&fakeSynth{}, &fakeOutput{}, nil, logger.Nop())
	q.Enqueue("")
	if q.Len() != 0 {
		t.Fatalf("empty text was queued")
	}
}
