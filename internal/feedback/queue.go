package feedback

import (
	"context"
	"sync"

	"github.com/hammamikhairi/sousvox/internal/domain"
	"github.com/hammamikhairi/sousvox/internal/logger"
	"github.com/hammamikhairi/sousvox/internal/speech"
)

// Suppressor is notified around playback so voice capture never hears the
// synthesized output. The capture controller implements it.
type Suppressor interface {
	Suppress()
	Resume()
}

// Option configures the queue.
type Option func(*Queue)

// WithFallback sets the local synthesizer used when the remote provider
// fails.
func WithFallback(fb domain.FallbackSpeaker) Option {
	return func(q *Queue) { q.fallback = fb }
}

// WithCache lets the queue reuse previously synthesized audio.
func WithCache(c *speech.Cache) Option {
	return func(q *Queue) { q.cache = c }
}

// WithEcho registers a function called with each item's text as it starts
// playing, so the host can show spoken feedback on screen too.
func WithEcho(fn func(string)) Option {
	return func(q *Queue) { q.echo = fn }
}

// Queue plays spoken feedback strictly in enqueue order, one item at a
// time. A single drain runs at a time, guarded by the draining flag; each
// item's synthesis and playback completes before the next is dequeued.
//
// The queue signals Suppress before the first item of a drain plays and
// Resume once it is fully drained, making the capture and playback
// channels mutually exclusive.
type Queue struct {
	synth    domain.Synthesizer
	fallback domain.FallbackSpeaker // nil disables the fallback tier
	out      domain.AudioOutput
	supp     Suppressor
	cache    *speech.Cache // nil disables caching
	echo     func(string)  // nil disables on-screen echo
	log      *logger.Logger

	mu       sync.Mutex
	items    []string
	draining bool
	gen      int // bumped by Clear; stale items are discarded after synthesis
	notify   chan struct{}
}

// New creates a feedback queue. supp may be nil when there is no capture
// to suppress (tests, text-only mode). synth and out may also be nil:
// with a nil synth the queue goes straight to the fallback speaker, and
// with a nil out nothing is played, which keeps the ordering and echo
// behavior in silent mode.
func New(synth domain.Synthesizer, out domain.AudioOutput, supp Suppressor, log *logger.Logger, opts ...Option) *Queue {
	q := &Queue{
		synth:  synth,
		out:    out,
		supp:   supp,
		log:    log,
		notify: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the drain goroutine. Non-blocking; the goroutine exits
// when ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go q.processLoop(ctx)
}

// Enqueue appends text to the queue and kicks off a drain if one is not
// already running. Non-blocking.
func (q *Queue) Enqueue(text string) {
	if text == "" {
		return
	}

	q.mu.Lock()
	q.items = append(q.items, text)
	n := len(q.items)
	q.mu.Unlock()

	q.log.Debug("feedback: queued (len=%d): %s", n, truncate(text, 60))

	select {
	case q.notify <- struct{}{}:
	default: // drain already signaled
	}
}

// Clear drops every undrained item and stops the clip currently playing.
// An in-flight synthesis request is left to complete; its result is
// discarded. Used on session close.
func (q *Queue) Clear() {
	q.mu.Lock()
	dropped := len(q.items)
	q.items = q.items[:0]
	q.gen++
	q.mu.Unlock()

	if q.out != nil {
		q.out.Stop()
	}

	if dropped > 0 {
		q.log.Debug("feedback: cleared %d pending items", dropped)
	}
}

// Len returns the number of undrained items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Draining reports whether a drain is in progress.
func (q *Queue) Draining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

// Idle reports whether the queue is empty with no drain running.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0 && !q.draining
}

// processLoop waits for enqueue signals and drains the queue.
func (q *Queue) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.log.Debug("feedback: drain loop stopped")
			return
		case <-q.notify:
			q.drain(ctx)
		}
	}
}

// drain plays queued items in order until the queue is empty. Only one
// drain runs at a time.
func (q *Queue) drain(ctx context.Context) {
	q.mu.Lock()
	if q.draining || len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	if q.supp != nil {
		q.supp.Suppress()
		// Deferred so capture also resumes when ctx cancellation cuts
		// the drain short.
		defer q.supp.Resume()
	}

	for {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.draining = false
			q.mu.Unlock()
			return
		default:
		}

		q.mu.Lock()
		if len(q.items) == 0 {
			q.draining = false
			q.mu.Unlock()
			break
		}
		item := q.items[0]
		q.items = q.items[1:]
		gen := q.gen
		q.mu.Unlock()

		if q.echo != nil {
			q.echo(item)
		}
		q.play(ctx, item, gen)
	}
}

// play synthesizes and plays one item: cache, then the remote provider,
// then the local fallback. Total failure drops the item and the drain
// moves on.
func (q *Queue) play(ctx context.Context, text string, gen int) {
	if q.cache != nil {
		if audio, ok := q.cache.Get(text); ok {
			q.playClip(text, audio, gen)
			return
		}
	}

	if q.synth != nil {
		audio, err := q.synth.Synthesize(ctx, text)
		if err == nil {
			if q.cache != nil {
				q.cache.Put(text, audio)
			}
			q.playClip(text, audio, gen)
			return
		}
		q.log.Warn("feedback: remote synthesis failed, trying fallback: %v", err)
	}

	if q.fallback == nil {
		if q.synth != nil {
			q.log.Error("feedback: no fallback synthesizer, dropping item: %s", truncate(text, 60))
		}
		return
	}

	if q.stale(gen) {
		q.log.Debug("feedback: discarding cleared item: %s", truncate(text, 60))
		return
	}

	if err := q.fallback.Speak(ctx, text); err != nil {
		q.log.Error("feedback: fallback synthesis failed, dropping item: %v", err)
	}
}

// playClip plays already-synthesized audio unless the item was cleared
// while synthesis was in flight.
func (q *Queue) playClip(text string, audio []byte, gen int) {
	if q.stale(gen) {
		q.log.Debug("feedback: discarding cleared item: %s", truncate(text, 60))
		return
	}
	if q.out == nil {
		return
	}
	if err := q.out.Play(audio); err != nil {
		q.log.Error("feedback: playback failed: %v", err)
	}
}

// stale reports whether Clear ran after the item with the given
// generation was dequeued.
func (q *Queue) stale(gen int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return gen != q.gen
}

// Prefetch synthesizes the given texts in the background and stores the
// clips in the cache, so later Enqueue calls play instantly. No-op without
// a cache. Non-blocking.
func (q *Queue) Prefetch(ctx context.Context, texts ...string) {
	if q.cache == nil || q.synth == nil {
		return
	}
	for _, text := range texts {
		if text == "" || q.cache.Has(text) {
			continue
		}
		go func(t string) {
			audio, err := q.synth.Synthesize(ctx, t)
			if err != nil {
				q.log.Debug("feedback: prefetch failed: %v", err)
				return
			}
			q.cache.Put(t, audio)
		}(text)
	}
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
