package capture

import (
	"context"
	"os/exec"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/sousvox/internal/domain"
	"github.com/hammamikhairi/sousvox/internal/logger"
)

var _ domain.Recognizer = (*WhisperRecognizer)(nil)

// WhisperOption configures the recognizer.
type WhisperOption func(*WhisperRecognizer)

// WithRecordDuration sets how long each capture chunk lasts.
func WithRecordDuration(d time.Duration) WhisperOption {
	return func(r *WhisperRecognizer) { r.recordDuration = d }
}

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) WhisperOption {
	return func(r *WhisperRecognizer) { r.tempDir = dir }
}

// WhisperRecognizer implements domain.Recognizer on a local Whisper model.
// It records fixed-length chunks from the default microphone, transcribes
// each one, and emits cleaned transcripts as final utterances. Interim
// results don't exist at this granularity, so every transcript event is
// final.
type WhisperRecognizer struct {
	whisperBin     string
	modelPath      string
	tempDir        string
	recordDuration time.Duration
	log            *logger.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	events  chan domain.CaptureEvent
}

// NewWhisperRecognizer creates a recognizer around the whisper-cli binary
// and a GGML model file.
func NewWhisperRecognizer(whisperBin, modelPath string, log *logger.Logger, opts ...WhisperOption) *WhisperRecognizer {
	r := &WhisperRecognizer{
		whisperBin:     whisperBin,
		modelPath:      modelPath,
		tempDir:        ".sousvox-stt",
		recordDuration: 2 * time.Second,
		log:            log,
		events:         make(chan domain.CaptureEvent, 16),
	}
	for _, opt := range opts {
		opt(r)
	}

	if _, err := exec.LookPath(r.whisperBin); err != nil {
		log.Error("whisper: binary %q not found in PATH: %v", r.whisperBin, err)
	}

	return r
}

// Events returns the capture event stream.
func (r *WhisperRecognizer) Events() <-chan domain.CaptureEvent {
	return r.events
}

// Start launches the chunked capture loop. Idempotent while running.
func (r *WhisperRecognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stop = make(chan struct{})
	stop := r.stop
	r.mu.Unlock()

	go r.captureLoop(ctx, stop)
	return nil
}

// Stop ends the capture loop. The in-flight chunk finishes first; an
// Ended event follows.
func (r *WhisperRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	close(r.stop)
}

func (r *WhisperRecognizer) captureLoop(ctx context.Context, stop <-chan struct{}) {
	r.emit(ctx, domain.CaptureEvent{Kind: domain.CaptureStarted, Timestamp: time.Now()})

	for {
		select {
		case <-ctx.Done():
			r.endLoop(ctx)
			return
		case <-stop:
			r.emit(ctx, domain.CaptureEvent{Kind: domain.CaptureEnded, Timestamp: time.Now()})
			return
		default:
		}

		text, err := r.recordChunk(ctx)
		if err != nil {
			r.emit(ctx, domain.CaptureEvent{
				Kind:      domain.CaptureError,
				ErrKind:   classifyError(err),
				Err:       err,
				Timestamp: time.Now(),
			})
			r.endLoop(ctx)
			return
		}

		text = cleanTranscription(text)
		if text == "" {
			continue
		}

		r.log.Debug("whisper: heard %q", text)
		r.emit(ctx, domain.CaptureEvent{
			Kind:       domain.CaptureTranscript,
			Transcript: text,
			IsFinal:    true,
			Timestamp:  time.Now(),
		})
	}
}

// endLoop marks the recognizer stopped and emits the Ended event.
func (r *WhisperRecognizer) endLoop(ctx context.Context) {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.emit(ctx, domain.CaptureEvent{Kind: domain.CaptureEnded, Timestamp: time.Now()})
}

// recordChunk runs one record-then-transcribe cycle and returns the raw
// transcription.
func (r *WhisperRecognizer) recordChunk(ctx context.Context) (string, error) {
	var result string
	var wg sync.WaitGroup
	wg.Add(1)

	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := r.log.Level() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(
		r.whisperBin,
		r.modelPath,
		r.tempDir,
		"wav",
		callback,
		verbose,
	)
	if err != nil {
		return "", err
	}

	if err := t.Start(); err != nil {
		return "", err
	}

	select {
	case <-time.After(r.recordDuration):
	case <-ctx.Done():
	}

	t.Stop()
	wg.Wait()

	return result, nil
}

// emit sends an event without blocking past ctx cancellation.
func (r *WhisperRecognizer) emit(ctx context.Context, ev domain.CaptureEvent) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}
