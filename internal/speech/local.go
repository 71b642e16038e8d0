package speech

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/hammamikhairi/sousvox/internal/domain"
	"github.com/hammamikhairi/sousvox/internal/logger"
)

var _ domain.FallbackSpeaker = (*LocalSynth)(nil)

// LocalOption configures the local synthesizer.
type LocalOption func(*LocalSynth)

// WithBinary overrides the speech binary ("say", "espeak", ...).
func WithBinary(bin string) LocalOption {
	return func(s *LocalSynth) { s.binary = bin }
}

// WithRate sets the speaking rate in words per minute.
func WithRate(wpm int) LocalOption {
	return func(s *LocalSynth) { s.rate = wpm }
}

// WithPitch sets the voice pitch (0-99, espeak scale).
func WithPitch(pitch int) LocalOption {
	return func(s *LocalSynth) { s.pitch = pitch }
}

// WithVolume sets the output amplitude (0-200, espeak scale).
func WithVolume(vol int) LocalOption {
	return func(s *LocalSynth) { s.volume = vol }
}

// LocalSynth is the fallback synthesizer used when the remote provider
// fails: it shells out to the system speech binary (say on macOS, espeak
// elsewhere), which plays directly on the default output device. Speak
// blocks until the binary exits, which is when playback ends.
type LocalSynth struct {
	binary string
	rate   int // words per minute
	pitch  int
	volume int
	log    *logger.Logger
}

// NewLocalSynth creates a fallback synthesizer for the current platform.
func NewLocalSynth(log *logger.Logger, opts ...LocalOption) *LocalSynth {
	s := &LocalSynth{
		binary: "espeak",
		rate:   175,
		pitch:  50,
		volume: 100,
		log:    log,
	}
	if runtime.GOOS == "darwin" {
		s.binary = "say"
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := exec.LookPath(s.binary); err != nil {
		log.Warn("local tts: binary %q not found in PATH, fallback unavailable: %v", s.binary, err)
	}

	return s
}

// Speak synthesizes and plays the text, blocking until playback completes.
func (s *LocalSynth) Speak(ctx context.Context, text string) error {
	var cmd *exec.Cmd
	switch s.binary {
	case "say":
		cmd = exec.CommandContext(ctx, s.binary, "-r", strconv.Itoa(s.rate), text)
	default:
		cmd = exec.CommandContext(ctx, s.binary,
			"-s", strconv.Itoa(s.rate),
			"-p", strconv.Itoa(s.pitch),
			"-a", strconv.Itoa(s.volume),
			text,
		)
	}

	s.log.Debug("local tts: speaking %d chars via %s", len(text), s.binary)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("local tts (%s): %w", s.binary, err)
	}
	return nil
}
