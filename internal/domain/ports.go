package domain

import "context"

// GuideSource provides guide data. Implementations can be in-memory
// (hardcoded), file-based, or backed by the recipe subsystem's API.
type GuideSource interface {
	List(ctx context.Context) ([]GuideSummary, error)
	Get(ctx context.Context, id string) (*GuideData, error)
}

// Recognizer is the platform capture service: a continuous speech-to-text
// stream. Start begins capture and Stop ends it; both may be called more
// than once over the recognizer's life. Events delivers transcripts and
// lifecycle events in arrival order on a single channel.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop()
	Events() <-chan CaptureEvent
}

// Synthesizer requests synthesized audio from a remote text-to-speech
// provider. The returned bytes are a complete WAV clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// FallbackSpeaker is the local synthesizer used when the remote provider
// fails. Speak blocks until playback completes.
type FallbackSpeaker interface {
	Speak(ctx context.Context, text string) error
}

// AudioOutput plays a synthesized clip on the single audio output channel.
// Play blocks until playback finishes or Stop is called.
type AudioOutput interface {
	Play(wav []byte) error
	Stop()
}

// Notifier delivers user-visible messages outside the spoken feedback
// channel. Implementations can write to a terminal or push to a UI.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}
