package domain

import "time"

// CaptureEventKind discriminates the events a Recognizer emits.
type CaptureEventKind int

const (
	// CaptureStarted means the recognizer began listening.
	CaptureStarted CaptureEventKind = iota
	// CaptureTranscript carries a transcription result.
	CaptureTranscript
	// CaptureEnded means the capture stream terminated.
	CaptureEnded
	// CaptureError carries a classified capture failure.
	CaptureError
)

// CaptureEvent is one event on a Recognizer's event stream.
type CaptureEvent struct {
	Kind       CaptureEventKind
	Transcript string
	IsFinal    bool
	Timestamp  time.Time
	ErrKind    CaptureErrorKind // set when Kind == CaptureError
	Err        error            // underlying cause, may be nil
}

// CaptureErrorKind classifies capture failures into retryable and fatal
// classes. Transient kinds are swallowed and trigger the restart policy;
// everything else is surfaced to the user once.
type CaptureErrorKind int

const (
	// ErrKindNoSpeech — nothing was heard. Transient.
	ErrKindNoSpeech CaptureErrorKind = iota
	// ErrKindAborted — the stream ended unexpectedly. Transient.
	ErrKindAborted
	// ErrKindNetwork — momentary connectivity loss. Transient.
	ErrKindNetwork
	// ErrKindPermission — microphone access denied. Fatal.
	ErrKindPermission
	// ErrKindDevice — no usable capture device. Fatal.
	ErrKindDevice
	// ErrKindUnknown — unclassified. Treated as fatal.
	ErrKindUnknown
)

// Transient reports whether the error class is recovered automatically
// without surfacing to the user.
func (k CaptureErrorKind) Transient() bool {
	switch k {
	case ErrKindNoSpeech, ErrKindAborted, ErrKindNetwork:
		return true
	default:
		return false
	}
}

// String returns a human-readable error kind.
func (k CaptureErrorKind) String() string {
	switch k {
	case ErrKindNoSpeech:
		return "no-speech"
	case ErrKindAborted:
		return "aborted"
	case ErrKindNetwork:
		return "network"
	case ErrKindPermission:
		return "permission"
	case ErrKindDevice:
		return "device"
	default:
		return "unknown"
	}
}
