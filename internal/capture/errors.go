package capture

import (
	"strings"

	"github.com/hammamikhairi/sousvox/internal/domain"
)

// classifyError buckets an opaque recognizer error into a capture error
// kind by message inspection. The recognizer contract carries kinds on its
// error events; this is only for errors returned by Start itself.
func classifyError(err error) domain.CaptureErrorKind {
	if err == nil {
		return domain.ErrKindUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied"):
		return domain.ErrKindPermission
	case strings.Contains(msg, "device") || strings.Contains(msg, "no such") || strings.Contains(msg, "not found"):
		return domain.ErrKindDevice
	case strings.Contains(msg, "network") || strings.Contains(msg, "timeout") || strings.Contains(msg, "connection"):
		return domain.ErrKindNetwork
	case strings.Contains(msg, "abort"):
		return domain.ErrKindAborted
	default:
		return domain.ErrKindUnknown
	}
}
