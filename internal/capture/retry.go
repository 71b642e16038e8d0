package capture

import "time"

// Default restart schedule: one quick retry, then a longer one, then give
// up and leave capture stopped for the user to restart manually.
var defaultRestartDelays = []time.Duration{1 * time.Second, 4 * time.Second}

// RetryPolicy is the single restart schedule consumed by the controller.
// Attempt n waits Delay(n); once MaxAttempts is exhausted the controller
// stops retrying and reports a recoverable error.
type RetryPolicy struct {
	delays []time.Duration
}

// NewRetryPolicy builds a policy from an explicit delay schedule. With no
// arguments the default two-attempt schedule is used.
func NewRetryPolicy(delays ...time.Duration) *RetryPolicy {
	if len(delays) == 0 {
		delays = defaultRestartDelays
	}
	return &RetryPolicy{delays: delays}
}

// MaxAttempts returns how many restart attempts the policy allows.
func (p *RetryPolicy) MaxAttempts() int {
	return len(p.delays)
}

// Delay returns the wait before the given zero-based attempt. Attempts
// past the schedule reuse the final delay.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt >= len(p.delays) {
		return p.delays[len(p.delays)-1]
	}
	return p.delays[attempt]
}
