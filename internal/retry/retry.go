// Package retry implements the pure retry/backoff/terminal-failure
// policy described in spec.md §4.4. It is adapted from the teacher's
// internal/task/backoff.go, despecialized from full-jitter to the
// spec's deterministic formula (see DESIGN.md's open-question note).
package retry

import "time"

// Config controls the retry policy's thresholds.
type Config struct {
	MaxAttempts        int
	BaseBackoffSeconds int
}

// DefaultConfig matches spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, BaseBackoffSeconds: 2}
}

const (
	hardCapSeconds      = 300
	hardCapAttemptsExp  = 10
)

// Decision is the outcome of applying the retry policy to one failure.
type Decision struct {
	// Terminal is true when the job should become Failed permanently.
	Terminal bool
	// AvailableAt is the next eligibility time, set only when !Terminal.
	AvailableAt time.Time
}

// Decide maps (attempt, failure) to a next-visibility-time or terminal
// failure, per spec.md §4.4. attempt is the job's attempt count AFTER
// the failed claim (i.e. already incremented by the claim protocol).
func Decide(attempt int, cfg Config, now time.Time) Decision {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.BaseBackoffSeconds <= 0 {
		cfg.BaseBackoffSeconds = DefaultConfig().BaseBackoffSeconds
	}

	if attempt >= cfg.MaxAttempts {
		return Decision{Terminal: true}
	}

	return Decision{
		Terminal:    false,
		AvailableAt: now.Add(Delay(attempt, cfg)),
	}
}

// Delay computes min(300, base * 2^(clamp(attempt,1,10)-1)) seconds.
func Delay(attempt int, cfg Config) time.Duration {
	a := attempt
	if a < 1 {
		a = 1
	}
	if a > hardCapAttemptsExp {
		a = hardCapAttemptsExp
	}

	base := cfg.BaseBackoffSeconds
	if base <= 0 {
		base = DefaultConfig().BaseBackoffSeconds
	}

	delaySeconds := base << (a - 1) // base * 2^(a-1)
	if delaySeconds > hardCapSeconds {
		delaySeconds = hardCapSeconds
	}
	return time.Duration(delaySeconds) * time.Second
}
