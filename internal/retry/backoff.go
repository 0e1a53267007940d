package retry

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Policy describes how many times an operation is tried and how long to wait
// between tries. Delays grow exponentially and are capped at MaxDelay.
type Policy struct {
	MaxAttempts     int           `json:"max_attempts"`
	InitialDelay    time.Duration `json:"initial_delay"`
	MaxDelay        time.Duration `json:"max_delay"`
	ExponentialBase float64       `json:"exponential_base"`
}

// DefaultPolicy returns the policy used when the config leaves retry unset.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2,
	}
}

// Validate checks the policy invariants. It is called when configuration is
// loaded, so the executor can assume a valid policy.
func (p Policy) Validate() error {
	var errs []error
	if p.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be at least 1, got %d", p.MaxAttempts))
	}
	if p.InitialDelay <= 0 {
		errs = append(errs, fmt.Errorf("initial_delay must be positive, got %s", p.InitialDelay))
	}
	if p.MaxDelay < p.InitialDelay {
		errs = append(errs, fmt.Errorf("max_delay (%s) must not be less than initial_delay (%s)", p.MaxDelay, p.InitialDelay))
	}
	if !(p.ExponentialBase > 1) {
		errs = append(errs, fmt.Errorf("exponential_base must be greater than 1, got %g", p.ExponentialBase))
	}
	return errors.Join(errs...)
}

// Delay returns the wait after the given failed attempt (1-based):
// min(MaxDelay, InitialDelay * ExponentialBase^(attempt-1)).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.InitialDelay) * math.Pow(p.ExponentialBase, float64(attempt-1))
	if math.IsInf(d, 0) || math.IsNaN(d) || d >= float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}
