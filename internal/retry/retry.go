package retry

import (
	"context"
	"time"

	"github.com/itsmrshow/conduit/internal/logging"
)

// Attempt describes one failed try of an operation. It is handed to the
// failure hook and then discarded.
type Attempt struct {
	Operation string
	Number    int
	Err       error
	Delay     time.Duration // wait before the next try; zero when terminal
	Terminal  bool
}

// Executor runs operations under a Policy.
type Executor struct {
	policy    Policy
	logger    *logging.Logger
	sleep     func(time.Duration)
	onFailure func(Attempt)
	onSuccess func(operation string, attempt int)
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleep replaces time.Sleep, mostly for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// WithFailureHook registers a callback invoked for every failed attempt.
func WithFailureHook(fn func(Attempt)) Option {
	return func(e *Executor) { e.onFailure = fn }
}

// WithSuccessHook registers a callback invoked once an attempt succeeds.
func WithSuccessHook(fn func(operation string, attempt int)) Option {
	return func(e *Executor) { e.onSuccess = fn }
}

// NewExecutor creates an executor. The policy must already be validated.
func NewExecutor(policy Policy, logger *logging.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = logging.Default()
	}
	e := &Executor{
		policy: policy,
		logger: logger.WithComponent("retry"),
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Do calls op until it succeeds or the policy's attempt ceiling is reached.
// The error returned after the last attempt is the operation's own error,
// not a wrapper. Sleeps between attempts block and are not interrupted by
// ctx; ctx is only passed through to op.
func Do[T any](ctx context.Context, e *Executor, operation string, op func(ctx context.Context) (T, error)) (T, error) {
	logger := e.logger.WithOperation(operation)
	maxAttempts := e.policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("event", "operation_recovered").
					Int("attempt", attempt).
					Msg("Operation succeeded after retry")
			}
			if e.onSuccess != nil {
				e.onSuccess(operation, attempt)
			}
			return result, nil
		}

		record := Attempt{
			Operation: operation,
			Number:    attempt,
			Err:       err,
			Terminal:  attempt >= maxAttempts,
		}
		if !record.Terminal {
			record.Delay = e.policy.Delay(attempt)
		}

		logger.Error().
			Err(err).
			Str("event", "operation_failed").
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("next_delay", record.Delay).
			Msg("Operation attempt failed")

		if e.onFailure != nil {
			e.onFailure(record)
		}

		if record.Terminal {
			var zero T
			return zero, err
		}
		e.sleep(record.Delay)
	}
}

// DoErr is Do for operations without a result.
func DoErr(ctx context.Context, e *Executor, operation string, op func(ctx context.Context) error) error {
	_, err := Do(ctx, e, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
