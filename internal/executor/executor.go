// Package executor runs single pipeline stages against a capability
// provider, wrapping every call with a per-stage timeout and a bounded
// retry budget. Only transient errors are retried; everything else
// propagates immediately.
package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smartmailr/internal/model"
	"smartmailr/internal/provider"
	"smartmailr/internal/store"
	"smartmailr/pkg/metrics"
	"smartmailr/pkg/otel"
	"smartmailr/pkg/util"
)

// Config controls the retry and timeout policy.
type Config struct {
	// RetryAttempts is the number of retries after the first attempt, so a
	// provider that always fails transiently is invoked RetryAttempts+1
	// times before the stage fails.
	RetryAttempts int
	// StageTimeout bounds each individual provider call.
	StageTimeout time.Duration
	// Backoff is the base delay between attempts; it doubles per retry.
	Backoff time.Duration
}

// DefaultConfig matches the recognized configuration defaults.
func DefaultConfig() Config {
	return Config{
		RetryAttempts: 3,
		StageTimeout:  30 * time.Second,
		Backoff:       100 * time.Millisecond,
	}
}

// ConfigFromOptions builds a Config from the recognized pipeline options.
// retryAttempts is a count, so zero is a valid budget (exactly one
// invocation per stage); stageTimeoutSeconds falls back to the default
// when unset.
func ConfigFromOptions(retryAttempts, stageTimeoutSeconds int) Config {
	cfg := DefaultConfig()
	cfg.RetryAttempts = retryAttempts
	if stageTimeoutSeconds > 0 {
		cfg.StageTimeout = time.Duration(stageTimeoutSeconds) * time.Second
	}
	return cfg.normalized()
}

func (c Config) normalized() Config {
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = 30 * time.Second
	}
	return c
}

// StageFailedError reports retry exhaustion on a stage. The orchestrator
// consumes it to transition the case to Failed.
type StageFailedError struct {
	Stage    model.Stage
	Attempts int
	LastErr  error
}

func (e *StageFailedError) Error() string {
	return fmt.Sprintf("stage %s failed after %d attempts: %v", e.Stage, e.Attempts, e.LastErr)
}

func (e *StageFailedError) Unwrap() error {
	return e.LastErr
}

// Executor runs stages and records attempt counts and durations on the
// owning case for observability.
type Executor struct {
	store  *store.CaseStore
	cfg    Config
	logger *zap.Logger
}

func NewExecutor(s *store.CaseStore, cfg Config, logger *zap.Logger) *Executor {
	return &Executor{
		store:  s,
		cfg:    cfg.normalized(),
		logger: logger,
	}
}

// Run executes one stage of the given case. fn is the capability call; it
// receives a context bounded by the stage timeout.
func Run[T any](ctx context.Context, ex *Executor, caseID string, stage model.Stage, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	start := time.Now()
	_, _ = ex.store.Update(caseID, func(c *model.ProcessingCase) error {
		c.StatsFor(stage).EnteredAt = start
		return nil
	})

	ctx, span := otel.StageSpan(ctx, string(stage), caseID)
	defer span.End()

	maxAttempts := ex.cfg.RetryAttempts + 1
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := runOnce(ctx, ex, fn)
		if err == nil {
			ex.recordStats(caseID, stage, attempt, start)
			metrics.RecordStageLatency(string(stage), "success", time.Since(start))
			return out, nil
		}

		lastErr = err
		retryable := isRetryable(err)

		ex.logger.Warn("Stage attempt failed",
			zap.String("case_id", caseID),
			zap.String("stage", string(stage)),
			zap.Int("attempt", attempt),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)

		if !retryable {
			ex.recordStats(caseID, stage, attempt, start)
			metrics.RecordStageLatency(string(stage), "error", time.Since(start))
			return zero, err
		}

		if attempt < maxAttempts {
			if err := ex.sleep(ctx, attempt); err != nil {
				ex.recordStats(caseID, stage, attempt, start)
				metrics.RecordStageLatency(string(stage), "cancelled", time.Since(start))
				return zero, err
			}
		}
	}

	ex.recordStats(caseID, stage, maxAttempts, start)
	metrics.RecordStageLatency(string(stage), "exhausted", time.Since(start))

	return zero, &StageFailedError{
		Stage:    stage,
		Attempts: maxAttempts,
		LastErr:  lastErr,
	}
}

// runOnce performs a single attempt under the stage timeout.
func runOnce[T any](ctx context.Context, ex *Executor, fn func(ctx context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, ex.cfg.StageTimeout)
	defer cancel()
	return fn(attemptCtx)
}

// sleep waits out the exponential backoff, aborting if ctx is cancelled.
func (ex *Executor) sleep(ctx context.Context, attempt int) error {
	if ex.cfg.Backoff <= 0 {
		return ctx.Err()
	}

	delay := ex.cfg.Backoff << (attempt - 1)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (ex *Executor) recordStats(caseID string, stage model.Stage, attempts int, start time.Time) {
	now := time.Now()
	_, _ = ex.store.Update(caseID, func(c *model.ProcessingCase) error {
		st := c.StatsFor(stage)
		st.Attempts = attempts
		st.Duration = now.Sub(start)
		st.ExitedAt = now
		return nil
	})
	metrics.RecordStageAttempts(string(stage), attempts)
}

// isRetryable treats provider Unavailable kinds and generic transient
// transport errors (including the stage timeout) as retryable.
func isRetryable(err error) bool {
	if _, ok := provider.UnavailableKind(err); ok {
		return true
	}
	retryable, _ := util.IsRetryableError(err)
	return retryable
}
