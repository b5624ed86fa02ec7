package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"smartmailr/internal/model"
	"smartmailr/internal/provider"
	"smartmailr/internal/store"
)

func newTestExecutor(t *testing.T, cfg Config) (*Executor, *store.CaseStore, string) {
	t.Helper()

	s := store.NewCaseStore()
	msg := model.Message{ID: "msg_test", Sender: "alice@example.com", Subject: "s", Body: "b"}
	s.Create(msg)

	return NewExecutor(s, cfg, zap.NewNop()), s, msg.ID
}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	ex, s, id := newTestExecutor(t, Config{RetryAttempts: 3, StageTimeout: time.Second})

	calls := 0
	out, err := Run(context.Background(), ex, id, model.StageClassify, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Errorf("unexpected output: %q", out)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}

	snap, _ := s.Get(id)
	if got := snap.Stages[model.StageClassify].Attempts; got != 1 {
		t.Errorf("expected 1 recorded attempt, got %d", got)
	}
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	ex, s, id := newTestExecutor(t, Config{RetryAttempts: 3, StageTimeout: time.Second})

	calls := 0
	out, err := Run(context.Background(), ex, id, model.StageDraft, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", provider.Unavailable(provider.GenerationUnavailable, errors.New("connection refused"))
		}
		return "draft", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "draft" {
		t.Errorf("unexpected output: %q", out)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}

	snap, _ := s.Get(id)
	if got := snap.Stages[model.StageDraft].Attempts; got != 3 {
		t.Errorf("expected 3 recorded attempts, got %d", got)
	}
}

func TestRunExhaustsRetryBudget(t *testing.T) {
	ex, s, id := newTestExecutor(t, Config{RetryAttempts: 2, StageTimeout: time.Second})

	calls := 0
	_, err := Run(context.Background(), ex, id, model.StageClassify, func(ctx context.Context) (string, error) {
		calls++
		return "", provider.Unavailable(provider.ClassificationUnavailable, errors.New("service down"))
	})

	// retry_attempts=2 means 3 invocations total.
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}

	var failed *StageFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected StageFailedError, got %v", err)
	}
	if failed.Stage != model.StageClassify {
		t.Errorf("unexpected stage: %s", failed.Stage)
	}
	if failed.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", failed.Attempts)
	}

	snap, _ := s.Get(id)
	if got := snap.Stages[model.StageClassify].Attempts; got != 3 {
		t.Errorf("expected 3 recorded attempts, got %d", got)
	}
}

func TestConfigFromOptionsZeroBudgetSingleInvocation(t *testing.T) {
	cfg := ConfigFromOptions(0, 30)
	if cfg.RetryAttempts != 0 {
		t.Fatalf("expected zero retry budget to survive, got %d", cfg.RetryAttempts)
	}

	ex, s, id := newTestExecutor(t, cfg)

	calls := 0
	_, err := Run(context.Background(), ex, id, model.StageClassify, func(ctx context.Context) (string, error) {
		calls++
		return "", provider.Unavailable(provider.ClassificationUnavailable, errors.New("service down"))
	})

	// retry_attempts=0 means exactly one invocation, even for transient errors.
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}

	var failed *StageFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected StageFailedError, got %v", err)
	}
	if failed.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", failed.Attempts)
	}

	snap, _ := s.Get(id)
	if got := snap.Stages[model.StageClassify].Attempts; got != 1 {
		t.Errorf("expected 1 recorded attempt, got %d", got)
	}
}

func TestConfigFromOptionsDefaults(t *testing.T) {
	cfg := ConfigFromOptions(-1, 0)
	if cfg.RetryAttempts != 0 {
		t.Errorf("negative retry budget should clamp to 0, got %d", cfg.RetryAttempts)
	}
	if cfg.StageTimeout != DefaultConfig().StageTimeout {
		t.Errorf("unset timeout should fall back to the default, got %v", cfg.StageTimeout)
	}

	cfg = ConfigFromOptions(2, 10)
	if cfg.RetryAttempts != 2 {
		t.Errorf("expected retry budget 2, got %d", cfg.RetryAttempts)
	}
	if cfg.StageTimeout != 10*time.Second {
		t.Errorf("expected 10s stage timeout, got %v", cfg.StageTimeout)
	}
}

func TestRunNonRetryableFailsImmediately(t *testing.T) {
	ex, _, id := newTestExecutor(t, Config{RetryAttempts: 3, StageTimeout: time.Second})

	calls := 0
	boom := errors.New("malformed provider response")
	_, err := Run(context.Background(), ex, id, model.StageCorrect, func(ctx context.Context) (string, error) {
		calls++
		return "", boom
	})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected the original error, got %v", err)
	}

	var failed *StageFailedError
	if errors.As(err, &failed) {
		t.Error("non-retryable error should not be wrapped as retry exhaustion")
	}
}

func TestRunTimeoutIsRetryable(t *testing.T) {
	ex, _, id := newTestExecutor(t, Config{RetryAttempts: 1, StageTimeout: 20 * time.Millisecond})

	calls := 0
	_, err := Run(context.Background(), ex, id, model.StageAct, func(ctx context.Context) (string, error) {
		calls++
		<-ctx.Done()
		return "", ctx.Err()
	})

	if calls != 2 {
		t.Errorf("expected timeout to be retried once, got %d calls", calls)
	}

	var failed *StageFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected StageFailedError, got %v", err)
	}
	if !errors.Is(failed.LastErr, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded as last error, got %v", failed.LastErr)
	}
}
