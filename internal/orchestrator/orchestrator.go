// Package orchestrator owns the per-message state machine. It sequences the
// classify, draft, correct and act stages, branches on the classified
// intent, and finalizes every case into exactly one terminal outcome.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"smartmailr/internal/executor"
	"smartmailr/internal/model"
	"smartmailr/internal/normalizer"
	"smartmailr/internal/provider"
	"smartmailr/internal/store"
	"smartmailr/pkg/logger"
	"smartmailr/pkg/metrics"
)

// OutcomeReporter consumes a case exactly once when it reaches a terminal
// state.
type OutcomeReporter interface {
	Report(ctx context.Context, c *model.ProcessingCase) error
}

// Orchestrator drives processing cases through the pipeline. All case
// mutation goes through the case store; each case runs on its own
// goroutine with strictly sequential stages.
type Orchestrator struct {
	store     *store.CaseStore
	providers provider.Providers
	exec      *executor.Executor
	reporter  OutcomeReporter
	style     model.Style
	logger    *zap.Logger
}

func NewOrchestrator(
	s *store.CaseStore,
	providers provider.Providers,
	exec *executor.Executor,
	reporter OutcomeReporter,
	style model.Style,
	log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:     s,
		providers: providers,
		exec:      exec,
		reporter:  reporter,
		style:     style,
		logger:    log,
	}
}

// Submit is the pipeline entry point: it normalizes raw, creates the case
// if the message has not been seen before, and starts processing in the
// background. Re-submitting the same raw message returns the existing case
// id without creating a duplicate.
func (o *Orchestrator) Submit(ctx context.Context, raw normalizer.RawMessage) (string, error) {
	msg, err := normalizer.Normalize(raw)
	if err != nil {
		return "", err
	}

	c, created := o.store.Create(msg)
	if !created {
		logger.WithTrace(ctx, o.logger).Info("Message already ingested, reusing case",
			zap.String("case_id", c.ID),
		)
		return c.ID, nil
	}

	logger.WithTrace(ctx, o.logger).Info("Case created",
		zap.String("case_id", c.ID),
		zap.String("sender", msg.Sender),
	)

	// Processing outlives the ingress request; keep trace metadata but
	// drop its cancellation.
	go o.Process(context.WithoutCancel(ctx), c.ID)

	return c.ID, nil
}

// Status returns a snapshot of the case.
func (o *Orchestrator) Status(id string) (*model.ProcessingCase, error) {
	return o.store.Get(id)
}

// Cancel marks a non-terminal case as cancelled. The case fails with
// reason "cancelled" before its next stage; an in-flight provider call is
// allowed to complete and its result is discarded.
func (o *Orchestrator) Cancel(id string) error {
	_, err := o.store.Update(id, func(c *model.ProcessingCase) error {
		if !c.State.Terminal() {
			c.Cancelled = true
		}
		return nil
	})
	return err
}

// Process drives one case from Received to a terminal state. It is
// idempotent: invoking it on a case that already left Received is a no-op.
func (o *Orchestrator) Process(ctx context.Context, id string) {
	log := logger.WithTrace(ctx, o.logger).With(zap.String("case_id", id))

	snap, err := o.store.Get(id)
	if err != nil {
		log.Error("Unknown case", zap.Error(err))
		return
	}
	if snap.State != model.StateReceived {
		log.Info("Case already in flight, skip", zap.String("state", snap.State.String()))
		return
	}

	msg := snap.Message

	// --------------------------
	// Stage 1: classify
	// --------------------------
	if !o.enterStage(ctx, id, model.StateClassifying, log) {
		return
	}

	intent, err := executor.Run(ctx, o.exec, id, model.StageClassify, func(ctx context.Context) (model.Intent, error) {
		return o.providers.Classifier.Classify(ctx, msg)
	})
	if err != nil {
		o.fail(ctx, id, model.StageClassify, err, log)
		return
	}

	_, _ = o.store.Update(id, func(c *model.ProcessingCase) error {
		c.Intent = &intent
		return nil
	})

	log.Info("Message classified", zap.String("intent", string(intent)))

	// No action needed: bypass drafting, correction and action entirely.
	if intent == model.IntentNoActionNeeded {
		o.skip(ctx, id, log)
		return
	}

	// --------------------------
	// Stage 2: draft
	// --------------------------
	if !o.enterStage(ctx, id, model.StateDrafting, log) {
		return
	}

	draft, err := executor.Run(ctx, o.exec, id, model.StageDraft, func(ctx context.Context) (model.Draft, error) {
		return o.providers.Generator.Generate(ctx, msg, intent, o.style)
	})
	if err != nil {
		o.fail(ctx, id, model.StageDraft, err, log)
		return
	}

	_, _ = o.store.Update(id, func(c *model.ProcessingCase) error {
		c.Draft = &draft
		return nil
	})

	// --------------------------
	// Stage 3: correct
	// --------------------------
	if !o.enterStage(ctx, id, model.StateCorrecting, log) {
		return
	}

	corrected, err := executor.Run(ctx, o.exec, id, model.StageCorrect, func(ctx context.Context) (model.Draft, error) {
		return o.providers.Corrector.Correct(ctx, draft)
	})
	if err != nil {
		o.fail(ctx, id, model.StageCorrect, err, log)
		return
	}

	// Correction replaces the draft, it never edits in place.
	_, _ = o.store.Update(id, func(c *model.ProcessingCase) error {
		c.Draft = &corrected
		return nil
	})

	// --------------------------
	// Stage 4: act
	// --------------------------
	if !o.enterStage(ctx, id, model.StateActing, log) {
		return
	}

	result, err := executor.Run(ctx, o.exec, id, model.StageAct, func(ctx context.Context) (model.ActionResult, error) {
		return o.providers.Actor.Act(ctx, intent, corrected, msg)
	})
	if err != nil {
		o.fail(ctx, id, model.StageAct, err, log)
		return
	}

	// A business rejection (Success=false) is still Completed.
	o.complete(ctx, id, result, log)
}

// enterStage advances the case into the given state, honoring a pending
// cancellation first. Returns false when the case must not continue.
func (o *Orchestrator) enterStage(ctx context.Context, id string, next model.State, log *zap.Logger) bool {
	var cancelled bool
	_, err := o.store.Update(id, func(c *model.ProcessingCase) error {
		if c.Cancelled {
			cancelled = true
			return nil
		}
		c.Advance(next)
		return nil
	})
	if err != nil {
		log.Error("Failed to advance case", zap.Error(err))
		return false
	}

	if cancelled {
		o.failCancelled(ctx, id, log)
		return false
	}

	return true
}

func (o *Orchestrator) skip(ctx context.Context, id string, log *zap.Logger) {
	snap, err := o.store.Update(id, func(c *model.ProcessingCase) error {
		c.Advance(model.StateSkipped)
		c.ActionResult = &model.ActionResult{
			Kind:    model.ActionNoOp,
			Success: true,
			Detail:  "no action needed",
		}
		c.Advance(model.StateCompleted)
		c.FinishedAt = nowPtr()
		return nil
	})
	if err != nil {
		log.Error("Failed to finalize skipped case", zap.Error(err))
		return
	}

	log.Info("Case completed without action")
	o.finalize(ctx, snap)
}

func (o *Orchestrator) complete(ctx context.Context, id string, result model.ActionResult, log *zap.Logger) {
	snap, err := o.store.Update(id, func(c *model.ProcessingCase) error {
		c.ActionResult = &result
		c.Advance(model.StateCompleted)
		c.FinishedAt = nowPtr()
		return nil
	})
	if err != nil {
		log.Error("Failed to complete case", zap.Error(err))
		return
	}

	log.Info("Case completed",
		zap.String("action_kind", string(result.Kind)),
		zap.Bool("success", result.Success),
	)
	o.finalize(ctx, snap)
}

func (o *Orchestrator) fail(ctx context.Context, id string, stage model.Stage, cause error, log *zap.Logger) {
	snap, err := o.store.Update(id, func(c *model.ProcessingCase) error {
		c.Advance(model.StateFailed)
		c.FailStage = stage
		c.FailReason = cause.Error()
		c.FinishedAt = nowPtr()
		return nil
	})
	if err != nil {
		log.Error("Failed to mark case as failed", zap.Error(err))
		return
	}

	log.Warn("Case failed",
		zap.String("stage", string(stage)),
		zap.Error(cause),
	)
	o.finalize(ctx, snap)
}

func (o *Orchestrator) failCancelled(ctx context.Context, id string, log *zap.Logger) {
	snap, err := o.store.Update(id, func(c *model.ProcessingCase) error {
		c.Advance(model.StateFailed)
		c.FailReason = model.FailReasonCancelled
		c.FinishedAt = nowPtr()
		return nil
	})
	if err != nil {
		log.Error("Failed to mark case as cancelled", zap.Error(err))
		return
	}

	log.Info("Case cancelled")
	o.finalize(ctx, snap)
}

// finalize hands the terminal case to the reporter exactly once and counts
// the outcome.
func (o *Orchestrator) finalize(ctx context.Context, snap *model.ProcessingCase) {
	actionKind := ""
	if snap.ActionResult != nil {
		actionKind = string(snap.ActionResult.Kind)
	}
	metrics.IncrementCaseFinished(snap.State.String(), actionKind)

	if o.reporter == nil {
		return
	}
	if err := o.reporter.Report(ctx, snap); err != nil {
		o.logger.Error("Outcome reporter failed",
			zap.String("case_id", snap.ID),
			zap.Error(err),
		)
	}
}

func nowPtr() *time.Time {
	t := time.Now()
	return &t
}
