// Package reporter persists terminal case outcomes and serves the daily
// digest. The record and its case.finished event commit in a single
// transaction; the outbox dispatcher delivers the event to MQ afterwards.
package reporter

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"smartmailr/contracts/mq"
	"smartmailr/internal/model"
	"smartmailr/internal/repository"
	"smartmailr/pkg/logger"
	"smartmailr/pkg/outbox"
	"smartmailr/pkg/trace"
)

// DigestEntry is one row of the digest: cases counted per day, terminal
// state and action kind.
type DigestEntry struct {
	Day        string `json:"day"`
	State      string `json:"state"`
	ActionKind string `json:"action_kind,omitempty"`
	Count      int    `json:"count"`
}

type Reporter struct {
	db         *pgxpool.Pool
	caseRepo   *repository.CaseRepository
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewReporter(db *pgxpool.Pool, caseRepo *repository.CaseRepository, outboxRepo *outbox.Repository, log *zap.Logger) *Reporter {
	return &Reporter{
		db:         db,
		caseRepo:   caseRepo,
		outboxRepo: outboxRepo,
		logger:     log,
	}
}

// Report persists the terminal case and queues a case.finished event, both
// in one transaction.
func (r *Reporter) Report(ctx context.Context, c *model.ProcessingCase) error {
	log := logger.WithTrace(ctx, r.logger)

	rec := recordFromCase(c)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := r.caseRepo.InsertRecordTx(ctx, tx, rec); err != nil {
		log.Error("Failed to insert case record", zap.Error(err))
		return err
	}

	payload := mq.CaseFinishedPayload{
		CaseID:     c.ID,
		MessageID:  c.Message.ID,
		State:      c.State.String(),
		Success:    rec.Success,
		FailReason: c.FailReason,
		FinishedAt: rec.FinishedAt,
		TraceID:    trace.FromContext(ctx),
	}
	if c.Intent != nil {
		payload.Intent = string(*c.Intent)
	}
	if c.ActionResult != nil {
		payload.ActionKind = string(c.ActionResult.Kind)
	}

	caseID := c.ID
	if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "case", &caseID, "case.finished", payload); err != nil {
		log.Error("Failed to insert case.finished to outbox", zap.Error(err))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return err
	}

	log.Info("Case outcome recorded",
		zap.String("case_id", c.ID),
		zap.String("state", c.State.String()),
	)
	return nil
}

// Digest loads records finished in [from, to) and aggregates them.
func (r *Reporter) Digest(ctx context.Context, from, to time.Time) ([]DigestEntry, error) {
	records, err := r.caseRepo.ListRecords(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return Aggregate(records), nil
}

// Aggregate groups records by day, state and action kind. Output order is
// deterministic.
func Aggregate(records []repository.CaseRecord) []DigestEntry {
	type key struct {
		day    string
		state  string
		action string
	}

	counts := make(map[key]int)
	for _, rec := range records {
		k := key{
			day:   rec.FinishedAt.UTC().Format("2006-01-02"),
			state: rec.State,
		}
		if rec.ActionKind != nil {
			k.action = *rec.ActionKind
		}
		counts[k]++
	}

	entries := make([]DigestEntry, 0, len(counts))
	for k, n := range counts {
		entries = append(entries, DigestEntry{
			Day:        k.day,
			State:      k.state,
			ActionKind: k.action,
			Count:      n,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Day != entries[j].Day {
			return entries[i].Day < entries[j].Day
		}
		if entries[i].State != entries[j].State {
			return entries[i].State < entries[j].State
		}
		return entries[i].ActionKind < entries[j].ActionKind
	})
	return entries
}

func recordFromCase(c *model.ProcessingCase) *repository.CaseRecord {
	rec := &repository.CaseRecord{
		CaseID:  c.ID,
		Sender:  c.Message.Sender,
		Subject: c.Message.Subject,
		State:   c.State.String(),
	}

	if c.Intent != nil {
		intent := string(*c.Intent)
		rec.Intent = &intent
	}
	if c.ActionResult != nil {
		kind := string(c.ActionResult.Kind)
		rec.ActionKind = &kind
		rec.Success = c.ActionResult.Success
	}
	if c.FailStage != "" {
		stage := string(c.FailStage)
		rec.FailStage = &stage
	}
	if c.FailReason != "" {
		reason := c.FailReason
		rec.FailReason = &reason
	}
	if c.FinishedAt != nil {
		rec.FinishedAt = *c.FinishedAt
	} else {
		rec.FinishedAt = time.Now()
	}
	return rec
}
