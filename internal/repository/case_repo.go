package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CaseRecord is the persisted outcome of one terminal case.
type CaseRecord struct {
	ID         int64      `json:"id"`
	CaseID     string     `json:"case_id"`
	Sender     string     `json:"sender"`
	Subject    string     `json:"subject"`
	State      string     `json:"state"`
	Intent     *string    `json:"intent,omitempty"`
	ActionKind *string    `json:"action_kind,omitempty"`
	Success    bool       `json:"success"`
	FailStage  *string    `json:"fail_stage,omitempty"`
	FailReason *string    `json:"fail_reason,omitempty"`
	FinishedAt time.Time  `json:"finished_at"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

type CaseRepository struct {
	db *pgxpool.Pool
}

func NewCaseRepository(db *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{db: db}
}

// InsertRecordTx writes the terminal record inside the caller's transaction
// so it commits atomically with the outbox event. ON CONFLICT keeps the
// write idempotent per case.
func (r *CaseRepository) InsertRecordTx(ctx context.Context, tx pgx.Tx, rec *CaseRecord) (int64, error) {
	query := `
        INSERT INTO case_records (case_id, sender, subject, state, intent, action_kind, success, fail_stage, fail_reason, finished_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        ON CONFLICT (case_id) DO UPDATE SET state = EXCLUDED.state
        RETURNING id
    `
	var id int64
	err := tx.QueryRow(ctx, query,
		rec.CaseID,
		rec.Sender,
		rec.Subject,
		rec.State,
		rec.Intent,
		rec.ActionKind,
		rec.Success,
		rec.FailStage,
		rec.FailReason,
		rec.FinishedAt,
	).Scan(&id)
	return id, err
}

// ListRecords returns records whose finish time falls in [from, to).
func (r *CaseRepository) ListRecords(ctx context.Context, from, to time.Time) ([]CaseRecord, error) {
	query := `
        SELECT id, case_id, sender, subject, state, intent, action_kind, success, fail_stage, fail_reason, finished_at, created_at
        FROM case_records
        WHERE finished_at >= $1 AND finished_at < $2
        ORDER BY finished_at
    `
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CaseRecord
	for rows.Next() {
		var rec CaseRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.CaseID,
			&rec.Sender,
			&rec.Subject,
			&rec.State,
			&rec.Intent,
			&rec.ActionKind,
			&rec.Success,
			&rec.FailStage,
			&rec.FailReason,
			&rec.FinishedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
