package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hvac-backoffice/pkg/utils"
)

// NOTE: PostgresRepo assumes the following tables exist:
// - call_records (call_id primary key, transcript_seq int default 0)
// - call_transcript (immutable append-only, PRIMARY KEY (call_id, seq))
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const recordColumns = `
call_id, company_id, from_number, to_number, status, customer_name, issue_type, appointment_id,
transferred_to_human, transfer_target, outcome, provider_status, started_at, ended_at,
duration_seconds, finalized_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var r Record
	var ended, finalized sql.NullTime
	if err := row.Scan(
		&r.CallID,
		&r.CompanyID,
		&r.From,
		&r.To,
		&r.Status,
		&r.CustomerName,
		&r.IssueType,
		&r.AppointmentID,
		&r.TransferredToHuman,
		&r.TransferTarget,
		&r.Outcome,
		&r.ProviderStatus,
		&r.StartedAt,
		&ended,
		&r.DurationSeconds,
		&finalized,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return Record{}, err
	}
	if ended.Valid {
		t := ended.Time
		r.EndedAt = &t
	}
	if finalized.Valid {
		t := finalized.Time
		r.FinalizedAt = &t
	}
	return r, nil
}

func (p *PostgresRepo) CreateIfAbsent(ctx context.Context, r Record) (Record, bool, error) {
	const q = `
INSERT INTO call_records (
  call_id, company_id, from_number, to_number, status, customer_name, issue_type, appointment_id,
  transferred_to_human, transfer_target, outcome, provider_status, started_at, duration_seconds,
  transcript_seq, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,'','','',false,'','','',$6,0,0,$7,$7
)
ON CONFLICT (call_id) DO NOTHING
`
	res, err := p.db.ExecContext(ctx, q, r.CallID, r.CompanyID, r.From, r.To, r.Status, r.StartedAt, r.CreatedAt)
	if err != nil {
		return Record{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Record{}, false, err
	}
	out, err := p.Get(ctx, r.CompanyID, r.CallID)
	if err != nil {
		return Record{}, false, err
	}
	return out, n == 1, nil
}

func (p *PostgresRepo) Get(ctx context.Context, companyID, callID string) (Record, error) {
	q := `SELECT ` + recordColumns + `
FROM call_records
WHERE company_id = $1 AND call_id = $2
`
	r, err := scanRecord(p.db.QueryRowContext(ctx, q, companyID, callID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}

	const tq = `
SELECT seq, at, speaker, text, confidence
FROM call_transcript
WHERE call_id = $1
ORDER BY seq
`
	rows, err := p.db.QueryContext(ctx, tq, callID)
	if err != nil {
		return Record{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var e TranscriptEntry
		if err := rows.Scan(&e.Seq, &e.At, &e.Speaker, &e.Text, &e.Confidence); err != nil {
			return Record{}, err
		}
		r.Transcript = append(r.Transcript, e)
	}
	return r, rows.Err()
}

func (p *PostgresRepo) AppendTranscript(ctx context.Context, companyID, callID string, e TranscriptEntry) (TranscriptEntry, error) {
	// The sequence bump takes the record row lock, so concurrent appends for one call
	// serialize and get distinct, gapless seq values.
	const bump = `
UPDATE call_records
SET transcript_seq = transcript_seq + 1,
    status = CASE WHEN status = 'incoming' THEN 'in_progress' ELSE status END,
    updated_at = $3
WHERE company_id = $1 AND call_id = $2
RETURNING transcript_seq
`
	const insert = `
INSERT INTO call_transcript (call_id, seq, at, speaker, text, confidence)
VALUES ($1,$2,$3,$4,$5,$6)
`
	err := utils.WithTx(ctx, p.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, bump, companyID, callID, e.At).Scan(&e.Seq); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		_, err := tx.ExecContext(ctx, insert, callID, e.Seq, e.At, e.Speaker, e.Text, e.Confidence)
		return err
	})
	if err != nil {
		return TranscriptEntry{}, err
	}
	return e, nil
}

func (p *PostgresRepo) Finalize(ctx context.Context, companyID, callID string, f Finalization) (Record, bool, error) {
	q := `
UPDATE call_records
SET status = $3,
    outcome = $4,
    provider_status = $5,
    customer_name = COALESCE(NULLIF($6, ''), customer_name),
    issue_type = COALESCE(NULLIF($7, ''), issue_type),
    appointment_id = COALESCE(NULLIF($8, ''), appointment_id),
    ended_at = $9,
    duration_seconds = $10,
    finalized_at = $9,
    updated_at = $9
WHERE company_id = $1 AND call_id = $2 AND finalized_at IS NULL
RETURNING ` + recordColumns

	r, err := scanRecord(p.db.QueryRowContext(ctx, q,
		companyID,
		callID,
		f.Status,
		f.Outcome,
		f.ProviderStatus,
		f.CustomerName,
		f.IssueType,
		f.AppointmentID,
		f.EndedAt,
		f.DurationSeconds,
	))
	if err == nil {
		return r, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, err
	}
	existing, err := p.Get(ctx, companyID, callID)
	if err != nil {
		return Record{}, false, err
	}
	return existing, false, nil
}

func (p *PostgresRepo) LinkAppointment(ctx context.Context, companyID, callID, appointmentID string, now time.Time) error {
	const q = `
UPDATE call_records
SET appointment_id = $3, updated_at = $4
WHERE company_id = $1 AND call_id = $2
`
	return p.execOne(ctx, q, companyID, callID, appointmentID, now)
}

func (p *PostgresRepo) MarkTransferred(ctx context.Context, companyID, callID, target string, now time.Time) error {
	const q = `
UPDATE call_records
SET transferred_to_human = true, transfer_target = $3, updated_at = $4
WHERE company_id = $1 AND call_id = $2
`
	return p.execOne(ctx, q, companyID, callID, target, now)
}

func (p *PostgresRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := p.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
