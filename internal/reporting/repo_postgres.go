package reporting

import (
	"context"
	"database/sql"
	"time"

	"hvac-backoffice/internal/calls"
	"hvac-backoffice/internal/holdback"
)

// NOTE: PostgresRepo reads the call_records and holdback_payments tables
// owned by the calls and holdback packages. Ranges are half-open.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListCalls(ctx context.Context, companyID string, from, to time.Time) ([]calls.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT call_id, status, outcome, transferred_to_human, duration_seconds, started_at, finalized_at
FROM call_records
WHERE company_id = $1 AND started_at >= $2 AND started_at < $3
ORDER BY started_at`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calls.Record
	for rows.Next() {
		c := calls.Record{CompanyID: companyID}
		var finalized sql.NullTime
		if err := rows.Scan(&c.CallID, &c.Status, &c.Outcome, &c.TransferredToHuman, &c.DurationSeconds, &c.StartedAt, &finalized); err != nil {
			return nil, err
		}
		if finalized.Valid {
			t := finalized.Time
			c.FinalizedAt = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListPayments(ctx context.Context, companyID string, from, to time.Time) ([]holdback.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, job_id, base_amount_minor, currency, holdback_percentage, status, created_at
FROM holdback_payments
WHERE company_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []holdback.Payment
	for rows.Next() {
		p := holdback.Payment{CompanyID: companyID}
		if err := rows.Scan(&p.ID, &p.JobID, &p.BaseAmountMinor, &p.Currency, &p.HoldbackPercentage, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
