package holdback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"hvac-backoffice/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: PostgresRepo assumes the following tables exist:
// - holdback_payments (id primary key, UNIQUE (company_id, job_id), blocked_reasons JSONB)
// - holdback_history (immutable append-only)
//
// It also assumes an idempotency constraint:
// UNIQUE (payment_id, idempotency_key)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const paymentColumns = `
id, company_id, job_id, subcontractor_id, base_amount_minor, currency, holdback_percentage,
status, blocked_reasons, released_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (Payment, error) {
	var p Payment
	var reasons []byte
	var released sql.NullTime
	if err := row.Scan(
		&p.ID,
		&p.CompanyID,
		&p.JobID,
		&p.SubcontractorID,
		&p.BaseAmountMinor,
		&p.Currency,
		&p.HoldbackPercentage,
		&p.Status,
		&reasons,
		&released,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, err
	}
	if len(reasons) > 0 && string(reasons) != "null" {
		if err := json.Unmarshal(reasons, &p.BlockedReasons); err != nil {
			return Payment{}, err
		}
	}
	if released.Valid {
		t := released.Time
		p.ReleasedAt = &t
	}
	return p, nil
}

func (r *PostgresRepo) Create(ctx context.Context, p Payment) error {
	const q = `
INSERT INTO holdback_payments (
  id, company_id, job_id, subcontractor_id, base_amount_minor, currency, holdback_percentage,
  status, blocked_reasons, released_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10,$11,$12
)
`
	reasons, err := marshalReasons(p.BlockedReasons)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		p.ID,
		p.CompanyID,
		p.JobID,
		p.SubcontractorID,
		p.BaseAmountMinor,
		p.Currency,
		p.HoldbackPercentage,
		p.Status,
		reasons,
		p.ReleasedAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, companyID, paymentID string) (Payment, error) {
	q := `SELECT ` + paymentColumns + `
FROM holdback_payments
WHERE company_id = $1 AND id = $2
`
	return scanPayment(r.db.QueryRowContext(ctx, q, companyID, paymentID))
}

func (r *PostgresRepo) GetByJob(ctx context.Context, companyID, jobID string) (Payment, error) {
	q := `SELECT ` + paymentColumns + `
FROM holdback_payments
WHERE company_id = $1 AND job_id = $2
`
	return scanPayment(r.db.QueryRowContext(ctx, q, companyID, jobID))
}

func (r *PostgresRepo) History(ctx context.Context, companyID, paymentID string) ([]HistoryEntry, error) {
	const q = `
SELECT id, company_id, payment_id, type, amount_minor, currency, idempotency_key, created_at
FROM holdback_history
WHERE company_id = $1 AND payment_id = $2
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, companyID, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.ID,
			&e.CompanyID,
			&e.PaymentID,
			&e.Type,
			&e.AmountMinor,
			&e.Currency,
			&e.IdempotencyKey,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, companyID, paymentID string, fn func(Payment) (Mutation, error)) (Payment, error) {
	var out Payment
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		cur, err := lockPayment(ctx, tx, companyID, paymentID)
		if err != nil {
			return err
		}
		m, err := fn(cur)
		if err != nil {
			return err
		}
		if m.Entry != nil {
			if _, ok, err := findHistoryByIdempotency(ctx, tx, paymentID, m.Entry.IdempotencyKey); err != nil {
				return err
			} else if !ok {
				if err := insertHistory(ctx, tx, *m.Entry); err != nil {
					return err
				}
			}
		}
		if err := updatePayment(ctx, tx, m.Payment); err != nil {
			return err
		}
		out = m.Payment
		return nil
	})
	return out, err
}

func lockPayment(ctx context.Context, tx *sql.Tx, companyID, paymentID string) (Payment, error) {
	// Lock the payment row to serialize release evaluations per job.
	q := `SELECT ` + paymentColumns + `
FROM holdback_payments
WHERE company_id = $1 AND id = $2
FOR UPDATE
`
	return scanPayment(tx.QueryRowContext(ctx, q, companyID, paymentID))
}

func findHistoryByIdempotency(ctx context.Context, tx *sql.Tx, paymentID, key string) (HistoryEntry, bool, error) {
	const q = `
SELECT id, company_id, payment_id, type, amount_minor, currency, idempotency_key, created_at
FROM holdback_history
WHERE payment_id = $1 AND idempotency_key = $2
LIMIT 1
`
	var e HistoryEntry
	err := tx.QueryRowContext(ctx, q, paymentID, key).Scan(
		&e.ID,
		&e.CompanyID,
		&e.PaymentID,
		&e.Type,
		&e.AmountMinor,
		&e.Currency,
		&e.IdempotencyKey,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HistoryEntry{}, false, nil
		}
		return HistoryEntry{}, false, err
	}
	return e, true, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, e HistoryEntry) error {
	const q = `
INSERT INTO holdback_history (
  id, company_id, payment_id, type, amount_minor, currency, idempotency_key, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID,
		e.CompanyID,
		e.PaymentID,
		e.Type,
		e.AmountMinor,
		e.Currency,
		e.IdempotencyKey,
		e.CreatedAt,
	)
	return err
}

func updatePayment(ctx context.Context, tx *sql.Tx, p Payment) error {
	const q = `
UPDATE holdback_payments
SET status = $3, blocked_reasons = $4::jsonb, released_at = $5, updated_at = $6
WHERE company_id = $1 AND id = $2
`
	reasons, err := marshalReasons(p.BlockedReasons)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, q, p.CompanyID, p.ID, p.Status, reasons, p.ReleasedAt, p.UpdatedAt)
	return err
}

func marshalReasons(reasons []string) (string, error) {
	if reasons == nil {
		reasons = []string{}
	}
	b, err := json.Marshal(reasons)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
