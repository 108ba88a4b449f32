package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// NOTE: PostgresRepo assumes table audit_events exists with an INSERT-only grant
// for the application role.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, company_id, type, actor_user_id, actor_role, ip_address,
  call_id, appointment_id, job_id, payment_id, override_id, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NULLIF($13,'')::jsonb,$14
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.CompanyID,
		e.Type,
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.CallID,
		e.AppointmentID,
		e.JobID,
		e.PaymentID,
		e.OverrideID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, companyID string, f Filter) ([]Event, error) {
	q := `
SELECT id, company_id, type, actor_user_id, actor_role, ip_address,
  call_id, appointment_id, job_id, payment_id, override_id, message, COALESCE(metadata::text, ''), created_at
FROM audit_events
WHERE company_id = $1`
	args := []any{companyID}
	for _, c := range []struct {
		col string
		val string
	}{
		{"type", string(f.Type)},
		{"call_id", f.CallID},
		{"job_id", f.JobID},
		{"payment_id", f.PaymentID},
	} {
		if c.val == "" {
			continue
		}
		args = append(args, c.val)
		q += fmt.Sprintf(" AND %s = $%d", c.col, len(args))
	}
	args = append(args, f.Limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID, &e.CompanyID, &e.Type, &e.ActorUserID, &e.ActorRole, &e.IPAddress,
			&e.CallID, &e.AppointmentID, &e.JobID, &e.PaymentID, &e.OverrideID, &e.Message, &e.Metadata, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
