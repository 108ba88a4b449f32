package booking

import (
	"context"
	"database/sql"
	"errors"
)

// NOTE: PostgresRepo assumes:
// - customers with UNIQUE (company_id, phone)
// - appointments
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetOrCreateByPhone(ctx context.Context, c Customer) (Customer, bool, error) {
	const insert = `
INSERT INTO customers (id, company_id, name, phone, address, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (company_id, phone) DO NOTHING
RETURNING id, company_id, name, phone, address, created_at
`
	var out Customer
	err := r.db.QueryRowContext(ctx, insert, c.ID, c.CompanyID, c.Name, c.Phone, c.Address, c.CreatedAt).Scan(
		&out.ID,
		&out.CompanyID,
		&out.Name,
		&out.Phone,
		&out.Address,
		&out.CreatedAt,
	)
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Customer{}, false, err
	}

	const existing = `
SELECT id, company_id, name, phone, address, created_at
FROM customers
WHERE company_id = $1 AND phone = $2
`
	if err := r.db.QueryRowContext(ctx, existing, c.CompanyID, c.Phone).Scan(
		&out.ID,
		&out.CompanyID,
		&out.Name,
		&out.Phone,
		&out.Address,
		&out.CreatedAt,
	); err != nil {
		return Customer{}, false, err
	}
	return out, false, nil
}

func (r *PostgresRepo) Create(ctx context.Context, a Appointment) error {
	const q = `
INSERT INTO appointments (
  id, company_id, customer_id, call_id, date, window_name, issue_type, address, source, status, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
`
	_, err := r.db.ExecContext(ctx, q,
		a.ID,
		a.CompanyID,
		a.CustomerID,
		a.CallID,
		a.Date,
		a.Window,
		a.IssueType,
		a.Address,
		a.Source,
		a.Status,
		a.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, companyID, id string) (Appointment, error) {
	const q = `
SELECT id, company_id, customer_id, call_id, to_char(date, 'YYYY-MM-DD'), window_name, issue_type, address, source, status, created_at
FROM appointments
WHERE company_id = $1 AND id = $2
`
	var a Appointment
	if err := r.db.QueryRowContext(ctx, q, companyID, id).Scan(
		&a.ID,
		&a.CompanyID,
		&a.CustomerID,
		&a.CallID,
		&a.Date,
		&a.Window,
		&a.IssueType,
		&a.Address,
		&a.Source,
		&a.Status,
		&a.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, err
	}
	return a, nil
}
