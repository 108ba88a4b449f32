package qa

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// NOTE: PostgresRepo assumes tables qa_gates, warranty_registrations and inspections,
// each keyed by (company_id, job_id). Gate metrics, photos and required types are JSONB.
// No pass/fail column exists; evaluation happens on read.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetGate(ctx context.Context, companyID, jobID string) (Gate, error) {
	const q = `
SELECT company_id, job_id, startup_metrics, photos, required_photo_types, updated_at
FROM qa_gates
WHERE company_id = $1 AND job_id = $2
`
	var g Gate
	var metrics, photos, required []byte
	if err := r.db.QueryRowContext(ctx, q, companyID, jobID).Scan(
		&g.CompanyID,
		&g.JobID,
		&metrics,
		&photos,
		&required,
		&g.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Gate{}, ErrNotFound
		}
		return Gate{}, err
	}
	if len(metrics) > 0 && string(metrics) != "null" {
		g.StartupMetrics = &StartupMetrics{}
		if err := json.Unmarshal(metrics, g.StartupMetrics); err != nil {
			return Gate{}, err
		}
	}
	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &g.Photos); err != nil {
			return Gate{}, err
		}
	}
	if len(required) > 0 {
		if err := json.Unmarshal(required, &g.RequiredPhotoTypes); err != nil {
			return Gate{}, err
		}
	}
	return g, nil
}

func (r *PostgresRepo) PutGate(ctx context.Context, g Gate) error {
	const q = `
INSERT INTO qa_gates (company_id, job_id, startup_metrics, photos, required_photo_types, updated_at)
VALUES ($1,$2,$3::jsonb,$4::jsonb,$5::jsonb,$6)
ON CONFLICT (company_id, job_id)
DO UPDATE SET startup_metrics = EXCLUDED.startup_metrics,
              photos = EXCLUDED.photos,
              required_photo_types = EXCLUDED.required_photo_types,
              updated_at = EXCLUDED.updated_at
`
	metrics, err := json.Marshal(g.StartupMetrics)
	if err != nil {
		return err
	}
	photos := g.Photos
	if photos == nil {
		photos = []Photo{}
	}
	photosRaw, err := json.Marshal(photos)
	if err != nil {
		return err
	}
	required, err := json.Marshal(g.RequiredPhotoTypes)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, g.CompanyID, g.JobID, string(metrics), string(photosRaw), string(required), g.UpdatedAt)
	return err
}

func (r *PostgresRepo) GetWarranty(ctx context.Context, companyID, jobID string) (Warranty, error) {
	const q = `
SELECT company_id, job_id, registered, registration_number, registered_at, updated_at
FROM warranty_registrations
WHERE company_id = $1 AND job_id = $2
`
	var w Warranty
	var at sql.NullTime
	if err := r.db.QueryRowContext(ctx, q, companyID, jobID).Scan(
		&w.CompanyID,
		&w.JobID,
		&w.Registered,
		&w.RegistrationNumber,
		&at,
		&w.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Warranty{}, ErrNotFound
		}
		return Warranty{}, err
	}
	if at.Valid {
		t := at.Time
		w.RegisteredAt = &t
	}
	return w, nil
}

func (r *PostgresRepo) PutWarranty(ctx context.Context, w Warranty) error {
	const q = `
INSERT INTO warranty_registrations (company_id, job_id, registered, registration_number, registered_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (company_id, job_id)
DO UPDATE SET registered = EXCLUDED.registered,
              registration_number = EXCLUDED.registration_number,
              registered_at = EXCLUDED.registered_at,
              updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q, w.CompanyID, w.JobID, w.Registered, w.RegistrationNumber, nullTime(w.RegisteredAt), w.UpdatedAt)
	return err
}

func (r *PostgresRepo) GetInspection(ctx context.Context, companyID, jobID string) (Inspection, error) {
	const q = `
SELECT company_id, job_id, required, completed, passed, inspected_at, updated_at
FROM inspections
WHERE company_id = $1 AND job_id = $2
`
	var in Inspection
	var at sql.NullTime
	if err := r.db.QueryRowContext(ctx, q, companyID, jobID).Scan(
		&in.CompanyID,
		&in.JobID,
		&in.Required,
		&in.Completed,
		&in.Passed,
		&at,
		&in.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Inspection{}, ErrNotFound
		}
		return Inspection{}, err
	}
	if at.Valid {
		t := at.Time
		in.InspectedAt = &t
	}
	return in, nil
}

func (r *PostgresRepo) PutInspection(ctx context.Context, in Inspection) error {
	const q = `
INSERT INTO inspections (company_id, job_id, required, completed, passed, inspected_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (company_id, job_id)
DO UPDATE SET required = EXCLUDED.required,
              completed = EXCLUDED.completed,
              passed = EXCLUDED.passed,
              inspected_at = EXCLUDED.inspected_at,
              updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q, in.CompanyID, in.JobID, in.Required, in.Completed, in.Passed, nullTime(in.InspectedAt), in.UpdatedAt)
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
