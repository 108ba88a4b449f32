package availability

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hvac-backoffice/pkg/utils"
)

// NOTE: PostgresLedger assumes:
//
//	CREATE TABLE availability_windows (
//	  company_id text NOT NULL,
//	  day        date NOT NULL,
//	  name       text NOT NULL,
//	  label      text NOT NULL,
//	  position   int  NOT NULL,
//	  capacity   int  NOT NULL CHECK (capacity >= 0),
//	  booked     int  NOT NULL DEFAULT 0 CHECK (booked >= 0 AND booked <= capacity),
//	  updated_at timestamptz NOT NULL,
//	  PRIMARY KEY (company_id, day, name)
//	);
type PostgresLedger struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db, clock: time.Now}
}

func (l *PostgresLedger) EnsureDay(ctx context.Context, companyID, date string, tmpl []WindowTemplate) error {
	// The advisory lock orders concurrent first reads of the same day; the existence
	// check keeps a changed template from adding windows to a day that already exists.
	const lock = `SELECT pg_advisory_xact_lock(hashtext($1 || '|' || $2))`
	const exists = `SELECT EXISTS (SELECT 1 FROM availability_windows WHERE company_id = $1 AND day = $2)`
	const insert = `
INSERT INTO availability_windows (company_id, day, name, label, position, capacity, booked, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,0,$7)
ON CONFLICT (company_id, day, name) DO NOTHING
`
	now := l.clock().UTC()
	return utils.WithTx(ctx, l.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, lock, companyID, date); err != nil {
			return err
		}
		var found bool
		if err := tx.QueryRowContext(ctx, exists, companyID, date).Scan(&found); err != nil {
			return err
		}
		if found {
			return nil
		}
		for i, w := range tmpl {
			if _, err := tx.ExecContext(ctx, insert, companyID, date, w.Name, w.Label, i, w.Capacity, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *PostgresLedger) Reserve(ctx context.Context, companyID, date, window string) (int, error) {
	// Conditional increment: the WHERE clause is the capacity check, so concurrent
	// reservations serialize on the row lock and the loser sees no row.
	const q = `
UPDATE availability_windows
SET booked = booked + 1, updated_at = $4
WHERE company_id = $1 AND day = $2 AND name = $3 AND booked < capacity
RETURNING booked
`
	var booked int
	err := l.db.QueryRowContext(ctx, q, companyID, date, window, l.clock().UTC()).Scan(&booked)
	if err == nil {
		return booked, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	const exists = `
SELECT booked
FROM availability_windows
WHERE company_id = $1 AND day = $2 AND name = $3
`
	if err := l.db.QueryRowContext(ctx, exists, companyID, date, window).Scan(&booked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrWindowNotFound
		}
		return 0, err
	}
	return booked, ErrWindowFull
}

func (l *PostgresLedger) GetDay(ctx context.Context, companyID, date string) (Day, error) {
	const q = `
SELECT name, label, capacity, booked
FROM availability_windows
WHERE company_id = $1 AND day = $2
ORDER BY position
`
	rows, err := l.db.QueryContext(ctx, q, companyID, date)
	if err != nil {
		return Day{}, err
	}
	defer rows.Close()

	d := Day{CompanyID: companyID, Date: date}
	for rows.Next() {
		var w Window
		if err := rows.Scan(&w.Name, &w.Label, &w.Capacity, &w.Booked); err != nil {
			return Day{}, err
		}
		d.Windows = append(d.Windows, w)
	}
	if err := rows.Err(); err != nil {
		return Day{}, err
	}
	if len(d.Windows) == 0 {
		return Day{}, ErrNotFound
	}
	return d, nil
}
