package availability

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLedger(t *testing.T) (*PostgresLedger, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	l := NewPostgresLedger(db)
	l.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return l, mock, db
}

func TestPostgresLedger_ReserveSuccess(t *testing.T) {
	l, mock, db := newMockLedger(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE availability_windows")).
		WithArgs("co_1", "2025-01-24", "8-11", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"booked"}).AddRow(3))

	n, err := l.Reserve(context.Background(), "co_1", "2025-01-24", "8-11")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_ReserveFull(t *testing.T) {
	l, mock, db := newMockLedger(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE availability_windows")).
		WithArgs("co_1", "2025-01-24", "8-11", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"booked"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT booked")).
		WithArgs("co_1", "2025-01-24", "8-11").
		WillReturnRows(sqlmock.NewRows([]string{"booked"}).AddRow(4))

	n, err := l.Reserve(context.Background(), "co_1", "2025-01-24", "8-11")
	assert.True(t, errors.Is(err, ErrWindowFull))
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_ReserveUnknownWindow(t *testing.T) {
	l, mock, db := newMockLedger(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE availability_windows")).
		WillReturnRows(sqlmock.NewRows([]string{"booked"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT booked")).
		WillReturnError(sql.ErrNoRows)

	_, err := l.Reserve(context.Background(), "co_1", "2025-01-24", "9-5")
	assert.ErrorIs(t, err, ErrWindowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_EnsureDayInsertsTemplateInTx(t *testing.T) {
	l, mock, db := newMockLedger(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).
		WithArgs("co_1", "2025-01-24").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("co_1", "2025-01-24").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	for i, w := range DefaultTemplate(4) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_windows")).
			WithArgs("co_1", "2025-01-24", w.Name, w.Label, i, 4, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, l.EnsureDay(context.Background(), "co_1", "2025-01-24", DefaultTemplate(4)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_GetDay(t *testing.T) {
	l, mock, db := newMockLedger(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, label, capacity, booked")).
		WithArgs("co_1", "2025-01-24").
		WillReturnRows(sqlmock.NewRows([]string{"name", "label", "capacity", "booked"}).
			AddRow("8-11", "morning, 8 to 11", 4, 4).
			AddRow("12-3", "afternoon, 12 to 3", 4, 1))

	d, err := l.GetDay(context.Background(), "co_1", "2025-01-24")
	require.NoError(t, err)
	require.Len(t, d.Windows, 2)
	assert.Equal(t, 0, d.Windows[0].Available())
	assert.Equal(t, 3, d.Windows[1].Available())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_GetDayMissing(t *testing.T) {
	l, mock, db := newMockLedger(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, label, capacity, booked")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "label", "capacity", "booked"}))

	_, err := l.GetDay(context.Background(), "co_1", "2025-01-24")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresLedger_EnsureDayLeavesExistingDayAlone(t *testing.T) {
	l, mock, db := newMockLedger(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).
		WithArgs("co_1", "2025-01-24").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("co_1", "2025-01-24").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	// A template with an extra window must not grow a day that was already initialized.
	tmpl := append(DefaultTemplate(4), WindowTemplate{Name: "6-8", Label: "late evening, 6 to 8", Capacity: 2})
	require.NoError(t, l.EnsureDay(context.Background(), "co_1", "2025-01-24", tmpl))
	assert.NoError(t, mock.ExpectationsWereMet())
}
