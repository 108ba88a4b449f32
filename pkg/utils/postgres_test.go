package utils

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE availability_windows").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "UPDATE availability_windows SET booked = booked + 1")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RetriesSerializationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conflict := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE availability_windows").WillReturnError(conflict)
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE availability_windows").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	attempts := 0
	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		attempts++
		_, err := tx.ExecContext(ctx, "UPDATE availability_windows SET booked = booked + 1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_GivesUpAfterMaxAttempts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	deadlock := &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	for i := 0; i < maxTxAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	attempts := 0
	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		attempts++
		return deadlock
	})
	assert.ErrorIs(t, err, deadlock)
	assert.Equal(t, maxTxAttempts, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_DoesNotRetryOtherPgErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		attempts++
		return &pgconn.PgError{Code: "23505"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	got := PostgresPoolConfig{MaxOpenConns: 2, MaxIdleConns: 10}.withDefaults()
	assert.Equal(t, 2, got.MaxOpenConns)
	assert.Equal(t, 2, got.MaxIdleConns)

	got = PostgresPoolConfig{}.withDefaults()
	assert.Equal(t, 25, got.MaxOpenConns)
	assert.Equal(t, 25, got.MaxIdleConns)
}
