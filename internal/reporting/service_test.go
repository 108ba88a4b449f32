package reporting

import (
	"context"
	"regexp"
	"testing"
	"time"

	"hvac-backoffice/internal/calls"
	"hvac-backoffice/internal/holdback"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Unix(1700000000, 0).UTC()

func day() TimeRange { return TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)} }

func finalizedAt(t time.Time) *time.Time { return &t }

func TestReporting_CompanyIsolation(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Calls = []calls.Record{
		{CallID: "c1", CompanyID: "co_1", Status: calls.StatusCompleted, DurationSeconds: 30, StartedAt: now},
		{CallID: "c2", CompanyID: "co_2", Status: calls.StatusCompleted, DurationSeconds: 50, StartedAt: now},
	}
	svc := NewService(repo)

	out, err := svc.CallsSummary(context.Background(), "co_1", day())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 1 {
		t.Fatalf("expected 1 call, got %d", out.TotalCalls)
	}
}

func TestReporting_CallsSummaryCountsOutcomes(t *testing.T) {
	repo := NewMemoryRepo()
	done := finalizedAt(now)
	repo.Calls = []calls.Record{
		{CallID: "c1", CompanyID: "co", Status: calls.StatusCompleted, Outcome: calls.OutcomeAppointmentCreated, DurationSeconds: 120, StartedAt: now, FinalizedAt: done},
		{CallID: "c2", CompanyID: "co", Status: calls.StatusCompleted, Outcome: calls.OutcomeCustomerHangup, DurationSeconds: 20, StartedAt: now, FinalizedAt: done},
		{CallID: "c3", CompanyID: "co", Status: calls.StatusCompleted, Outcome: calls.OutcomeInformationProvided, TransferredToHuman: true, DurationSeconds: 60, StartedAt: now, FinalizedAt: done},
		{CallID: "c4", CompanyID: "co", Status: calls.StatusMissed, Outcome: calls.OutcomeTechnicalIssue, StartedAt: now, FinalizedAt: done},
		{CallID: "c5", CompanyID: "co", Status: calls.StatusInProgress, StartedAt: now},
		{CallID: "c6", CompanyID: "co", Status: calls.StatusCompleted, StartedAt: now.Add(2 * time.Hour)},
	}
	out, err := NewService(repo).CallsSummary(context.Background(), "co", day())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 5 || out.InProgressCalls != 1 || out.MissedCalls != 1 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if out.AppointmentsCreated != 1 || out.CustomerHangups != 1 || out.InformationProvided != 1 || out.TechnicalIssues != 1 || out.TransferredToHuman != 1 {
		t.Fatalf("unexpected outcomes: %+v", out)
	}
	if out.AverageDurationSeconds != 40 {
		t.Fatalf("expected avg 40, got %d", out.AverageDurationSeconds)
	}
	if out.BookingRate != 0.25 {
		t.Fatalf("expected booking rate 0.25, got %v", out.BookingRate)
	}
}

func TestReporting_HoldbackSummaryAggregates(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Payments = []holdback.Payment{
		{ID: "p1", CompanyID: "co", BaseAmountMinor: 100000, Currency: "USD", HoldbackPercentage: 10, Status: holdback.StatusReleased, CreatedAt: now},
		{ID: "p2", CompanyID: "co", BaseAmountMinor: 50000, Currency: "USD", HoldbackPercentage: 10, Status: holdback.StatusBlocked, CreatedAt: now},
		{ID: "p3", CompanyID: "co", BaseAmountMinor: 20000, Currency: "USD", HoldbackPercentage: 5, Status: holdback.StatusHoldback, CreatedAt: now},
		{ID: "p4", CompanyID: "co", BaseAmountMinor: 99999, Currency: "EUR", HoldbackPercentage: 10, Status: holdback.StatusHoldback, CreatedAt: now},
	}
	out, err := NewService(repo).HoldbackSummary(context.Background(), "co", day(), "usd")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Payments != 3 || out.WithheldMinor != 16000 {
		t.Fatalf("unexpected totals: %+v", out)
	}
	if out.ReleasedMinor != 10000 || out.BlockedMinor != 5000 || out.PendingMinor != 1000 {
		t.Fatalf("unexpected split: %+v", out)
	}
}

func TestReporting_InvalidRange(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if _, err := svc.CallsSummary(context.Background(), "co", TimeRange{From: now, To: now}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.HoldbackSummary(context.Background(), "", day(), ""); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestPostgresRepo_ListCalls(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := day()
	mock.ExpectQuery(regexp.QuoteMeta("FROM call_records")).
		WithArgs("co_1", r.From, r.To).
		WillReturnRows(sqlmock.NewRows([]string{"call_id", "status", "outcome", "transferred_to_human", "duration_seconds", "started_at", "finalized_at"}).
			AddRow("CA1", "completed", "appointment_created", false, 90, now, now).
			AddRow("CA2", "in_progress", "", false, 0, now, nil))

	rows, err := NewPostgresRepo(db).ListCalls(context.Background(), "co_1", r.From, r.To)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Finalized())
	assert.Equal(t, calls.OutcomeAppointmentCreated, rows[0].Outcome)
	assert.False(t, rows[1].Finalized())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ListPayments(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := day()
	mock.ExpectQuery(regexp.QuoteMeta("FROM holdback_payments")).
		WithArgs("co_1", r.From, r.To).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_id", "base_amount_minor", "currency", "holdback_percentage", "status", "created_at"}).
			AddRow("p1", "job1", int64(1000), "USD", 10.0, "released", now))

	rows, err := NewPostgresRepo(db).ListPayments(context.Background(), "co_1", r.From, r.To)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].HoldbackAmountMinor())
	assert.Equal(t, holdback.StatusReleased, rows[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
