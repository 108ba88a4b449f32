package audit

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_AppendRequiresCompanyAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeCallFinalized}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{CompanyID: "co_1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }

	if err := svc.LogOverride(context.Background(), "co_1", "u", "owner", "1.2.3.4", "CA1", "ov1", "+15550001111", "{}"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].IPAddress != "1.2.3.4" {
		t.Fatalf("expected ip captured")
	}
	if evs[0].Type != EventTypeTransferOverride {
		t.Fatalf("expected transfer_override")
	}
	if evs[0].ID == "" || !evs[0].CreatedAt.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Fatalf("expected id and created_at assigned, got %+v", evs[0])
	}
}

func TestService_LogHoldbackPicksType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	_ = svc.LogHoldback(context.Background(), "co_1", "u", "owner", "job1", "pay1", false, "Warranty not registered")
	_ = svc.LogHoldback(context.Background(), "co_1", "u", "owner", "job1", "pay1", true, "released 100")

	evs := repo.Events()
	if len(evs) != 2 || evs[0].Type != EventTypeHoldbackBlocked || evs[1].Type != EventTypeHoldbackReleased {
		t.Fatalf("unexpected events: %+v", evs)
	}
}

func TestPostgresRepo_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WithArgs("ev1", "co_1", EventTypeCallFinalized, "", "", "", "CA1", "", "", "", "", "customer_hangup", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepo(db)
	err = repo.Append(context.Background(), Event{
		ID:        "ev1",
		CompanyID: "co_1",
		Type:      EventTypeCallFinalized,
		CallID:    "CA1",
		Message:   "customer_hangup",
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ListIsCompanyScopedNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.LogHoldback(ctx, "co_1", "u", "owner", "job1", "pay1", false, "blocked")
	_ = svc.LogHoldback(ctx, "co_2", "u", "owner", "job1", "pay9", true, "released")
	_ = svc.LogHoldback(ctx, "co_1", "u", "owner", "job1", "pay1", true, "released")
	_ = svc.LogCallFinalized(ctx, "co_1", "CA1", "customer_hangup")

	evs, err := svc.List(ctx, "co_1", Filter{PaymentID: "pay1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(evs) != 2 || evs[0].Type != EventTypeHoldbackReleased || evs[1].Type != EventTypeHoldbackBlocked {
		t.Fatalf("unexpected events: %+v", evs)
	}

	evs, _ = svc.List(ctx, "co_1", Filter{Limit: 1})
	if len(evs) != 1 || evs[0].Type != EventTypeCallFinalized {
		t.Fatalf("expected newest event only, got %+v", evs)
	}

	if _, err := svc.List(ctx, "", Filter{}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestPostgresRepo_ListFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE company_id = $1 AND job_id = $2 ORDER BY created_at DESC, id DESC LIMIT $3")).
		WithArgs("co_1", "job1", 100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "type", "actor_user_id", "actor_role", "ip_address",
			"call_id", "appointment_id", "job_id", "payment_id", "override_id", "message", "metadata", "created_at",
		}).AddRow("ev1", "co_1", "holdback_blocked", "u", "owner", "", "", "", "job1", "pay1", "", "Warranty not registered", "", at))

	svc := NewService(NewPostgresRepo(db))
	evs, err := svc.List(context.Background(), "co_1", Filter{JobID: "job1"})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, EventTypeHoldbackBlocked, evs[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
