package booking

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"hvac-backoffice/internal/availability"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotifier struct {
	to, body string
	err      error
}

func (n *stubNotifier) SendSMS(ctx context.Context, to, body string) (string, error) {
	n.to, n.body = to, body
	if n.err != nil {
		return "", n.err
	}
	return "SM1", nil
}

type stubLinker struct {
	callID, appointmentID string
}

func (l *stubLinker) LinkAppointment(ctx context.Context, companyID, callID, appointmentID string) error {
	l.callID, l.appointmentID = callID, appointmentID
	return nil
}

type stubReserver struct {
	err   error
	calls int
}

func (r *stubReserver) Reserve(ctx context.Context, companyID, date, window string) (int, error) {
	r.calls++
	return 1, r.err
}

func validRequest() Request {
	return Request{
		CompanyID:   "co_1",
		CallID:      "CA1",
		Phone:       "+15551234567",
		Name:        "Jane Doe",
		Address:     "12 Elm St",
		Issue:       IssueNoHeat,
		Date:        "2025-01-24",
		Window:      "8-11",
		WindowLabel: "morning, 8 to 11",
	}
}

func newTestService(res Reserver, n Notifier, l CallLinker) (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	s := NewService(repo, repo, res, Options{Notifier: n, Calls: l, CompanyName: "Acme HVAC"})
	s.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return s, repo
}

func TestBook_CreatesAppointmentAfterReserve(t *testing.T) {
	ledger := availability.NewService(availability.NewMemoryLedger(), availability.DefaultTemplate(4), time.UTC)
	n := &stubNotifier{}
	l := &stubLinker{}
	s, repo := newTestService(ledger, n, l)

	appt, err := s.Book(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if appt.Source != SourceAIVoice || appt.IssueType != IssueNoHeat || appt.Window != "8-11" {
		t.Fatalf("unexpected appointment: %+v", appt)
	}
	got, err := s.Get(context.Background(), "co_1", appt.ID)
	if err != nil || got.ID != appt.ID {
		t.Fatalf("expected stored appointment, got %+v err=%v", got, err)
	}
	if len(repo.Customers()) != 1 {
		t.Fatalf("expected one customer")
	}
	day, _ := ledger.GetAvailability(context.Background(), "co_1", "2025-01-24")
	if day[0].Booked != 1 {
		t.Fatalf("expected slot reserved, got %+v", day[0])
	}
	if n.to != "+15551234567" || !strings.Contains(n.body, "morning, 8 to 11") || !strings.Contains(n.body, "Hi Jane") {
		t.Fatalf("unexpected sms: to=%s body=%s", n.to, n.body)
	}
	if l.callID != "CA1" || l.appointmentID != appt.ID {
		t.Fatalf("expected call linked")
	}
}

func TestBook_SlotUnavailableCreatesNothing(t *testing.T) {
	res := &stubReserver{err: availability.ErrWindowFull}
	n := &stubNotifier{}
	s, repo := newTestService(res, n, nil)

	_, err := s.Book(context.Background(), validRequest())
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if len(repo.Appointments()) != 0 {
		t.Fatalf("expected no appointment")
	}
	if n.to != "" {
		t.Fatalf("expected no sms")
	}
}

func TestBook_ValidationFailedSkipsReserve(t *testing.T) {
	res := &stubReserver{}
	s, _ := newTestService(res, nil, nil)

	req := validRequest()
	req.Issue = "broken"
	req.Address = " "
	_, err := s.Book(context.Background(), req)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "address, issue_type") {
		t.Fatalf("expected missing fields listed, got %v", err)
	}
	if res.calls != 0 {
		t.Fatalf("expected no reservation attempt")
	}
}

func TestBook_SMSFailureDoesNotFailBooking(t *testing.T) {
	s, repo := newTestService(&stubReserver{}, &stubNotifier{err: errors.New("twilio down")}, nil)
	if _, err := s.Book(context.Background(), validRequest()); err != nil {
		t.Fatalf("expected booking to succeed, got %v", err)
	}
	if len(repo.Appointments()) != 1 {
		t.Fatalf("expected appointment stored")
	}
}

func TestBook_FirstSeenCustomerWins(t *testing.T) {
	s, repo := newTestService(&stubReserver{}, nil, nil)
	ctx := context.Background()

	first := validRequest()
	second := validRequest()
	second.Name = "Someone Else"
	second.CallID = "CA2"

	a1, err := s.Book(ctx, first)
	require.NoError(t, err)
	a2, err := s.Book(ctx, second)
	require.NoError(t, err)

	require.Len(t, repo.Customers(), 1)
	assert.Equal(t, "Jane Doe", repo.Customers()[0].Name)
	assert.Equal(t, a1.CustomerID, a2.CustomerID)
}

func TestPostgresRepo_GetOrCreateByPhoneReturnsExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Unix(1600000000, 0).UTC()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO customers")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "name", "phone", "address", "created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, company_id, name, phone, address, created_at")).
		WithArgs("co_1", "+15551234567").
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "name", "phone", "address", "created_at"}).
			AddRow("cust_1", "co_1", "Jane Doe", "+15551234567", "12 Elm St", created))

	repo := NewPostgresRepo(db)
	c, isNew, err := repo.GetOrCreateByPhone(context.Background(), Customer{
		ID: "cust_2", CompanyID: "co_1", Name: "Other", Phone: "+15551234567", CreatedAt: time.Unix(1700000000, 0).UTC(),
	})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "cust_1", c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments")).
		WithArgs("co_1", "nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewPostgresRepo(db).Get(context.Background(), "co_1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
