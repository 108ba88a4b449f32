package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hvac-backoffice/internal/availability"
	"hvac-backoffice/pkg/logger"

	"github.com/google/uuid"
)

// Reserver is the availability ledger as seen by booking.
type Reserver interface {
	Reserve(ctx context.Context, companyID, date, window string) (int, error)
}

// Notifier sends the confirmation text. Failures never undo a booking.
type Notifier interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// CallLinker attaches the created appointment to the call record.
type CallLinker interface {
	LinkAppointment(ctx context.Context, companyID, callID, appointmentID string) error
}

type Auditor interface {
	LogAppointmentBooked(ctx context.Context, companyID, callID, appointmentID, metadata string) error
}

type Service struct {
	customers    CustomerRepository
	appointments AppointmentRepository
	reserver     Reserver

	notifier    Notifier
	calls       CallLinker
	audit       Auditor
	companyName string

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

type Options struct {
	Notifier    Notifier
	Calls       CallLinker
	Audit       Auditor
	CompanyName string
}

func NewService(customers CustomerRepository, appointments AppointmentRepository, reserver Reserver, opts Options) *Service {
	return &Service{
		customers:    customers,
		appointments: appointments,
		reserver:     reserver,
		notifier:     opts.Notifier,
		calls:        opts.Calls,
		audit:        opts.Audit,
		companyName:  opts.CompanyName,
		clock:        time.Now,
	}
}

// Book resolves the customer, reserves the slot and only then creates the appointment.
// A failed reservation leaves no appointment behind.
func (s *Service) Book(ctx context.Context, req Request) (Appointment, error) {
	if err := validate(req); err != nil {
		return Appointment{}, err
	}
	now := s.clock().UTC()
	log := logger.From(ctx).With("company_id", req.CompanyID, "call_id", req.CallID)

	cust, created, err := s.customers.GetOrCreateByPhone(ctx, Customer{
		ID:        uuid.NewString(),
		CompanyID: req.CompanyID,
		Name:      strings.TrimSpace(req.Name),
		Phone:     req.Phone,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: now,
	})
	if err != nil {
		return Appointment{}, fmt.Errorf("resolve customer: %w", err)
	}

	if _, err := s.reserver.Reserve(ctx, req.CompanyID, req.Date, req.Window); err != nil {
		switch {
		case errors.Is(err, availability.ErrWindowFull), errors.Is(err, availability.ErrWindowNotFound):
			return Appointment{}, fmt.Errorf("reserve %s %s: %w", req.Date, req.Window, ErrSlotUnavailable)
		case errors.Is(err, availability.ErrInvalidArgument):
			return Appointment{}, fmt.Errorf("reserve %s %s: %w", req.Date, req.Window, ErrValidationFailed)
		default:
			return Appointment{}, fmt.Errorf("reserve: %w", err)
		}
	}

	appt := Appointment{
		ID:         uuid.NewString(),
		CompanyID:  req.CompanyID,
		CustomerID: cust.ID,
		CallID:     req.CallID,
		Date:       req.Date,
		Window:     req.Window,
		IssueType:  req.Issue,
		Address:    strings.TrimSpace(req.Address),
		Source:     SourceAIVoice,
		Status:     AppointmentStatusScheduled,
		CreatedAt:  now,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		// The slot stays booked; ops reconcile from the ledger and the error log.
		log.Error("appointment create failed after reserve", "date", req.Date, "window", req.Window, "err", err)
		return Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	log.Info("appointment booked", "appointment_id", appt.ID, "customer_id", cust.ID, "new_customer", created)

	s.afterBook(ctx, log, req, appt)
	return appt, nil
}

func (s *Service) Get(ctx context.Context, companyID, id string) (Appointment, error) {
	if companyID == "" || id == "" {
		return Appointment{}, ErrValidationFailed
	}
	return s.appointments.Get(ctx, companyID, id)
}

// afterBook runs the downstream integrations. Each failure is logged and swallowed.
func (s *Service) afterBook(ctx context.Context, log *slog.Logger, req Request, appt Appointment) {
	if s.calls != nil && req.CallID != "" {
		if err := s.calls.LinkAppointment(ctx, req.CompanyID, req.CallID, appt.ID); err != nil {
			log.Warn("link call to appointment failed", "appointment_id", appt.ID, "err", err)
		}
	}
	if s.notifier != nil {
		if _, err := s.notifier.SendSMS(ctx, req.Phone, s.confirmationText(req)); err != nil {
			log.Warn("confirmation sms failed", "appointment_id", appt.ID, "err", err)
		}
	}
	if s.audit != nil {
		meta, _ := json.Marshal(map[string]string{
			"date":       appt.Date,
			"window":     appt.Window,
			"issue_type": string(appt.IssueType),
		})
		if err := s.audit.LogAppointmentBooked(ctx, req.CompanyID, req.CallID, appt.ID, string(meta)); err != nil {
			log.Warn("audit append failed", "appointment_id", appt.ID, "err", err)
		}
	}
}

func (s *Service) confirmationText(req Request) string {
	window := req.WindowLabel
	if window == "" {
		window = req.Window
	}
	from := s.companyName
	if from == "" {
		from = "Your HVAC team"
	}
	return fmt.Sprintf("%s: Hi %s, your %s service visit is booked for %s in the %s window. We'll text you when your technician is on the way.",
		from, firstName(req.Name), req.Issue.Spoken(), req.Date, window)
}

func firstName(name string) string {
	f := strings.Fields(name)
	if len(f) == 0 {
		return "there"
	}
	return f[0]
}

func validate(req Request) error {
	var missing []string
	if strings.TrimSpace(req.CompanyID) == "" {
		missing = append(missing, "company_id")
	}
	if strings.TrimSpace(req.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(req.Address) == "" {
		missing = append(missing, "address")
	}
	if !req.Issue.Valid() {
		missing = append(missing, "issue_type")
	}
	if _, err := availability.ParseDate(req.Date); err != nil {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(req.Window) == "" {
		missing = append(missing, "window")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(missing, ", "))
	}
	return nil
}
