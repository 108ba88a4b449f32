package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
	// List returns the company's events newest first.
	List(ctx context.Context, companyID string, f Filter) ([]Event, error)
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.CompanyID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// List reads back a company's trail for internal ops.
func (s *Service) List(ctx context.Context, companyID string, f Filter) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if companyID == "" {
		return nil, ErrInvalidEvent
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return s.repo.List(ctx, companyID, f)
}

// LogAppointmentBooked records an appointment created by the voice agent.
func (s *Service) LogAppointmentBooked(ctx context.Context, companyID, callID, appointmentID, metadata string) error {
	return s.Append(ctx, Event{
		CompanyID:     companyID,
		Type:          EventTypeAppointmentBooked,
		CallID:        callID,
		AppointmentID: appointmentID,
		Message:       "appointment booked by voice agent",
		Metadata:      metadata,
	})
}

// LogCallFinalized records the terminal outcome of a call.
func (s *Service) LogCallFinalized(ctx context.Context, companyID, callID, outcome string) error {
	return s.Append(ctx, Event{
		CompanyID: companyID,
		Type:      EventTypeCallFinalized,
		CallID:    callID,
		Message:   outcome,
	})
}

// LogHoldback records a release or a blocked release attempt.
func (s *Service) LogHoldback(ctx context.Context, companyID, actorUserID, actorRole, jobID, paymentID string, released bool, message string) error {
	t := EventTypeHoldbackBlocked
	if released {
		t = EventTypeHoldbackReleased
	}
	return s.Append(ctx, Event{
		CompanyID:   companyID,
		Type:        t,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		JobID:       jobID,
		PaymentID:   paymentID,
		Message:     message,
	})
}

// LogOverride records an on-call transfer override usage.
func (s *Service) LogOverride(ctx context.Context, companyID, actorUserID, actorRole, ip, callID, overrideID, connectTo, metadata string) error {
	return s.Append(ctx, Event{
		CompanyID:   companyID,
		Type:        EventTypeTransferOverride,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		CallID:      callID,
		OverrideID:  overrideID,
		Message:     "transfer override applied: " + connectTo,
		Metadata:    metadata,
	})
}
