package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hvac-backoffice/internal/ivr"
	"hvac-backoffice/pkg/logger"
)

type Auditor interface {
	LogCallFinalized(ctx context.Context, companyID, callID, outcome string) error
}

// Service keeps call records in lockstep with the voice flow.
type Service struct {
	repo  Repository
	audit Auditor
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, audit Auditor) *Service {
	return &Service{repo: repo, audit: audit, clock: time.Now}
}

// OpenOrGet creates the record on the first event for callID and returns the
// existing record on every later call.
func (s *Service) OpenOrGet(ctx context.Context, companyID, callID, from, to string) (Record, error) {
	if strings.TrimSpace(companyID) == "" || strings.TrimSpace(callID) == "" {
		return Record{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	r, created, err := s.repo.CreateIfAbsent(ctx, Record{
		CallID:    callID,
		CompanyID: companyID,
		From:      from,
		To:        to,
		Status:    StatusIncoming,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Record{}, err
	}
	if r.CompanyID != companyID {
		// Call ids are provider-global; never hand one tenant another tenant's call.
		return Record{}, ErrNotFound
	}
	if created {
		logger.From(ctx).Info("call record opened", "company_id", companyID, "call_id", callID)
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, companyID, callID string) (Record, error) {
	if companyID == "" || callID == "" {
		return Record{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, companyID, callID)
}

// AppendTurn adds one transcript entry. Empty text is not recorded.
func (s *Service) AppendTurn(ctx context.Context, companyID, callID string, speaker Speaker, text string, confidence float64) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	switch speaker {
	case SpeakerAI, SpeakerCustomer, SpeakerSystem:
	default:
		return ErrInvalidArgument
	}
	_, err := s.repo.AppendTranscript(ctx, companyID, callID, TranscriptEntry{
		At:         s.clock().UTC(),
		Speaker:    speaker,
		Text:       text,
		Confidence: confidence,
	})
	return err
}

// Finalize closes the record once. Later calls return the stored outcome unchanged.
func (s *Service) Finalize(ctx context.Context, companyID, callID, terminalStatus string, snap ivr.Session) (Outcome, error) {
	if companyID == "" || callID == "" {
		return "", ErrInvalidArgument
	}
	if !ivr.IsTerminalCallStatus(terminalStatus) {
		return "", fmt.Errorf("%w: %q is not a terminal call status", ErrInvalidArgument, terminalStatus)
	}

	current, err := s.repo.Get(ctx, companyID, callID)
	if err != nil {
		return "", err
	}
	if current.Finalized() {
		return current.Outcome, nil
	}

	collected := snap.Collected()
	outcome := DeriveOutcome(snap.State(), collected.AppointmentID, terminalStatus)
	now := s.clock().UTC()
	dur := int(now.Sub(current.StartedAt).Seconds())
	if dur < 0 {
		dur = 0
	}

	out, applied, err := s.repo.Finalize(ctx, companyID, callID, Finalization{
		Status:          StatusFromProvider(terminalStatus),
		Outcome:         outcome,
		ProviderStatus:  terminalStatus,
		CustomerName:    collected.Name,
		IssueType:       collected.Issue,
		AppointmentID:   collected.AppointmentID,
		EndedAt:         now,
		DurationSeconds: dur,
	})
	if err != nil {
		return "", err
	}
	if !applied {
		return out.Outcome, nil
	}

	log := logger.From(ctx)
	log.Info("call finalized", "company_id", companyID, "call_id", callID, "outcome", out.Outcome, "provider_status", terminalStatus, "state", snap.State())
	if s.audit != nil {
		if err := s.audit.LogCallFinalized(ctx, companyID, callID, string(out.Outcome)); err != nil {
			log.Warn("audit append failed", "call_id", callID, "err", err)
		}
	}
	return out.Outcome, nil
}

// LinkAppointment records the appointment a call produced.
func (s *Service) LinkAppointment(ctx context.Context, companyID, callID, appointmentID string) error {
	if appointmentID == "" {
		return ErrInvalidArgument
	}
	return s.repo.LinkAppointment(ctx, companyID, callID, appointmentID, s.clock().UTC())
}

func (s *Service) MarkTransferred(ctx context.Context, companyID, callID, target string) error {
	return s.repo.MarkTransferred(ctx, companyID, callID, target, s.clock().UTC())
}

// IsNotFound is a small helper for handlers.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
