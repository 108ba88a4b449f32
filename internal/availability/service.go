package availability

import (
	"context"
	"strings"
	"time"
)

// Service fronts a Ledger: it validates input and lazily initializes days from the
// configured template before any read or reservation.
type Service struct {
	ledger   Ledger
	template []WindowTemplate
	loc      *time.Location
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(ledger Ledger, template []WindowTemplate, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if len(template) == 0 {
		template = DefaultTemplate(4)
	}
	return &Service{ledger: ledger, template: template, loc: loc, clock: time.Now}
}

// Today returns the calendar key for the current day in the scheduling timezone.
func (s *Service) Today() string {
	return s.clock().In(s.loc).Format(DateLayout)
}

func (s *Service) GetAvailability(ctx context.Context, companyID, date string) ([]WindowAvailability, error) {
	if err := validateKey(companyID, date); err != nil {
		return nil, err
	}
	if err := s.ledger.EnsureDay(ctx, companyID, date, s.template); err != nil {
		return nil, err
	}
	d, err := s.ledger.GetDay(ctx, companyID, date)
	if err != nil {
		return nil, err
	}
	out := make([]WindowAvailability, 0, len(d.Windows))
	for _, w := range d.Windows {
		out = append(out, WindowAvailability{
			Name:      w.Name,
			Label:     w.Label,
			Capacity:  w.Capacity,
			Booked:    w.Booked,
			Available: w.Available(),
		})
	}
	return out, nil
}

// Reserve takes one slot in window on date. Returns the new booked count,
// ErrWindowFull or ErrWindowNotFound.
func (s *Service) Reserve(ctx context.Context, companyID, date, window string) (int, error) {
	if err := validateKey(companyID, date); err != nil {
		return 0, err
	}
	if strings.TrimSpace(window) == "" {
		return 0, ErrInvalidArgument
	}
	if err := s.ledger.EnsureDay(ctx, companyID, date, s.template); err != nil {
		return 0, err
	}
	return s.ledger.Reserve(ctx, companyID, date, window)
}

func validateKey(companyID, date string) error {
	if strings.TrimSpace(companyID) == "" {
		return ErrInvalidArgument
	}
	_, err := ParseDate(date)
	return err
}
