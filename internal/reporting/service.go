package reporting

import (
	"context"
	"errors"
	"strings"
	"time"

	"hvac-backoffice/internal/calls"
	"hvac-backoffice/internal/holdback"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// IMPORTANT:
// - Methods must enforce company filtering.
// - Implementations read the call and holdback tables; they never write.
type Repository interface {
	ListCalls(ctx context.Context, companyID string, from, to time.Time) ([]calls.Record, error)
	ListPayments(ctx context.Context, companyID string, from, to time.Time) ([]holdback.Payment, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, companyID string, r TimeRange) (CallsSummary, error) {
	if err := s.check(companyID, r); err != nil {
		return CallsSummary{}, err
	}

	rows, err := s.repo.ListCalls(ctx, companyID, r.From, r.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{CompanyID: companyID, Range: r}
	finalized := 0
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		if c.TransferredToHuman {
			out.TransferredToHuman++
		}
		switch c.Status {
		case calls.StatusIncoming, calls.StatusInProgress:
			out.InProgressCalls++
		case calls.StatusMissed:
			out.MissedCalls++
		case calls.StatusFailed:
			out.FailedCalls++
		}
		if !c.Finalized() {
			continue
		}
		finalized++
		switch c.Outcome {
		case calls.OutcomeAppointmentCreated:
			out.AppointmentsCreated++
		case calls.OutcomeInformationProvided:
			out.InformationProvided++
		case calls.OutcomeCustomerHangup:
			out.CustomerHangups++
		case calls.OutcomeTechnicalIssue:
			out.TechnicalIssues++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	if finalized > 0 {
		out.BookingRate = float64(out.AppointmentsCreated) / float64(finalized)
	}
	return out, nil
}

// HoldbackSummary totals payments in one currency. An empty currency takes the
// first payment's currency; payments in other currencies are skipped.
func (s *Service) HoldbackSummary(ctx context.Context, companyID string, r TimeRange, currency string) (HoldbackSummary, error) {
	if err := s.check(companyID, r); err != nil {
		return HoldbackSummary{}, err
	}

	rows, err := s.repo.ListPayments(ctx, companyID, r.From, r.To)
	if err != nil {
		return HoldbackSummary{}, err
	}

	out := HoldbackSummary{CompanyID: companyID, Range: r, Currency: strings.ToUpper(currency)}
	for _, p := range rows {
		if out.Currency == "" {
			out.Currency = p.Currency
		}
		if p.Currency != out.Currency {
			continue
		}
		amt := p.HoldbackAmountMinor()
		out.Payments++
		out.WithheldMinor += amt
		switch p.Status {
		case holdback.StatusReleased:
			out.ReleasedMinor += amt
		case holdback.StatusBlocked:
			out.BlockedMinor += amt
		default:
			out.PendingMinor += amt
		}
	}
	if out.Currency == "" {
		out.Currency = "UNKNOWN"
	}
	return out, nil
}

func (s *Service) check(companyID string, r TimeRange) error {
	if companyID == "" {
		return ErrInvalidRequest
	}
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return ErrInvalidRequest
	}
	if s.repo == nil {
		return errors.New("reporting: repository not configured")
	}
	return nil
}
