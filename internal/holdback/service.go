package holdback

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"hvac-backoffice/internal/auth"
	"hvac-backoffice/internal/qa"
	"hvac-backoffice/pkg/logger"

	"github.com/google/uuid"
)

// Gate decides whether a job's closure preconditions hold. It returns nil or a *qa.BlockedError.
type Gate interface {
	CanClose(ctx context.Context, companyID, jobID string) error
}

type Auditor interface {
	LogHoldback(ctx context.Context, companyID, actorUserID, actorRole, jobID, paymentID string, released bool, message string) error
}

type Options struct {
	Audit             Auditor
	DefaultPercentage float64
}

// Service releases withheld subcontractor payments.
//
// Money invariants:
// - Release is evaluated against live closure state, never a cached result
// - A release writes exactly one history entry, keyed release:<payment_id>
// - Writers are serialized per payment by the repository
type Service struct {
	repo       Repository
	gate       Gate
	audit      Auditor
	percentage float64

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, gate Gate, opts Options) *Service {
	pct := opts.DefaultPercentage
	if pct <= 0 {
		pct = DefaultPercentage
	}
	return &Service{repo: repo, gate: gate, audit: opts.Audit, percentage: pct, clock: time.Now}
}

type CreateRequest struct {
	SubcontractorID    string   `json:"subcontractor_id"`
	BaseAmountMinor    int64    `json:"base_amount_minor"`
	Currency           string   `json:"currency"`
	HoldbackPercentage *float64 `json:"holdback_percentage,omitempty"`
}

// Result is the outcome of a release evaluation that was not blocked.
type Result struct {
	Released        bool         `json:"released"`
	AlreadyReleased bool         `json:"already_released"`
	Payment         Payment      `json:"payment"`
	Entry           HistoryEntry `json:"entry"`
}

// Create registers the payment for a job. One payment exists per job.
func (s *Service) Create(ctx context.Context, companyID, jobID string, req CreateRequest) (Payment, error) {
	if strings.TrimSpace(companyID) == "" || strings.TrimSpace(jobID) == "" {
		return Payment{}, ErrInvalidArgument
	}
	if req.BaseAmountMinor <= 0 || req.Currency == "" {
		return Payment{}, ErrInvalidArgument
	}
	pct := s.percentage
	if req.HoldbackPercentage != nil {
		pct = *req.HoldbackPercentage
	}
	if pct < 0 || pct > 100 {
		return Payment{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	p := Payment{
		ID:                 uuid.NewString(),
		CompanyID:          companyID,
		JobID:              jobID,
		SubcontractorID:    req.SubcontractorID,
		BaseAmountMinor:    req.BaseAmountMinor,
		Currency:           strings.ToUpper(req.Currency),
		HoldbackPercentage: pct,
		Status:             StatusHoldback,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, companyID, paymentID string) (Payment, []HistoryEntry, error) {
	if companyID == "" || paymentID == "" {
		return Payment{}, nil, ErrInvalidArgument
	}
	p, err := s.repo.Get(ctx, companyID, paymentID)
	if err != nil {
		return Payment{}, nil, err
	}
	h, err := s.repo.History(ctx, companyID, paymentID)
	if err != nil {
		return Payment{}, nil, err
	}
	return p, h, nil
}

// EvaluateRelease re-checks the job's closure preconditions and releases the
// withheld amount when they hold. A released payment is reported as already
// released without touching history. A blocked evaluation marks the payment
// Blocked and returns the *qa.BlockedError.
func (s *Service) EvaluateRelease(ctx context.Context, companyID, paymentID string) (Result, error) {
	if companyID == "" || paymentID == "" {
		return Result{}, ErrInvalidArgument
	}
	log := logger.From(ctx).With("company_id", companyID, "payment_id", paymentID)

	var (
		res          Result
		blocked      *qa.BlockedError
		reasonsMoved bool
	)
	out, err := s.repo.Update(ctx, companyID, paymentID, func(p Payment) (Mutation, error) {
		if p.Status == StatusReleased {
			res = Result{Released: true, AlreadyReleased: true}
			return Mutation{Payment: p}, nil
		}

		now := s.clock().UTC()
		gateErr := s.gate.CanClose(ctx, p.CompanyID, p.JobID)
		if gateErr != nil {
			be, ok := qa.AsBlocked(gateErr)
			if !ok {
				return Mutation{}, fmt.Errorf("closure gate: %w", gateErr)
			}
			blocked = be
			reasonsMoved = p.Status != StatusBlocked || !slices.Equal(p.BlockedReasons, be.Reasons)
			p.Status = StatusBlocked
			p.BlockedReasons = append([]string(nil), be.Reasons...)
			if reasonsMoved {
				p.UpdatedAt = now
			}
			return Mutation{Payment: p}, nil
		}

		entry := HistoryEntry{
			ID:             uuid.NewString(),
			CompanyID:      p.CompanyID,
			PaymentID:      p.ID,
			Type:           EntryTypeRelease,
			AmountMinor:    p.HoldbackAmountMinor(),
			Currency:       p.Currency,
			IdempotencyKey: releaseKey(p.ID),
			CreatedAt:      now,
		}
		p.Status = StatusReleased
		p.BlockedReasons = nil
		p.ReleasedAt = &now
		p.UpdatedAt = now
		res = Result{Released: true, Entry: entry}
		return Mutation{Payment: p, Entry: &entry}, nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Payment = out

	if blocked != nil {
		if reasonsMoved {
			log.Info("holdback blocked", "job_id", out.JobID, "reasons", blocked.Reasons)
			s.logAudit(ctx, out, false, strings.Join(blocked.Reasons, "; "))
		}
		return Result{Payment: out}, blocked
	}
	if !res.AlreadyReleased {
		log.Info("holdback released", "job_id", out.JobID, "amount_minor", res.Entry.AmountMinor)
		s.logAudit(ctx, out, true, fmt.Sprintf("released %d %s", res.Entry.AmountMinor, out.Currency))
	}
	return res, nil
}

// ReevaluateJob re-runs release evaluation for the job's payment, if any.
// It has the qa.ChangeListener signature so closure input changes drive release.
func (s *Service) ReevaluateJob(ctx context.Context, companyID, jobID string) {
	log := logger.From(ctx).With("company_id", companyID, "job_id", jobID)
	p, err := s.repo.GetByJob(ctx, companyID, jobID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn("holdback lookup failed", "err", err)
		}
		return
	}
	if p.Status == StatusReleased {
		return
	}
	if _, err := s.EvaluateRelease(ctx, companyID, p.ID); err != nil {
		if _, ok := qa.AsBlocked(err); !ok {
			log.Warn("holdback re-evaluation failed", "payment_id", p.ID, "err", err)
		}
	}
}

func (s *Service) logAudit(ctx context.Context, p Payment, released bool, msg string) {
	if s.audit == nil {
		return
	}
	userID, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)
	if userID == "" {
		userID, role = "system", "system"
	}
	if err := s.audit.LogHoldback(ctx, p.CompanyID, userID, role, p.JobID, p.ID, released, msg); err != nil {
		logger.From(ctx).Warn("holdback audit failed", "payment_id", p.ID, "err", err)
	}
}
