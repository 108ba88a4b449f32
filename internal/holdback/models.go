package holdback

import (
	"errors"
	"math"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("payment already exists for job")
)

// DefaultPercentage is the withheld share when a payment does not set one.
const DefaultPercentage = 10.0

// Payment is a subcontractor payment with a withheld share.
// Invariant: once Released, status never changes again and exactly one
// release entry exists in the payment history.
type Payment struct {
	ID              string `json:"id" db:"id"`
	CompanyID       string `json:"company_id" db:"company_id"`
	JobID           string `json:"job_id" db:"job_id"`
	SubcontractorID string `json:"subcontractor_id,omitempty" db:"subcontractor_id"`

	// BaseAmountMinor is the full payment in minor units (e.g., cents).
	BaseAmountMinor    int64   `json:"base_amount_minor" db:"base_amount_minor"`
	Currency           string  `json:"currency" db:"currency"`
	HoldbackPercentage float64 `json:"holdback_percentage" db:"holdback_percentage"`

	Status Status `json:"status" db:"status"`
	// BlockedReasons holds the reasons from the latest blocked evaluation.
	BlockedReasons []string `json:"blocked_reasons,omitempty" db:"blocked_reasons"`

	ReleasedAt *time.Time `json:"released_at,omitempty" db:"released_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusHoldback Status = "holdback"
	StatusReleased Status = "released"
	StatusBlocked  Status = "blocked"
)

// HoldbackAmountMinor is the withheld share, rounded half away from zero.
func (p Payment) HoldbackAmountMinor() int64 {
	return int64(math.Round(float64(p.BaseAmountMinor) * p.HoldbackPercentage / 100))
}

// ReleasableAmountMinor is the share paid out without conditions.
func (p Payment) ReleasableAmountMinor() int64 {
	return p.BaseAmountMinor - p.HoldbackAmountMinor()
}

// HistoryEntry is an immutable append-only row of the payment history.
type HistoryEntry struct {
	ID        string    `json:"id" db:"id"`
	CompanyID string    `json:"company_id" db:"company_id"`
	PaymentID string    `json:"payment_id" db:"payment_id"`
	Type      EntryType `json:"type" db:"type"`

	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Currency    string `json:"currency" db:"currency"`

	// IdempotencyKey is unique per payment; the release entry uses "release:<payment_id>".
	IdempotencyKey string `json:"idempotency_key" db:"idempotency_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EntryType string

const (
	EntryTypeRelease EntryType = "release"
)

func releaseKey(paymentID string) string { return "release:" + paymentID }
