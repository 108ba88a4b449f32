package routing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidOverride = errors.New("routing: invalid override")

// AdminOverrideEngine applies silent, expiry-based on-call overrides.
//
// Requirements:
//   - Silent routing: callers must not be able to infer that an override was used.
//     That means: do NOT surface special reasons on the decision.
//   - Expiry based: overrides must be time-bounded.
//   - Internal audit logging: every applied override is recorded.
//
// This component returns a Decision only and does not call providers.
// It is placed ahead of the weighted dispatcher pick.
type AdminOverrideEngine struct {
	Store OverrideStore
	Audit AuditLogger
	Now   func() time.Time
}

// OverrideStore resolves currently-active overrides, one per company.
type OverrideStore interface {
	// GetActiveOverride returns an active override if one exists for this company.
	// If none exists, it returns (Override{}, false, nil).
	GetActiveOverride(ctx context.Context, companyID string, now time.Time) (Override, bool, error)
	SetOverride(ctx context.Context, o Override, now time.Time) error
	ClearOverride(ctx context.Context, companyID string) error
}

// AuditLogger records internal-only audit events.
type AuditLogger interface {
	LogOverrideApplied(ctx context.Context, e OverrideAuditEvent) error
}

type Override struct {
	CompanyID  string `json:"company_id"`
	OverrideID string `json:"override_id"`

	// ConnectTo is the forced dial target (the on-call technician's phone).
	ConnectTo string `json:"connect_to"`

	// ExpiresAt marks when the override stops applying.
	ExpiresAt time.Time `json:"expires_at"`

	CreatedBy string `json:"created_by,omitempty"`
	// Metadata is optional JSON for internal audit correlation.
	Metadata string `json:"metadata,omitempty"`
}

type OverrideAuditEvent struct {
	CompanyID  string
	OverrideID string

	CallID    string
	From      string
	To        string
	IPAddress string

	ConnectTo string
	AppliedAt time.Time
	ExpiresAt time.Time

	Metadata string
}

func NewAdminOverrideEngine(store OverrideStore, audit AuditLogger) *AdminOverrideEngine {
	return &AdminOverrideEngine{Store: store, Audit: audit, Now: time.Now}
}

// Set installs the company's on-call override, replacing any previous one.
func (e *AdminOverrideEngine) Set(ctx context.Context, o Override) (Override, error) {
	if e.Store == nil {
		return Override{}, errors.New("routing: override store not configured")
	}
	now := e.now()
	o.ConnectTo = strings.TrimSpace(o.ConnectTo)
	if o.CompanyID == "" || o.ConnectTo == "" || !o.ExpiresAt.After(now) {
		return Override{}, ErrInvalidOverride
	}
	if o.OverrideID == "" {
		o.OverrideID = uuid.NewString()
	}
	if err := e.Store.SetOverride(ctx, o, now); err != nil {
		return Override{}, err
	}
	return o, nil
}

func (e *AdminOverrideEngine) Clear(ctx context.Context, companyID string) error {
	if companyID == "" {
		return ErrInvalidOverride
	}
	if e.Store == nil {
		return nil
	}
	return e.Store.ClearOverride(ctx, companyID)
}

// Active returns the company's current override, if any.
func (e *AdminOverrideEngine) Active(ctx context.Context, companyID string) (Override, bool, error) {
	if e.Store == nil {
		return Override{}, false, nil
	}
	now := e.now()
	o, ok, err := e.Store.GetActiveOverride(ctx, companyID, now)
	if err != nil || !ok || !o.ExpiresAt.After(now) {
		return Override{}, false, err
	}
	return o, true, nil
}

// Decide returns (decision, true, nil) if an active override was applied.
// Returns (Decision{}, false, nil) if no override applies.
func (e *AdminOverrideEngine) Decide(ctx context.Context, req TransferRequest) (Decision, bool, error) {
	if req.CompanyID == "" {
		return Decision{}, false, errors.New("routing: company_id required")
	}

	now := e.now()
	o, ok, err := e.Active(ctx, req.CompanyID)
	if err != nil {
		return Decision{}, false, err
	}
	if !ok {
		return Decision{}, false, nil
	}
	if o.ConnectTo == "" {
		// Misconfiguration: ignore silently but report as internal error.
		return Decision{}, false, errors.New("routing: override connect_to empty")
	}

	// Silent routing: do NOT expose any special Reason.
	d := Decision{CompanyID: req.CompanyID, Action: ActionDial, ConnectTo: o.ConnectTo}

	if e.Audit != nil {
		_ = e.Audit.LogOverrideApplied(ctx, OverrideAuditEvent{
			CompanyID:  req.CompanyID,
			OverrideID: o.OverrideID,
			CallID:     req.CallID,
			From:       req.From,
			To:         req.To,
			IPAddress:  ClientIPFromContext(ctx),
			ConnectTo:  o.ConnectTo,
			AppliedAt:  now,
			ExpiresAt:  o.ExpiresAt,
			Metadata:   o.Metadata,
		})
	}

	return d, true, nil
}

func (e *AdminOverrideEngine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
