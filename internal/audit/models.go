package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - company_id is required for tenancy isolation.
// - actor and ip capture are best-effort; do not block critical flows on audit failures.
//
// Storage (Postgres): table audit_events with an INSERT-only policy.

type Event struct {
	ID        string `json:"id" db:"id"`
	CompanyID string `json:"company_id" db:"company_id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event. Empty for the voice agent.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress is the resolved client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	CallID        string `json:"call_id,omitempty" db:"call_id"`
	AppointmentID string `json:"appointment_id,omitempty" db:"appointment_id"`
	JobID         string `json:"job_id,omitempty" db:"job_id"`
	PaymentID     string `json:"payment_id,omitempty" db:"payment_id"`
	OverrideID    string `json:"override_id,omitempty" db:"override_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeAppointmentBooked EventType = "appointment_booked"
	EventTypeCallFinalized     EventType = "call_finalized"
	EventTypeHoldbackReleased  EventType = "holdback_released"
	EventTypeHoldbackBlocked   EventType = "holdback_blocked"
	EventTypeTransferOverride  EventType = "transfer_override"
)

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Type      EventType
	CallID    string
	JobID     string
	PaymentID string
	Limit     int
}

func (f Filter) match(e Event) bool {
	return (f.Type == "" || e.Type == f.Type) &&
		(f.CallID == "" || e.CallID == f.CallID) &&
		(f.JobID == "" || e.JobID == f.JobID) &&
		(f.PaymentID == "" || e.PaymentID == f.PaymentID)
}
