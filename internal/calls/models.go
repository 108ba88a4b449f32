package calls

import (
	"errors"
	"time"

	"hvac-backoffice/internal/booking"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Record is the persisted history of one inbound call.
//
// Multi-tenant invariant: CompanyID is required on every row.
// Transcript is append-only and ordered by Seq, never by timestamp.
// Outcome is written exactly once, when FinalizedAt is set.
type Record struct {
	CallID    string `json:"call_id" db:"call_id"`
	CompanyID string `json:"company_id" db:"company_id"`

	From string `json:"from" db:"from_number"`
	To   string `json:"to" db:"to_number"`

	Status Status `json:"status" db:"status"`

	CustomerName  string            `json:"customer_name,omitempty" db:"customer_name"`
	IssueType     booking.IssueType `json:"issue_type,omitempty" db:"issue_type"`
	AppointmentID string            `json:"appointment_id,omitempty" db:"appointment_id"`

	TransferredToHuman bool   `json:"transferred_to_human" db:"transferred_to_human"`
	TransferTarget     string `json:"transfer_target,omitempty" db:"transfer_target"`

	Transcript []TranscriptEntry `json:"transcript"`

	Outcome Outcome `json:"outcome,omitempty" db:"outcome"`
	// ProviderStatus is the raw terminal status reported by the telephony provider.
	ProviderStatus string `json:"provider_status,omitempty" db:"provider_status"`

	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	DurationSeconds int        `json:"duration" db:"duration_seconds"`
	FinalizedAt     *time.Time `json:"finalized_at,omitempty" db:"finalized_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (r Record) Finalized() bool { return r.FinalizedAt != nil }

type Status string

const (
	StatusIncoming   Status = "incoming"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusMissed     Status = "missed"
)

// StatusFromProvider maps a terminal provider status onto a record status.
func StatusFromProvider(providerStatus string) Status {
	switch providerStatus {
	case "completed":
		return StatusCompleted
	case "failed":
		return StatusFailed
	default:
		return StatusMissed
	}
}

type Outcome string

const (
	OutcomeAppointmentCreated  Outcome = "appointment_created"
	OutcomeInformationProvided Outcome = "information_provided"
	OutcomeTransferredToHuman  Outcome = "transferred_to_human"
	OutcomeCustomerHangup      Outcome = "customer_hangup"
	OutcomeTechnicalIssue      Outcome = "technical_issue"
	OutcomeFollowUpNeeded      Outcome = "follow_up_needed"
)

type Speaker string

const (
	SpeakerAI       Speaker = "ai"
	SpeakerCustomer Speaker = "customer"
	SpeakerSystem   Speaker = "system"
)

// TranscriptEntry is one turn. Seq is assigned by the repository, starting at 1.
type TranscriptEntry struct {
	Seq        int       `json:"seq" db:"seq"`
	At         time.Time `json:"timestamp" db:"at"`
	Speaker    Speaker   `json:"speaker" db:"speaker"`
	Text       string    `json:"text" db:"text"`
	Confidence float64   `json:"confidence" db:"confidence"`
}

// Finalization is the terminal update applied once to a record.
type Finalization struct {
	Status          Status
	Outcome         Outcome
	ProviderStatus  string
	CustomerName    string
	IssueType       booking.IssueType
	AppointmentID   string
	EndedAt         time.Time
	DurationSeconds int
}
