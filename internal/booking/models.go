package booking

import (
	"errors"
	"time"
)

var (
	ErrSlotUnavailable  = errors.New("slot unavailable")
	ErrValidationFailed = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
)

// IssueType is the structured reason for a service visit.
type IssueType string

const (
	IssueNoHeat      IssueType = "no_heat"
	IssueNoCool      IssueType = "no_cool"
	IssueMaintenance IssueType = "maintenance"
	IssuePlumbing    IssueType = "plumbing"
)

// IssuePriority is the fixed resolution order when several issue types match.
var IssuePriority = []IssueType{IssueNoHeat, IssueNoCool, IssueMaintenance, IssuePlumbing}

func (t IssueType) Valid() bool {
	switch t {
	case IssueNoHeat, IssueNoCool, IssueMaintenance, IssuePlumbing:
		return true
	default:
		return false
	}
}

// Spoken is the phrase used in prompts and messages.
func (t IssueType) Spoken() string {
	switch t {
	case IssueNoHeat:
		return "no heat"
	case IssueNoCool:
		return "no cooling"
	case IssueMaintenance:
		return "maintenance"
	case IssuePlumbing:
		return "plumbing"
	default:
		return string(t)
	}
}

// Source records which channel created an appointment.
type Source string

const (
	SourceAIVoice Source = "ai-voice"
	SourceAISMS   Source = "ai-sms"
	SourceManual  Source = "manual"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCanceled  AppointmentStatus = "canceled"
)

// Customer is unique per (company_id, phone). The first caller to use a number wins.
type Customer struct {
	ID        string    `json:"id" db:"id"`
	CompanyID string    `json:"company_id" db:"company_id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Address   string    `json:"address" db:"address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Appointment always references a slot that the availability ledger granted.
type Appointment struct {
	ID         string            `json:"id" db:"id"`
	CompanyID  string            `json:"company_id" db:"company_id"`
	CustomerID string            `json:"customer_id" db:"customer_id"`
	CallID     string            `json:"call_id,omitempty" db:"call_id"`
	Date       string            `json:"date" db:"date"`
	Window     string            `json:"window" db:"window_name"`
	IssueType  IssueType         `json:"issue_type" db:"issue_type"`
	Address    string            `json:"address" db:"address"`
	Source     Source            `json:"source" db:"source"`
	Status     AppointmentStatus `json:"status" db:"status"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// Request is the data collected during a call.
type Request struct {
	CompanyID string
	CallID    string
	Phone     string
	Name      string
	Address   string
	Issue     IssueType
	Date      string
	Window    string

	// WindowLabel is optional and only used for the confirmation text.
	WindowLabel string
}
