package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummary aggregates finalized and live call records for a company.
// Company isolation: CompanyID is required.
type CallsSummary struct {
	CompanyID string    `json:"company_id"`
	Range     TimeRange `json:"range"`

	TotalCalls      int `json:"total_calls"`
	InProgressCalls int `json:"in_progress_calls"`
	MissedCalls     int `json:"missed_calls"`
	FailedCalls     int `json:"failed_calls"`

	AppointmentsCreated int `json:"appointments_created"`
	InformationProvided int `json:"information_provided"`
	CustomerHangups     int `json:"customer_hangups"`
	TechnicalIssues     int `json:"technical_issues"`
	TransferredToHuman  int `json:"transferred_to_human"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// BookingRate is appointments created per finalized call.
	BookingRate float64 `json:"booking_rate"`
}

// HoldbackSummary totals withheld subcontractor money by release state.
// Amounts are minor units of Currency.
type HoldbackSummary struct {
	CompanyID string    `json:"company_id"`
	Range     TimeRange `json:"range"`
	Currency  string    `json:"currency"`

	Payments int `json:"payments"`

	WithheldMinor int64 `json:"withheld_minor"`
	ReleasedMinor int64 `json:"released_minor"`
	BlockedMinor  int64 `json:"blocked_minor"`
	PendingMinor  int64 `json:"pending_minor"`
}
