package qa

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// DefaultRequiredPhotoTypes applies when neither the gate nor the policy names any.
var DefaultRequiredPhotoTypes = []string{"before", "after", "equipment"}

// StartupMetrics are the readings a technician captures at equipment startup.
type StartupMetrics struct {
	MicronsReading          float64            `json:"microns_reading"`
	TemperatureDifferential *float64           `json:"temperature_differential,omitempty"`
	AirflowCFM              *float64           `json:"airflow_cfm,omitempty"`
	ElectricalReadings      map[string]float64 `json:"electrical_readings,omitempty"`
}

type Photo struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Gate holds the captured QA inputs for one job. Pass/fail is never stored here;
// call Evaluate.
type Gate struct {
	CompanyID          string          `json:"company_id"`
	JobID              string          `json:"job_id"`
	StartupMetrics     *StartupMetrics `json:"startup_metrics,omitempty"`
	Photos             []Photo         `json:"photos"`
	RequiredPhotoTypes []string        `json:"required_photo_types,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type Warranty struct {
	CompanyID          string     `json:"company_id"`
	JobID              string     `json:"job_id"`
	Registered         bool       `json:"registered"`
	RegistrationNumber string     `json:"registration_number,omitempty"`
	RegisteredAt       *time.Time `json:"registered_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Inspection is optional per job. A job without an inspection record is treated as
// requiring one that has not happened yet.
type Inspection struct {
	CompanyID   string     `json:"company_id"`
	JobID       string     `json:"job_id"`
	Required    bool       `json:"required"`
	Completed   bool       `json:"completed"`
	Passed      bool       `json:"passed"`
	InspectedAt *time.Time `json:"inspected_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BlockedError lists unmet closure conditions in the fixed order QA, warranty, inspection.
type BlockedError struct {
	Reasons []string `json:"reasons"`
}

func (e *BlockedError) Error() string {
	return "blocked: " + strings.Join(e.Reasons, "; ")
}

// AsBlocked unwraps a *BlockedError from err.
func AsBlocked(err error) (*BlockedError, bool) {
	var be *BlockedError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
