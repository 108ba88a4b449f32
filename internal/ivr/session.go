package ivr

import (
	"encoding/json"
	"fmt"
	"time"

	"hvac-backoffice/internal/booking"
)

// State names the step of the call flow. The order below is the only direction a
// session may advance, except the Transferred escape hatch.
type State string

const (
	StateGreeting          State = "greeting"
	StateCollectingName    State = "collecting_name"
	StateCollectingAddress State = "collecting_address"
	StateCollectingIssue   State = "collecting_issue"
	StateOfferingWindows   State = "offering_windows"
	StateCompleted         State = "completed"
	StateTransferred       State = "transferred"
)

// Collecting reports whether the caller was still being asked for details.
func (s State) Collecting() bool {
	switch s {
	case StateCollectingName, StateCollectingAddress, StateCollectingIssue:
		return true
	default:
		return false
	}
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateTransferred
}

// Stage is the per-state payload. Each implementation carries only the fields that
// have been collected by the time the session reaches that state.
type Stage interface {
	State() State
}

type Greeting struct{}

type CollectingName struct{}

type CollectingAddress struct {
	Name string `json:"name"`
}

type CollectingIssue struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Offer is one window read back to the caller. Position is the window's index in the day.
type Offer struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Label    string `json:"label"`
}

type OfferingWindows struct {
	Name    string            `json:"name"`
	Address string            `json:"address"`
	Issue   booking.IssueType `json:"issue"`
	Date    string            `json:"date"`
	Offered []Offer           `json:"offered"`
}

type Completed struct {
	Name          string            `json:"name"`
	Address       string            `json:"address"`
	Issue         booking.IssueType `json:"issue"`
	Date          string            `json:"date"`
	Window        string            `json:"window"`
	AppointmentID string            `json:"appointment_id"`
}

type Transferred struct {
	Reason string `json:"reason"`
	// From is the state the caller left.
	From State `json:"from"`
	// Partial keeps whatever was collected before the transfer.
	Partial Collected `json:"partial"`
}

func (Greeting) State() State          { return StateGreeting }
func (CollectingName) State() State    { return StateCollectingName }
func (CollectingAddress) State() State { return StateCollectingAddress }
func (CollectingIssue) State() State   { return StateCollectingIssue }
func (OfferingWindows) State() State   { return StateOfferingWindows }
func (Completed) State() State         { return StateCompleted }
func (Transferred) State() State       { return StateTransferred }

// Collected is a flat read-only view of the session data.
type Collected struct {
	Name          string            `json:"name,omitempty"`
	Address       string            `json:"address,omitempty"`
	Issue         booking.IssueType `json:"issue,omitempty"`
	Date          string            `json:"date,omitempty"`
	Window        string            `json:"window,omitempty"`
	AppointmentID string            `json:"appointment_id,omitempty"`
}

// Session is the transient state of one phone call.
type Session struct {
	CompanyID string
	CallID    string
	Phone     string
	Stage     Stage

	// Retries counts consecutive unrecognized inputs in the current state.
	Retries int

	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

func NewSession(companyID, callID, phone string, now time.Time, ttl time.Duration) Session {
	return Session{
		CompanyID: companyID,
		CallID:    callID,
		Phone:     phone,
		Stage:     Greeting{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s Session) State() State {
	if s.Stage == nil {
		return StateGreeting
	}
	return s.Stage.State()
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s Session) Collected() Collected {
	switch st := s.Stage.(type) {
	case CollectingAddress:
		return Collected{Name: st.Name}
	case CollectingIssue:
		return Collected{Name: st.Name, Address: st.Address}
	case OfferingWindows:
		return Collected{Name: st.Name, Address: st.Address, Issue: st.Issue, Date: st.Date}
	case Completed:
		return Collected{Name: st.Name, Address: st.Address, Issue: st.Issue, Date: st.Date, Window: st.Window, AppointmentID: st.AppointmentID}
	case Transferred:
		return st.Partial
	default:
		return Collected{}
	}
}

type sessionJSON struct {
	CompanyID string          `json:"company_id"`
	CallID    string          `json:"call_id"`
	Phone     string          `json:"phone"`
	State     State           `json:"state"`
	Stage     json.RawMessage `json:"stage"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	stage := s.Stage
	if stage == nil {
		stage = Greeting{}
	}
	raw, err := json.Marshal(stage)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sessionJSON{
		CompanyID: s.CompanyID,
		CallID:    s.CallID,
		Phone:     s.Phone,
		State:     stage.State(),
		Stage:     raw,
		Retries:   s.Retries,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		ExpiresAt: s.ExpiresAt,
	})
}

func (s *Session) UnmarshalJSON(b []byte) error {
	var env sessionJSON
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	stage, err := decodeStage(env.State, env.Stage)
	if err != nil {
		return err
	}
	*s = Session{
		CompanyID: env.CompanyID,
		CallID:    env.CallID,
		Phone:     env.Phone,
		Stage:     stage,
		Retries:   env.Retries,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
		ExpiresAt: env.ExpiresAt,
	}
	return nil
}

func decodeStage(state State, raw json.RawMessage) (Stage, error) {
	switch state {
	case StateGreeting:
		return Greeting{}, nil
	case StateCollectingName:
		return CollectingName{}, nil
	case StateCollectingAddress:
		var v CollectingAddress
		err := unmarshalStage(raw, &v)
		return v, err
	case StateCollectingIssue:
		var v CollectingIssue
		err := unmarshalStage(raw, &v)
		return v, err
	case StateOfferingWindows:
		var v OfferingWindows
		err := unmarshalStage(raw, &v)
		return v, err
	case StateCompleted:
		var v Completed
		err := unmarshalStage(raw, &v)
		return v, err
	case StateTransferred:
		var v Transferred
		err := unmarshalStage(raw, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown session state %q", state)
	}
}

func unmarshalStage(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
