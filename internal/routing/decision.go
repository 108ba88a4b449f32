package routing

// Decision is the provider-agnostic output of the transfer router.
//
// It must contain only what the voice layer needs to hand the caller off
// (e.g., a TwiML <Dial>). No provider-specific fields belong here.
type Decision struct {
	CompanyID string `json:"company_id"`

	Action    Action `json:"action"`
	ConnectTo string `json:"connect_to,omitempty"`

	// Reason is optional and intended for internal logs.
	Reason string `json:"reason,omitempty"`
}

type Action string

const (
	// ActionDial bridges the caller to ConnectTo.
	ActionDial Action = "dial"
	// ActionCallback tells the caller someone will call back, then hangs up.
	ActionCallback Action = "callback"
)
