package telephony

import (
	"context"
	"time"
)

// Provider defines the provider-agnostic outbound surface used by business logic.
//
// Rules:
// - No provider calls outside telephony adapters.
// - Keep request/response types provider-agnostic.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	// SendSMS delivers body to the E.164 number and returns the provider message id.
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// VoiceHandler drives one call turn at a time. Implemented by the voice orchestrator.
type VoiceHandler interface {
	HandleTurn(ctx context.Context, req VoiceTurnRequest) (VoiceReply, error)
	HandleStatus(ctx context.Context, req CallStatusRequest) error
}

// VoiceTurnRequest is one inbound voice webhook: the first ring or a gathered reply.
type VoiceTurnRequest struct {
	CompanyID string `json:"company_id"`

	// ProviderCallID is the provider's unique identifier for this call.
	ProviderCallID string `json:"provider_call_id"`

	// From and To are E.164 where possible.
	From string `json:"from"`
	To   string `json:"to"`

	CallStatus string `json:"call_status"`

	// SpeechResult and Digits carry the caller's reply, if any.
	SpeechResult string  `json:"speech_result,omitempty"`
	Digits       string  `json:"digits,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`

	// OccurredAt is the receive time.
	OccurredAt time.Time `json:"occurred_at"`

	// RawPayload is optional for debugging/audit; stored as a JSON string.
	RawPayload string `json:"raw_payload,omitempty"`
}

// CallStatusRequest is a provider call status callback.
type CallStatusRequest struct {
	CompanyID      string    `json:"company_id"`
	ProviderCallID string    `json:"provider_call_id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	CallStatus     string    `json:"call_status"`
	Duration       int       `json:"duration_seconds"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// VoiceReply is what the caller hears next and what happens after it.
// At most one of Gather, Dial and Hangup applies.
type VoiceReply struct {
	Say string `json:"say,omitempty"`

	// Gather listens for speech or a keypress after Say.
	Gather bool `json:"gather,omitempty"`

	// Dial bridges the caller to a number or SIP URI after Say.
	Dial string `json:"dial,omitempty"`

	Hangup bool `json:"hangup,omitempty"`
}
