package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hvac-backoffice/internal/callsession"
	"hvac-backoffice/internal/calls"
	"hvac-backoffice/internal/ivr"
	"hvac-backoffice/internal/routing"
	"hvac-backoffice/internal/telephony"
	"hvac-backoffice/pkg/logger"
)

const (
	promptCallback = "Everyone on our team is busy right now. We'll call you back at this number shortly. Goodbye."
	promptEnded    = "Thanks for calling. Goodbye."

	// abandonedStatus finalizes sessions that timed out mid-flow.
	abandonedStatus = "no-answer"
)

// CallRecords is the call record lifecycle as the orchestrator drives it.
type CallRecords interface {
	OpenOrGet(ctx context.Context, companyID, callID, from, to string) (calls.Record, error)
	AppendTurn(ctx context.Context, companyID, callID string, speaker calls.Speaker, text string, confidence float64) error
	Finalize(ctx context.Context, companyID, callID, terminalStatus string, snap ivr.Session) (calls.Outcome, error)
	MarkTransferred(ctx context.Context, companyID, callID, target string) error
}

// Stepper advances a call session by one event.
type Stepper interface {
	Step(ctx context.Context, s ivr.Session, ev ivr.Event) (ivr.Session, ivr.Response)
}

// Orchestrator runs one webhook turn end to end:
// record, session, state machine, transcript, transfer and finalization.
// It implements telephony.VoiceHandler.
type Orchestrator struct {
	calls    CallRecords
	sessions callsession.Store
	machine  Stepper
	router   routing.TransferRouter
	ttl      time.Duration

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewOrchestrator(records CallRecords, sessions callsession.Store, machine Stepper, router routing.TransferRouter, ttl time.Duration) *Orchestrator {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Orchestrator{calls: records, sessions: sessions, machine: machine, router: router, ttl: ttl, clock: time.Now}
}

var _ telephony.VoiceHandler = (*Orchestrator)(nil)

// HandleTurn processes one inbound voice webhook and returns what the caller hears.
func (o *Orchestrator) HandleTurn(ctx context.Context, req telephony.VoiceTurnRequest) (telephony.VoiceReply, error) {
	if req.CompanyID == "" || req.ProviderCallID == "" || req.From == "" {
		return telephony.VoiceReply{}, calls.ErrInvalidArgument
	}
	log := logger.From(ctx).With("company_id", req.CompanyID, "call_id", req.ProviderCallID)

	if ivr.IsTerminalCallStatus(req.CallStatus) {
		return telephony.VoiceReply{Hangup: true}, o.HandleStatus(ctx, telephony.CallStatusRequest{
			CompanyID:      req.CompanyID,
			ProviderCallID: req.ProviderCallID,
			From:           req.From,
			To:             req.To,
			CallStatus:     req.CallStatus,
			OccurredAt:     req.OccurredAt,
		})
	}

	rec, err := o.calls.OpenOrGet(ctx, req.CompanyID, req.ProviderCallID, req.From, req.To)
	if err != nil {
		return telephony.VoiceReply{}, fmt.Errorf("open call record: %w", err)
	}
	if rec.Finalized() {
		return telephony.VoiceReply{Say: promptEnded, Hangup: true}, nil
	}

	now := o.clock().UTC()
	sess, err := o.loadSession(ctx, req, now)
	if err != nil {
		return telephony.VoiceReply{}, err
	}

	ev := eventFrom(req)
	if in := ev.Input(); in != "" {
		if err := o.calls.AppendTurn(ctx, req.CompanyID, req.ProviderCallID, calls.SpeakerCustomer, in, ev.Confidence); err != nil {
			return telephony.VoiceReply{}, fmt.Errorf("append customer turn: %w", err)
		}
	}

	expired := sess.Expired(now)
	next, resp := o.machine.Step(ctx, sess, ev)

	if expired {
		// Stale data is never resumed: tear the session down now.
		log.Info("voice session expired", "state", sess.State())
		if err := o.appendAITurn(ctx, req, resp.Prompt); err != nil {
			return telephony.VoiceReply{}, err
		}
		o.teardown(ctx, sess, abandonedStatus)
		return telephony.VoiceReply{Say: resp.Prompt, Hangup: true}, nil
	}

	reply := telephony.VoiceReply{Say: resp.Prompt}
	switch {
	case resp.Transfer:
		reply = o.transfer(ctx, req, next, resp)
	case resp.ExpectMoreInput:
		reply.Gather = true
	default:
		reply.Hangup = true
	}
	// One AI entry per turn, holding exactly what the caller hears.
	if err := o.appendAITurn(ctx, req, reply.Say); err != nil {
		return telephony.VoiceReply{}, err
	}

	// Terminal sessions are kept until the status callback so finalization sees them.
	next.ExpiresAt = now.Add(o.ttl)
	if err := o.sessions.Put(ctx, next); err != nil {
		return telephony.VoiceReply{}, fmt.Errorf("save session: %w", err)
	}
	if next.State() != sess.State() {
		log.Debug("voice state advanced", "from", sess.State(), "to", next.State())
	}
	return reply, nil
}

// HandleStatus finalizes the call on a terminal provider status and drops the session.
func (o *Orchestrator) HandleStatus(ctx context.Context, req telephony.CallStatusRequest) error {
	if req.CompanyID == "" || req.ProviderCallID == "" {
		return calls.ErrInvalidArgument
	}
	if !ivr.IsTerminalCallStatus(req.CallStatus) {
		return nil
	}
	status := strings.ToLower(strings.TrimSpace(req.CallStatus))

	if _, err := o.calls.OpenOrGet(ctx, req.CompanyID, req.ProviderCallID, req.From, req.To); err != nil {
		return fmt.Errorf("open call record: %w", err)
	}

	sess, err := o.sessions.Get(ctx, req.From, req.ProviderCallID)
	switch {
	case errors.Is(err, callsession.ErrNotFound), errors.Is(err, callsession.ErrInvalidArgument):
		// The caller hung up before the first turn was stored.
		sess = ivr.NewSession(req.CompanyID, req.ProviderCallID, req.From, o.clock().UTC(), o.ttl)
	case err != nil:
		return fmt.Errorf("load session: %w", err)
	}

	if _, err := o.calls.Finalize(ctx, req.CompanyID, req.ProviderCallID, status, sess); err != nil {
		return fmt.Errorf("finalize call: %w", err)
	}
	if err := o.sessions.Delete(ctx, req.From, req.ProviderCallID); err != nil && !errors.Is(err, callsession.ErrInvalidArgument) {
		logger.From(ctx).Warn("session delete failed", "call_id", req.ProviderCallID, "err", err)
	}
	return nil
}

func (o *Orchestrator) loadSession(ctx context.Context, req telephony.VoiceTurnRequest, now time.Time) (ivr.Session, error) {
	sess, err := o.sessions.Get(ctx, req.From, req.ProviderCallID)
	if errors.Is(err, callsession.ErrNotFound) {
		return ivr.NewSession(req.CompanyID, req.ProviderCallID, req.From, now, o.ttl), nil
	}
	if err != nil {
		return ivr.Session{}, fmt.Errorf("load session: %w", err)
	}
	if sess.CompanyID != req.CompanyID {
		return ivr.Session{}, fmt.Errorf("session %s belongs to another company", req.ProviderCallID)
	}
	return sess, nil
}

func (o *Orchestrator) transfer(ctx context.Context, req telephony.VoiceTurnRequest, s ivr.Session, resp ivr.Response) telephony.VoiceReply {
	log := logger.From(ctx).With("company_id", req.CompanyID, "call_id", req.ProviderCallID)

	reason := ""
	if t, ok := s.Stage.(ivr.Transferred); ok {
		reason = t.Reason
	}

	var d routing.Decision
	var err error
	if o.router != nil {
		d, err = o.router.RouteTransfer(ctx, routing.TransferRequest{
			CompanyID: req.CompanyID,
			CallID:    req.ProviderCallID,
			From:      req.From,
			To:        req.To,
			Reason:    reason,
		})
	}
	if err != nil {
		log.Error("transfer routing failed", "err", err)
	}

	if err == nil && d.Action == routing.ActionDial && d.ConnectTo != "" {
		if err := o.calls.MarkTransferred(ctx, req.CompanyID, req.ProviderCallID, d.ConnectTo); err != nil {
			log.Warn("mark transferred failed", "err", err)
		}
		log.Info("call transferred", "reason", reason, "route_reason", d.Reason)
		return telephony.VoiceReply{Say: resp.Prompt, Dial: d.ConnectTo}
	}

	log.Info("transfer unavailable, callback promised", "reason", reason)
	return telephony.VoiceReply{Say: strings.TrimSpace(resp.Prompt + " " + promptCallback), Hangup: true}
}

func (o *Orchestrator) appendAITurn(ctx context.Context, req telephony.VoiceTurnRequest, text string) error {
	if text == "" {
		return nil
	}
	if err := o.calls.AppendTurn(ctx, req.CompanyID, req.ProviderCallID, calls.SpeakerAI, text, 0); err != nil {
		return fmt.Errorf("append ai turn: %w", err)
	}
	return nil
}

// teardown finalizes s with status and deletes it. Failures are logged; the sweeper retries.
func (o *Orchestrator) teardown(ctx context.Context, s ivr.Session, status string) {
	log := logger.From(ctx).With("company_id", s.CompanyID, "call_id", s.CallID)
	if _, err := o.calls.Finalize(ctx, s.CompanyID, s.CallID, status, s); err != nil && !calls.IsNotFound(err) {
		log.Warn("finalize on teardown failed", "err", err)
		return
	}
	if err := o.sessions.Delete(ctx, s.Phone, s.CallID); err != nil {
		log.Warn("session delete failed", "err", err)
	}
}

func eventFrom(req telephony.VoiceTurnRequest) ivr.Event {
	switch {
	case req.SpeechResult != "":
		return ivr.Event{Kind: ivr.EventUtterance, Text: req.SpeechResult, Confidence: req.Confidence}
	case req.Digits != "":
		return ivr.Event{Kind: ivr.EventDigits, Digits: req.Digits}
	default:
		// First ring or silence after a prompt.
		return ivr.Event{Kind: ivr.EventUtterance}
	}
}
