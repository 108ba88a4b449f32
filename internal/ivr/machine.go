package ivr

import (
	"context"
	"errors"
	"strings"
	"time"

	"hvac-backoffice/internal/availability"
	"hvac-backoffice/internal/booking"
	"hvac-backoffice/pkg/logger"
)

type EventKind string

const (
	EventUtterance  EventKind = "utterance"
	EventDigits     EventKind = "digits"
	EventCallStatus EventKind = "call_status"
)

// Event is one input from the telephony provider. Text is already transcribed.
type Event struct {
	Kind       EventKind
	Text       string
	Digits     string
	CallStatus string
	Confidence float64
}

// Input returns what the caller said or keyed, for the transcript.
func (e Event) Input() string {
	switch e.Kind {
	case EventUtterance:
		return strings.TrimSpace(e.Text)
	case EventDigits:
		return strings.TrimSpace(e.Digits)
	default:
		return ""
	}
}

// Response is what the caller hears next and how the call continues.
type Response struct {
	Prompt          string
	ExpectMoreInput bool
	Terminate       bool
	// Transfer asks the caller of Step to connect a human.
	Transfer bool
}

// IsTerminalCallStatus reports provider statuses that end a call.
func IsTerminalCallStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "busy", "failed", "no-answer", "canceled":
		return true
	default:
		return false
	}
}

// Calendar is the availability read side used to build offers.
type Calendar interface {
	Today() string
	GetAvailability(ctx context.Context, companyID, date string) ([]availability.WindowAvailability, error)
}

type Booker interface {
	Book(ctx context.Context, req booking.Request) (booking.Appointment, error)
}

// Machine computes the next session state for one event. It holds no per-call state.
type Machine struct {
	Calendar    Calendar
	Booker      Booker
	CompanyName string
	MaxRetries  int
	// Now is injectable for deterministic tests.
	Now func() time.Time
}

func (m *Machine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Machine) maxRetries() int {
	if m.MaxRetries <= 0 {
		return 3
	}
	return m.MaxRetries
}

// Step advances s by one event. It always returns a response the caller can hear.
func (m *Machine) Step(ctx context.Context, s Session, ev Event) (Session, Response) {
	if ev.Kind == EventCallStatus {
		if IsTerminalCallStatus(ev.CallStatus) {
			return s, Response{Terminate: true}
		}
		// Non-terminal status updates (ringing, in-progress) do not move the flow.
		return s, Response{ExpectMoreInput: !s.State().Terminal()}
	}

	now := m.now()
	if s.Expired(now) {
		return s, Response{Prompt: promptExpired, Terminate: true}
	}

	next, resp := m.step(ctx, s, ev)
	next.UpdatedAt = now
	return next, resp
}

func (m *Machine) step(ctx context.Context, s Session, ev Event) (Session, Response) {
	input := ev.Input()

	if s.State().Collecting() || s.State() == StateOfferingWindows {
		if (ev.Kind == EventDigits && input == "0") || (ev.Kind == EventUtterance && WantsHuman(input)) {
			return m.transfer(s, "caller_request", promptTransfer)
		}
	}

	switch st := s.Stage.(type) {
	case nil, Greeting:
		s.Stage = CollectingName{}
		s.Retries = 0
		return s, listen(greeting(m.CompanyName))

	case CollectingName:
		if ev.Kind != EventUtterance || input == "" {
			return m.retry(s, promptNameRetry)
		}
		s.Stage = CollectingAddress{Name: input}
		s.Retries = 0
		return s, listen(addressPrompt(input))

	case CollectingAddress:
		if ev.Kind != EventUtterance || input == "" {
			return m.retry(s, promptAddressRetry)
		}
		s.Stage = CollectingIssue{Name: st.Name, Address: input}
		s.Retries = 0
		return s, listen(promptIssue)

	case CollectingIssue:
		issue, ok := matchIssueEvent(ev)
		if !ok {
			return m.retry(s, promptIssueRetry)
		}
		return m.offerWindows(ctx, s, st.Name, st.Address, issue, "")

	case OfferingWindows:
		return m.selectWindow(ctx, s, st, ev)

	case Completed:
		return s, Response{Prompt: promptGoodbye, Terminate: true}

	case Transferred:
		return s, Response{Prompt: promptGoodbye, Terminate: true}
	}

	logger.From(ctx).Error("ivr: unknown session stage", "call_id", s.CallID, "state", s.State())
	return s, Response{Prompt: promptApology, Terminate: true}
}

func (m *Machine) offerWindows(ctx context.Context, s Session, name, address string, issue booking.IssueType, preface string) (Session, Response) {
	date := m.Calendar.Today()
	windows, err := m.Calendar.GetAvailability(ctx, s.CompanyID, date)
	if err != nil {
		logger.From(ctx).Error("ivr: availability lookup failed", "call_id", s.CallID, "date", date, "err", err)
		return m.transferWithData(s, "availability_error", promptApologyTransfer, Collected{Name: name, Address: address, Issue: issue, Date: date})
	}

	var offers []Offer
	for i, w := range windows {
		if w.Available > 0 {
			offers = append(offers, Offer{Position: i, Name: w.Name, Label: w.Label})
		}
	}
	if len(offers) == 0 {
		return m.transferWithData(s, "no_capacity", preface+promptFullyBooked, Collected{Name: name, Address: address, Issue: issue, Date: date})
	}

	s.Stage = OfferingWindows{Name: name, Address: address, Issue: issue, Date: date, Offered: offers}
	s.Retries = 0
	return s, listen(preface + offerPrompt(issue, offers))
}

func (m *Machine) selectWindow(ctx context.Context, s Session, st OfferingWindows, ev Event) (Session, Response) {
	pos, ok := matchWindowEvent(ev)
	if !ok {
		return m.retry(s, "Sorry, I didn't catch which window you'd like. "+offerPrompt(st.Issue, st.Offered))
	}
	var chosen *Offer
	for i := range st.Offered {
		if st.Offered[i].Position == pos {
			chosen = &st.Offered[i]
			break
		}
	}
	if chosen == nil {
		return m.retry(s, "That window isn't available today. "+offerPrompt(st.Issue, st.Offered))
	}

	appt, err := m.Booker.Book(ctx, booking.Request{
		CompanyID:   s.CompanyID,
		CallID:      s.CallID,
		Phone:       s.Phone,
		Name:        st.Name,
		Address:     st.Address,
		Issue:       st.Issue,
		Date:        st.Date,
		Window:      chosen.Name,
		WindowLabel: chosen.Label,
	})
	if err != nil {
		if errors.Is(err, booking.ErrSlotUnavailable) {
			// Someone else took the slot between the offer and the choice; re-offer fresh data.
			return m.offerWindows(ctx, s, st.Name, st.Address, st.Issue, promptSlotTaken)
		}
		logger.From(ctx).Error("ivr: booking failed", "call_id", s.CallID, "window", chosen.Name, "err", err)
		return m.retry(s, promptApology+" "+offerPrompt(st.Issue, st.Offered))
	}

	s.Stage = Completed{
		Name:          st.Name,
		Address:       st.Address,
		Issue:         st.Issue,
		Date:          st.Date,
		Window:        chosen.Name,
		AppointmentID: appt.ID,
	}
	s.Retries = 0
	return s, Response{Prompt: confirmationPrompt(st.Name, chosen.Label), Terminate: true}
}

// retry keeps the state and re-prompts, or transfers once the retry budget is spent.
func (m *Machine) retry(s Session, prompt string) (Session, Response) {
	s.Retries++
	if s.Retries >= m.maxRetries() {
		return m.transfer(s, "retries_exhausted", promptRetriesExhausted)
	}
	return s, listen(prompt)
}

func (m *Machine) transfer(s Session, reason, prompt string) (Session, Response) {
	return m.transferWithData(s, reason, prompt, s.Collected())
}

func (m *Machine) transferWithData(s Session, reason, prompt string, partial Collected) (Session, Response) {
	s.Stage = Transferred{Reason: reason, From: s.State(), Partial: partial}
	s.Retries = 0
	return s, Response{Prompt: prompt, Transfer: true}
}

func listen(prompt string) Response {
	return Response{Prompt: prompt, ExpectMoreInput: true}
}

func matchIssueEvent(ev Event) (booking.IssueType, bool) {
	switch ev.Kind {
	case EventDigits:
		d := strings.TrimSpace(ev.Digits)
		if len(d) == 1 && d[0] >= '1' && int(d[0]-'1') < len(booking.IssuePriority) {
			return booking.IssuePriority[d[0]-'1'], true
		}
		return "", false
	case EventUtterance:
		return MatchIssue(ev.Text)
	default:
		return "", false
	}
}

func matchWindowEvent(ev Event) (int, bool) {
	switch ev.Kind {
	case EventDigits:
		d := strings.TrimSpace(ev.Digits)
		if len(d) == 1 && d[0] >= '1' && d[0] <= '9' {
			return int(d[0] - '1'), true
		}
		return 0, false
	case EventUtterance:
		return MatchWindowPosition(ev.Text)
	default:
		return 0, false
	}
}
