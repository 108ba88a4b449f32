package ivr

import (
	"fmt"
	"strings"

	"hvac-backoffice/internal/booking"
)

const (
	promptNameRetry        = "Sorry, I didn't catch your name. Could you say your first and last name?"
	promptAddressRetry     = "Sorry, I didn't get that. What is the street address where you need service?"
	promptIssue            = "What's going on with your system? You can say no heat, no cooling, maintenance, or plumbing. Or press 1 for no heat, 2 for no cooling, 3 for maintenance, or 4 for plumbing."
	promptIssueRetry       = "Sorry, I didn't understand. Is this about no heat, no cooling, maintenance, or plumbing? You can also press 1 through 4."
	promptFullyBooked      = "We're fully booked for today. Let me connect you with our dispatcher to find another time."
	promptSlotTaken        = "Sorry, that window was just booked. "
	promptTransfer         = "Let me connect you with a member of our team."
	promptRetriesExhausted = "I'm having trouble understanding. Let me connect you with a member of our team."
	promptApology          = "Sorry, something went wrong on our end."
	promptApologyTransfer  = "Sorry, something went wrong on our end. Let me connect you with a member of our team."
	promptExpired          = "Sorry, this call has timed out. Please call us back and we'll get you scheduled. Goodbye."
	promptGoodbye          = "Thanks for calling. Goodbye."
)

func greeting(company string) string {
	if company == "" {
		company = "our HVAC team"
	}
	return fmt.Sprintf("Thanks for calling %s. I can get a technician scheduled for you. To start, what is your name?", company)
}

func addressPrompt(name string) string {
	return fmt.Sprintf("Thanks, %s. What is the address where you need service?", firstWord(name))
}

func offerPrompt(issue booking.IssueType, offers []Offer) string {
	labels := make([]string, 0, len(offers))
	keys := make([]string, 0, len(offers))
	for _, o := range offers {
		labels = append(labels, o.Label)
		keys = append(keys, fmt.Sprintf("press %d for %s", o.Position+1, o.Label))
	}
	return fmt.Sprintf("For %s, we have openings today in the %s window. Which works best? Or %s.",
		issue.Spoken(), joinOr(labels), strings.Join(keys, ", "))
}

func confirmationPrompt(name, label string) string {
	return fmt.Sprintf("You're all set, %s. A technician will arrive today in the %s window. We'll text you a confirmation. Goodbye.", firstWord(name), label)
}

func joinOr(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " or " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", or " + items[len(items)-1]
	}
}

func firstWord(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return "there"
	}
	return f[0]
}
