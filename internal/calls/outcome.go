package calls

import "hvac-backoffice/internal/ivr"

// DeriveOutcome classifies a finished call. Rules apply in order, first match wins:
//  1. the session completed with an appointment
//  2. the caller hung up while still giving details
//  3. the provider reported a normal completion
//  4. anything else
func DeriveOutcome(state ivr.State, appointmentID, terminalStatus string) Outcome {
	if state == ivr.StateCompleted && appointmentID != "" {
		return OutcomeAppointmentCreated
	}
	if state.Collecting() {
		return OutcomeCustomerHangup
	}
	if terminalStatus == "completed" {
		return OutcomeInformationProvided
	}
	return OutcomeTechnicalIssue
}
