package availability

import "context"

// Ledger owns booked counts. Reserve is the only mutation path for Booked and must be
// atomic per (company, date, window).
type Ledger interface {
	// EnsureDay creates the day from tmpl if it does not exist yet. Existing days are untouched.
	EnsureDay(ctx context.Context, companyID, date string, tmpl []WindowTemplate) error
	// Reserve increments booked by one if capacity allows and returns the new booked count.
	Reserve(ctx context.Context, companyID, date, window string) (int, error)
	// GetDay returns ErrNotFound for days that were never initialized.
	GetDay(ctx context.Context, companyID, date string) (Day, error)
}
