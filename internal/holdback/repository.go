package holdback

import "context"

// Mutation is computed while the payment is locked. Entry, when set, is
// appended unless an entry with the same idempotency key already exists.
type Mutation struct {
	Payment Payment
	Entry   *HistoryEntry
}

type Repository interface {
	Create(ctx context.Context, p Payment) error
	Get(ctx context.Context, companyID, paymentID string) (Payment, error)
	GetByJob(ctx context.Context, companyID, jobID string) (Payment, error)
	History(ctx context.Context, companyID, paymentID string) ([]HistoryEntry, error)
	// Update serializes writers per payment. fn sees the current row and returns
	// the mutation to store; returning an error leaves the payment untouched.
	Update(ctx context.Context, companyID, paymentID string, fn func(Payment) (Mutation, error)) (Payment, error)
}
