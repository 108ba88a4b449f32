package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"hvac-backoffice/internal/calls"
	"hvac-backoffice/internal/holdback"
)

// MemoryRepo is a simple in-memory reporting repository for tests and local runs.
// It enforces company isolation on reads.
type MemoryRepo struct {
	mu sync.Mutex

	Calls    []calls.Record
	Payments []holdback.Payment
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCalls(ctx context.Context, companyID string, from, to time.Time) ([]calls.Record, error) {
	if companyID == "" {
		return nil, errors.New("company_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calls.Record, 0)
	for _, c := range r.Calls {
		if c.CompanyID != companyID || !inRange(c.StartedAt, from, to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) ListPayments(ctx context.Context, companyID string, from, to time.Time) ([]holdback.Payment, error) {
	if companyID == "" {
		return nil, errors.New("company_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]holdback.Payment, 0)
	for _, p := range r.Payments {
		if p.CompanyID != companyID || !inRange(p.CreatedAt, from, to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// inRange is half-open: [from, to).
func inRange(at, from, to time.Time) bool {
	return !at.Before(from) && at.Before(to)
}
