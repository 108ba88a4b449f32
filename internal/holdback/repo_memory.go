package holdback

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu       sync.Mutex
	payments map[string]Payment
	byJob    map[string]string
	history  map[string][]HistoryEntry
	locks    map[string]*sync.Mutex
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		payments: map[string]Payment{},
		byJob:    map[string]string{},
		history:  map[string][]HistoryEntry{},
		locks:    map[string]*sync.Mutex{},
	}
}

func (r *MemoryRepo) Create(_ context.Context, p Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	jk := p.CompanyID + "|" + p.JobID
	if _, ok := r.byJob[jk]; ok {
		return ErrAlreadyExists
	}
	if _, ok := r.payments[p.ID]; ok {
		return ErrAlreadyExists
	}
	r.payments[p.ID] = clonePayment(p)
	r.byJob[jk] = p.ID
	r.locks[p.ID] = &sync.Mutex{}
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, companyID, paymentID string) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(companyID, paymentID)
}

func (r *MemoryRepo) GetByJob(_ context.Context, companyID, jobID string) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byJob[companyID+"|"+jobID]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return r.getLocked(companyID, id)
}

func (r *MemoryRepo) History(_ context.Context, companyID, paymentID string) ([]HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.getLocked(companyID, paymentID); err != nil {
		return nil, err
	}
	return append([]HistoryEntry(nil), r.history[paymentID]...), nil
}

func (r *MemoryRepo) Update(_ context.Context, companyID, paymentID string, fn func(Payment) (Mutation, error)) (Payment, error) {
	r.mu.Lock()
	cur, err := r.getLocked(companyID, paymentID)
	lock := r.locks[paymentID]
	r.mu.Unlock()
	if err != nil {
		return Payment{}, err
	}

	lock.Lock()
	defer lock.Unlock()

	// Re-read under the payment lock; a previous holder may have changed it.
	r.mu.Lock()
	cur, err = r.getLocked(companyID, paymentID)
	r.mu.Unlock()
	if err != nil {
		return Payment{}, err
	}

	m, err := fn(cur)
	if err != nil {
		return Payment{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m.Entry != nil && !r.hasKeyLocked(paymentID, m.Entry.IdempotencyKey) {
		r.history[paymentID] = append(r.history[paymentID], *m.Entry)
	}
	r.payments[paymentID] = clonePayment(m.Payment)
	return clonePayment(m.Payment), nil
}

func (r *MemoryRepo) getLocked(companyID, paymentID string) (Payment, error) {
	p, ok := r.payments[paymentID]
	if !ok || p.CompanyID != companyID {
		return Payment{}, ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *MemoryRepo) hasKeyLocked(paymentID, key string) bool {
	for _, e := range r.history[paymentID] {
		if e.IdempotencyKey == key {
			return true
		}
	}
	return false
}

func clonePayment(p Payment) Payment {
	p.BlockedReasons = append([]string(nil), p.BlockedReasons...)
	if p.ReleasedAt != nil {
		t := *p.ReleasedAt
		p.ReleasedAt = &t
	}
	return p
}
