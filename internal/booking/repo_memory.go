package booking

import (
	"context"
	"sync"
)

// MemoryRepo implements both repositories for tests and local runs.
type MemoryRepo struct {
	mu           sync.Mutex
	customers    map[string]Customer
	appointments map[string]Appointment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		customers:    map[string]Customer{},
		appointments: map[string]Appointment{},
	}
}

func (r *MemoryRepo) GetOrCreateByPhone(_ context.Context, c Customer) (Customer, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := c.CompanyID + "|" + c.Phone
	if existing, ok := r.customers[k]; ok {
		return existing, false, nil
	}
	r.customers[k] = c
	return c, true, nil
}

func (r *MemoryRepo) Create(_ context.Context, a Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appointments[a.CompanyID+"|"+a.ID] = a
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, companyID, id string) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[companyID+"|"+id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) Appointments() []Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Appointment, 0, len(r.appointments))
	for _, a := range r.appointments {
		out = append(out, a)
	}
	return out
}

func (r *MemoryRepo) Customers() []Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out
}
