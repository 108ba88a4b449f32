package qa

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu          sync.Mutex
	gates       map[string]Gate
	warranties  map[string]Warranty
	inspections map[string]Inspection
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		gates:       map[string]Gate{},
		warranties:  map[string]Warranty{},
		inspections: map[string]Inspection{},
	}
}

func key(companyID, jobID string) string { return companyID + "|" + jobID }

func (r *MemoryRepo) GetGate(_ context.Context, companyID, jobID string) (Gate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gates[key(companyID, jobID)]
	if !ok {
		return Gate{}, ErrNotFound
	}
	g.Photos = append([]Photo(nil), g.Photos...)
	return g, nil
}

func (r *MemoryRepo) PutGate(_ context.Context, g Gate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.Photos = append([]Photo(nil), g.Photos...)
	r.gates[key(g.CompanyID, g.JobID)] = g
	return nil
}

func (r *MemoryRepo) GetWarranty(_ context.Context, companyID, jobID string) (Warranty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.warranties[key(companyID, jobID)]
	if !ok {
		return Warranty{}, ErrNotFound
	}
	return w, nil
}

func (r *MemoryRepo) PutWarranty(_ context.Context, w Warranty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warranties[key(w.CompanyID, w.JobID)] = w
	return nil
}

func (r *MemoryRepo) GetInspection(_ context.Context, companyID, jobID string) (Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.inspections[key(companyID, jobID)]
	if !ok {
		return Inspection{}, ErrNotFound
	}
	return in, nil
}

func (r *MemoryRepo) PutInspection(_ context.Context, in Inspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inspections[key(in.CompanyID, in.JobID)] = in
	return nil
}
