package qa

import "context"

// Repository stores the three closure inputs per job. Getters return ErrNotFound
// when nothing has been recorded yet.
type Repository interface {
	GetGate(ctx context.Context, companyID, jobID string) (Gate, error)
	PutGate(ctx context.Context, g Gate) error
	GetWarranty(ctx context.Context, companyID, jobID string) (Warranty, error)
	PutWarranty(ctx context.Context, w Warranty) error
	GetInspection(ctx context.Context, companyID, jobID string) (Inspection, error)
	PutInspection(ctx context.Context, in Inspection) error
}
