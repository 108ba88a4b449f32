package booking

import "context"

type CustomerRepository interface {
	// GetOrCreateByPhone returns the existing customer for (company, phone) or inserts c.
	// created reports whether c was inserted.
	GetOrCreateByPhone(ctx context.Context, c Customer) (out Customer, created bool, err error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, a Appointment) error
	Get(ctx context.Context, companyID, id string) (Appointment, error)
}
