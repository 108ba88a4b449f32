package callsession

import (
	"context"
	"errors"
	"time"

	"hvac-backoffice/internal/ivr"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Store keeps one ivr.Session per (phone, call id). Sessions past ExpiresAt stay
// readable until they are deleted, so the sweeper can finalize them.
type Store interface {
	Get(ctx context.Context, phone, callID string) (ivr.Session, error)
	Put(ctx context.Context, s ivr.Session) error
	Delete(ctx context.Context, phone, callID string) error
	// Expired returns up to limit sessions whose ExpiresAt is at or before now.
	Expired(ctx context.Context, now time.Time, limit int) ([]ivr.Session, error)
}

func validateKey(phone, callID string) error {
	if phone == "" || callID == "" {
		return ErrInvalidArgument
	}
	return nil
}
