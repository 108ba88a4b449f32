package auth

import (
	"context"
	"errors"
)

// ErrNoIdentity means the request never passed RequireAccessToken.
var ErrNoIdentity = errors.New("auth: no identity in context")

// Identity is the caller resolved from a verified access token.
type Identity struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

func (id Identity) complete() bool {
	return id.UserID != "" && id.CompanyID != "" && id.Role != ""
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// CompanyID is the tenant every read and write must be scoped to.
func CompanyID(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok || id.CompanyID == "" {
		return "", ErrNoIdentity
	}
	return id.CompanyID, nil
}

func UserID(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok || id.UserID == "" {
		return "", ErrNoIdentity
	}
	return id.UserID, nil
}

func Role(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok || id.Role == "" {
		return "", ErrNoIdentity
	}
	return id.Role, nil
}
