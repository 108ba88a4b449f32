package routing

import (
	"context"
	"encoding/json"
)

// OverrideAuditor is the slice of audit.Service the adapter needs.
type OverrideAuditor interface {
	LogOverride(ctx context.Context, companyID, actorUserID, actorRole, ip, callID, overrideID, connectTo, metadata string) error
}

// AuditAdapter bridges routing's override audit hook to the shared audit trail.
type AuditAdapter struct {
	Audit OverrideAuditor

	// Overrides fire inside a caller's transfer, so the actor is the system.
	ActorUserID string
	ActorRole   string
}

func (a AuditAdapter) LogOverrideApplied(ctx context.Context, e OverrideAuditEvent) error {
	if a.Audit == nil {
		return nil
	}
	meta := e.Metadata
	if meta == "" {
		b, err := json.Marshal(map[string]any{"from": e.From, "to": e.To, "expires_at": e.ExpiresAt.UTC()})
		if err != nil {
			return err
		}
		meta = string(b)
	}
	return a.Audit.LogOverride(ctx, e.CompanyID, a.ActorUserID, a.ActorRole, e.IPAddress, e.CallID, e.OverrideID, e.ConnectTo, meta)
}

// clientIPKey carries the webhook client IP through internal layers.
type clientIPKey struct{}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(clientIPKey{}).(string); ok {
		return s
	}
	return ""
}
