package auth

import (
	"errors"
	"testing"
	"time"

	"hvac-backoffice/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

var dispatcher = Identity{UserID: "user-1", CompanyID: "co-1", Role: "dispatcher"}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()

	pair, err := m.IssuePair(now, dispatcher)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token strings")
	}
	if !pair.AccessExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected access expiry %s", pair.AccessExpiresAt)
	}

	claims, err := m.Verify(pair.AccessToken, TokenAccess, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Identity() != dispatcher {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()
	p, err := m.IssuePair(now, dispatcher)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.RefreshToken, TokenAccess, now); !errors.Is(err, ErrTokenType) {
		t.Fatalf("expected ErrTokenType, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()
	p, _ := m.IssuePair(now, dispatcher)

	// Within the clock skew allowance.
	if _, err := m.Verify(p.AccessToken, TokenAccess, now.Add(15*time.Minute+10*time.Second)); err != nil {
		t.Fatalf("expected token inside leeway to verify, got %v", err)
	}
	if _, err := m.Verify(p.AccessToken, TokenAccess, now.Add(16*time.Minute)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsForeignIssuerAndAudience(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	m := newTestManager(t)

	for name, cfg := range map[string]config.AuthConfig{
		"issuer":   {JWTSecret: "secret", JWTIssuer: "other", JWTAudience: "aud", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour},
		"audience": {JWTSecret: "secret", JWTIssuer: "issuer", JWTAudience: "other", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour},
		"secret":   {JWTSecret: "not-it", JWTIssuer: "issuer", JWTAudience: "aud", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour},
	} {
		foreign, err := NewManager(cfg)
		if err != nil {
			t.Fatalf("%s: manager: %v", name, err)
		}
		p, err := foreign.IssuePair(now, dispatcher)
		if err != nil {
			t.Fatalf("%s: issue: %v", name, err)
		}
		if _, err := m.Verify(p.AccessToken, TokenAccess, now); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()
	p, _ := m.IssuePair(now, dispatcher)

	later := now.Add(time.Hour)
	next, err := m.Refresh(later, p.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.AccessToken == p.AccessToken || next.RefreshToken == p.RefreshToken {
		t.Fatalf("expected fresh tokens")
	}
	claims, err := m.Verify(next.AccessToken, TokenAccess, later)
	if err != nil {
		t.Fatalf("verify rotated: %v", err)
	}
	if claims.Identity() != dispatcher {
		t.Fatalf("identity changed across refresh: %+v", claims.Identity())
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()
	p, _ := m.IssuePair(now, dispatcher)
	if _, err := m.Refresh(now, p.AccessToken); !errors.Is(err, ErrTokenType) {
		t.Fatalf("expected ErrTokenType, got %v", err)
	}
}

func TestIssuePairRequiresFullIdentity(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.IssuePair(time.Now(), Identity{UserID: "u", Role: "owner"}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewManagerValidatesConfig(t *testing.T) {
	if _, err := NewManager(config.AuthConfig{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if _, err := NewManager(config.AuthConfig{JWTSecret: "s", AccessTokenTTL: time.Hour, RefreshTokenTTL: time.Minute}); err == nil {
		t.Fatalf("expected ttl ordering error")
	}
}
