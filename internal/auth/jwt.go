package auth

import (
	"errors"
	"fmt"
	"time"

	"hvac-backoffice/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenType    = errors.New("auth: unexpected token type")
)

// clockSkew tolerates drift between the issuing host and this one.
const clockSkew = 30 * time.Second

// Manager signs and verifies HS256 tokens for office staff.
type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth: JWT_SECRET is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return nil, fmt.Errorf("auth: refresh ttl (%s) must exceed a positive access ttl (%s)", cfg.RefreshTokenTTL, cfg.AccessTokenTTL)
	}
	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		clock:      time.Now,
	}, nil
}

type TokenPair struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

func (m *Manager) IssuePair(now time.Time, id Identity) (TokenPair, error) {
	if !id.complete() {
		return TokenPair{}, fmt.Errorf("%w: user, company and role are required", ErrInvalidToken)
	}
	access, err := m.sign(now, id, TokenAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(now, id, TokenRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, AccessExpiresAt: now.Add(m.accessTTL).UTC()}, nil
}

// Verify checks signature, algorithm, issued-at, expiry, issuer and audience in one
// parser pass, then the token type and identity claims.
func (m *Manager) Verify(raw string, want TokenType, now time.Time) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, m.parserOptions(now)...)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != want {
		return Claims{}, ErrTokenType
	}
	if !claims.Identity().complete() {
		return Claims{}, fmt.Errorf("%w: identity claims incomplete", ErrInvalidToken)
	}
	return claims, nil
}

// Refresh exchanges a valid refresh token for a new pair with the same identity.
func (m *Manager) Refresh(now time.Time, refreshToken string) (TokenPair, error) {
	claims, err := m.Verify(refreshToken, TokenRefresh, now)
	if err != nil {
		return TokenPair{}, err
	}
	return m.IssuePair(now, claims.Identity())
}

func (m *Manager) now() time.Time {
	if m.clock == nil {
		return time.Now()
	}
	return m.clock()
}

func (m *Manager) parserOptions(now time.Time) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	return opts
}

func (m *Manager) sign(now time.Time, id Identity, typ TokenType, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		CompanyID: id.CompanyID,
		Role:      id.Role,
		Type:      typ,
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}
