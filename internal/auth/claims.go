package auth

import "github.com/golang-jwt/jwt/v5"

// TokenType separates short-lived access tokens from the refresh tokens used to rotate them.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims bind one staff member to one company. The user id is the registered subject.
// Refresh tokens carry the role as well: there is no staff directory to reload it from
// when a pair is rotated.
type Claims struct {
	jwt.RegisteredClaims

	CompanyID string    `json:"cid"`
	Role      string    `json:"role"`
	Type      TokenType `json:"typ"`
}

func (c Claims) Identity() Identity {
	return Identity{UserID: c.Subject, CompanyID: c.CompanyID, Role: c.Role}
}
