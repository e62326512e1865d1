package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role levels carried in access tokens. Higher values include lower ones.
const (
	RoleUser  = 1
	RoleTutor = 2
	RoleAdmin = 3
)

// Principal is the verified identity behind a request
type Principal struct {
	UserID int
	Role   int
}

// IsAdmin reports whether the principal has the admin role
func (p Principal) IsAdmin() bool {
	return p.Role >= RoleAdmin
}

// accessClaims is the payload of an access token
type accessClaims struct {
	UserID int    `json:"user_id"`
	Role   int    `json:"role"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenGenerator handles JWT token generation and validation
type TokenGenerator struct {
	secret            []byte
	accessTokenExpiry time.Duration
	now               func() time.Time
}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator(secret string, accessExpiry time.Duration) *TokenGenerator {
	return &TokenGenerator{
		secret:            []byte(secret),
		accessTokenExpiry: accessExpiry,
		now:               time.Now,
	}
}

// GenerateAccessToken issues an access token for a user.
// Tokens are normally issued by the identity service; this is used by tooling and tests.
func (tg *TokenGenerator) GenerateAccessToken(userID, role int) (string, error) {
	now := tg.now()
	claims := accessClaims{
		UserID: userID,
		Role:   role,
		Type:   "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tg.accessTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tg.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates an access token and returns the principal it was issued for
func (tg *TokenGenerator) ValidateAccessToken(tokenString string) (Principal, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tg.secret, nil
	}, jwt.WithTimeFunc(tg.now))
	if err != nil {
		return Principal{}, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return Principal{}, fmt.Errorf("token is invalid")
	}

	if claims.Type != "access" {
		return Principal{}, fmt.Errorf("token is not an access token")
	}

	if claims.UserID <= 0 {
		return Principal{}, fmt.Errorf("user_id not found in token")
	}

	if claims.Role < RoleUser {
		return Principal{}, fmt.Errorf("role not found in token")
	}

	return Principal{UserID: claims.UserID, Role: claims.Role}, nil
}
