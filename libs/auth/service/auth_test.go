package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "b8a3c2267dc85f855dea9b46b452bf20"

func TestTokenGenerator_RoundTrip(t *testing.T) {
	tg := NewTokenGenerator(testSecret, time.Hour)

	token, err := tg.GenerateAccessToken(42, RoleAdmin)
	require.NoError(t, err)

	principal, err := tg.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, principal.UserID)
	assert.Equal(t, RoleAdmin, principal.Role)
	assert.True(t, principal.IsAdmin())
}

func TestTokenGenerator_ValidateAccessToken(t *testing.T) {
	tg := NewTokenGenerator(testSecret, time.Hour)

	sign := func(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name          string
		token         func(t *testing.T) string
		errorContains string
	}{
		{
			name: "expired token",
			token: func(t *testing.T) string {
				expired := NewTokenGenerator(testSecret, time.Hour)
				expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
				s, err := expired.GenerateAccessToken(1, RoleTutor)
				require.NoError(t, err)
				return s
			},
			errorContains: "failed to parse token",
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				s, err := NewTokenGenerator("other-secret", time.Hour).GenerateAccessToken(1, RoleAdmin)
				require.NoError(t, err)
				return s
			},
			errorContains: "failed to parse token",
		},
		{
			name: "refresh token type",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
					"user_id": 1, "role": RoleAdmin, "type": "refresh",
					"exp": time.Now().Add(time.Hour).Unix(),
				})
			},
			errorContains: "not an access token",
		},
		{
			name: "missing user id",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
					"role": RoleAdmin, "type": "access",
					"exp": time.Now().Add(time.Hour).Unix(),
				})
			},
			errorContains: "user_id not found",
		},
		{
			name: "missing role",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
					"user_id": 7, "type": "access",
					"exp": time.Now().Add(time.Hour).Unix(),
				})
			},
			errorContains: "role not found",
		},
		{
			name:          "garbage",
			token:         func(t *testing.T) string { return "not-a-token" },
			errorContains: "failed to parse token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tg.ValidateAccessToken(tt.token(t))

			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}
