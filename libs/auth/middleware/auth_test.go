package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/courseforge/backend/libs/auth/service"
	"github.com/stretchr/testify/assert"
)

type mockVerifier struct {
	principal service.Principal
	err       error
}

func (m *mockVerifier) ValidateAccessToken(token string) (service.Principal, error) {
	return m.principal, m.err
}

func TestRoleMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		verifier       *mockVerifier
		setupRequest   func(r *http.Request)
		expectedStatus int
	}{
		{
			name:     "admin with bearer token",
			verifier: &mockVerifier{principal: service.Principal{UserID: 1, Role: service.RoleAdmin}},
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer token")
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:     "tutor with cookie",
			verifier: &mockVerifier{principal: service.Principal{UserID: 2, Role: service.RoleTutor}},
			setupRequest: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: "token"})
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "no token",
			verifier:       &mockVerifier{},
			setupRequest:   func(r *http.Request) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:     "invalid token",
			verifier: &mockVerifier{err: errors.New("bad token")},
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer token")
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:     "insufficient role",
			verifier: &mockVerifier{principal: service.Principal{UserID: 3, Role: service.RoleUser}},
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer token")
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.Principal
			handler := RoleMiddleware(tt.verifier, service.RoleTutor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = GetPrincipal(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setupRequest(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.verifier.principal, got)
			}
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		configured     string
		provided       string
		expectedStatus int
	}{
		{name: "valid key", configured: "key", provided: "key", expectedStatus: http.StatusOK},
		{name: "wrong key", configured: "key", provided: "other", expectedStatus: http.StatusUnauthorized},
		{name: "no key configured", configured: "", provided: "", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.Principal
			handler := APIKeyMiddleware(tt.configured)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = GetPrincipal(r.Context())
			}))
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("X-API-Key", tt.provided)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.True(t, got.IsAdmin())
			}
		})
	}
}
