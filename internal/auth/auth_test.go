package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civicworks/civic-api/internal/config"
	"github.com/civicworks/civic-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "super-secret-signing-key"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(sub uuid.UUID) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.String(),
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "ada@example.com",
		UserMetadata: map[string]interface{}{
			"full_name":  " Ada Lovelace ",
			"first_name": "Ada",
		},
	}
}

func TestJWTValidator_ValidateToken(t *testing.T) {
	v := NewJWTValidator(&config.AuthConfig{JWTSecret: testSecret, Audience: "authenticated"})
	sub := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		id, err := v.ValidateToken(signToken(t, testSecret, validClaims(sub)))
		require.NoError(t, err)
		assert.Equal(t, sub, id.Subject)
		assert.Equal(t, "ada@example.com", id.Email)
		assert.Equal(t, "Ada Lovelace", id.FullName)
		assert.Equal(t, "Ada", id.FirstName)
		assert.Equal(t, "", id.LastName)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.ValidateToken(signToken(t, "other", validClaims(sub)))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		c := validClaims(sub)
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.ValidateToken(signToken(t, testSecret, c))
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := validClaims(sub)
		c.Audience = jwt.ClaimStrings{"someone-else"}
		_, err := v.ValidateToken(signToken(t, testSecret, c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("non uuid subject", func(t *testing.T) {
		c := validClaims(sub)
		c.Subject = "not-a-uuid"
		_, err := v.ValidateToken(signToken(t, testSecret, c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

type stubResolver struct {
	profile *domain.Profile
	err     error
	calls   int
}

func (s *stubResolver) Resolve(_ context.Context, id *Identity) (*domain.Profile, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p := *s.profile
	p.ID = id.Subject
	return &p, nil
}

func captureUser(t *testing.T, got **UserContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := FromContext(r.Context())
		require.True(t, ok)
		*got = u
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddleware_Authenticate(t *testing.T) {
	areaID := uuid.New()
	resolver := &stubResolver{profile: &domain.Profile{
		UserType:   domain.UserTypeAreaSuperAdmin,
		AreaID:     &areaID,
		IsVerified: true,
		FullName:   "Area Boss",
	}}
	m := NewMiddleware(&config.AuthConfig{JWTSecret: testSecret, APIKey: "api-key"}, resolver, zap.NewNop())

	t.Run("bearer token uses stored profile role", func(t *testing.T) {
		var user *UserContext
		sub := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(sub)))
		rec := httptest.NewRecorder()

		m.Authenticate(captureUser(t, &user)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, sub, user.UserID)
		assert.Equal(t, domain.UserTypeAreaSuperAdmin, user.UserType)
		assert.Equal(t, &areaID, user.AreaID)
		assert.Equal(t, "Area Boss", user.DisplayName)
	})

	t.Run("api key yields system principal", func(t *testing.T) {
		var user *UserContext
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("x-api-key", "api-key")
		rec := httptest.NewRecorder()

		m.Authenticate(captureUser(t, &user)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, user.IsSystem)
		assert.True(t, user.IsAdmin())
	})

	t.Run("bad api key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("x-api-key", "nope")
		rec := httptest.NewRecorder()
		m.Authenticate(http.NotFoundHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.Authenticate(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("resolver failure", func(t *testing.T) {
		failing := NewMiddleware(&config.AuthConfig{JWTSecret: testSecret}, &stubResolver{err: errors.New("db down")}, zap.NewNop())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(uuid.New())))
		rec := httptest.NewRecorder()
		failing.Authenticate(http.NotFoundHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestMiddleware_RequireUserType(t *testing.T) {
	m := NewMiddleware(&config.AuthConfig{}, &stubResolver{}, zap.NewNop())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	guard := m.RequireUserType(domain.UserTypeAdmin)(ok)

	cases := []struct {
		name string
		user *UserContext
		want int
	}{
		{"admin", &UserContext{UserType: domain.UserTypeAdmin}, http.StatusOK},
		{"citizen", &UserContext{UserType: domain.UserTypeUser}, http.StatusForbidden},
		{"system", SystemUser(), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithUserContext(req.Context(), tc.user))
			rec := httptest.NewRecorder()
			guard.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestMiddleware_RequireWebhookKey(t *testing.T) {
	m := NewMiddleware(&config.AuthConfig{WebhookKey: "hook", APIKey: "api"}, &stubResolver{}, zap.NewNop())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/identities", nil)
	req.Header.Set("x-webhook-key", "hook")
	rec := httptest.NewRecorder()
	m.RequireWebhookKey(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/identities", nil)
	req.Header.Set("x-webhook-key", "wrong")
	rec = httptest.NewRecorder()
	m.RequireWebhookKey(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
