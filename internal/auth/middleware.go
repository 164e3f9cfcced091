package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/civicworks/civic-api/internal/config"
	"github.com/civicworks/civic-api/internal/domain"
	"go.uber.org/zap"
)

// ProfileResolver loads the profile for a verified identity, creating it on first sight
type ProfileResolver interface {
	Resolve(ctx context.Context, identity *Identity) (*domain.Profile, error)
}

// Middleware authenticates HTTP requests
type Middleware struct {
	jwtValidator *JWTValidator
	profiles     ProfileResolver
	apiKey       string
	webhookKey   string
	logger       *zap.Logger
}

func NewMiddleware(cfg *config.AuthConfig, profiles ProfileResolver, logger *zap.Logger) *Middleware {
	return &Middleware{
		jwtValidator: NewJWTValidator(cfg),
		profiles:     profiles,
		apiKey:       cfg.APIKey,
		webhookKey:   cfg.WebhookKey,
		logger:       logger,
	}
}

// Authenticate accepts either the system API key or a bearer token. For
// tokens the caller's role is read from the stored profile.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if key := r.Header.Get("x-api-key"); key != "" {
			if !constantTimeEqual(key, m.apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), SystemUser())))
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "Unauthorized: missing or malformed authorization header", http.StatusUnauthorized)
			return
		}

		identity, err := m.jwtValidator.ValidateToken(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}

		profile, err := m.profiles.Resolve(r.Context(), identity)
		if err != nil {
			m.logger.Error("failed to resolve profile",
				zap.String("user_id", identity.Subject.String()),
				zap.Error(err),
			)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		userCtx := FromProfile(profile)
		m.logger.Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_id", userCtx.UserID.String()),
			zap.String("user_type", string(userCtx.UserType)),
			zap.Duration("auth_duration", time.Since(start)),
		)

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
	})
}

// RequireUserType allows only callers holding one of the given user types.
// The system principal always passes.
func (m *Middleware) RequireUserType(types ...domain.UserType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				http.Error(w, "Forbidden: no user context", http.StatusForbidden)
				return
			}
			if !userCtx.IsSystem && !userCtx.HasUserType(types...) {
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireWebhookKey guards the identity provider's callback with its shared key
func (m *Middleware) RequireWebhookKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("x-webhook-key")
		if key == "" {
			key = r.Header.Get("x-api-key")
		}
		if !constantTimeEqual(key, m.webhookKey) && !constantTimeEqual(key, m.apiKey) {
			m.logger.Warn("rejected identity webhook", zap.String("remote_addr", r.RemoteAddr))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), SystemUser())))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func constantTimeEqual(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
