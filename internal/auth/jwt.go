package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/civicworks/civic-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingKey   = errors.New("token signing secret not configured")
)

// Identity is what the identity provider asserts about a caller
type Identity struct {
	Subject   uuid.UUID
	Email     string
	FullName  string
	FirstName string
	LastName  string
}

// Claims is the token payload issued by the identity provider
type Claims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// JWTValidator validates HS256 tokens signed with the shared secret
type JWTValidator struct {
	secret   []byte
	issuer   string
	audience string
}

func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	return &JWTValidator{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// ValidateToken verifies the signature and standard claims and returns the identity
func (v *JWTValidator) ValidateToken(tokenString string) (*Identity, error) {
	if len(v.secret) == 0 {
		return nil, ErrMissingKey
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a UUID", ErrInvalidToken)
	}

	return &Identity{
		Subject:   sub,
		Email:     claims.Email,
		FullName:  metadataString(claims.UserMetadata, "full_name"),
		FirstName: metadataString(claims.UserMetadata, "first_name"),
		LastName:  metadataString(claims.UserMetadata, "last_name"),
	}, nil
}

// IdentityFromMetadata builds an Identity from a webhook payload's metadata map
func IdentityFromMetadata(id uuid.UUID, email string, metadata map[string]string) *Identity {
	get := func(key string) string {
		return strings.TrimSpace(metadata[key])
	}
	return &Identity{
		Subject:   id,
		Email:     email,
		FullName:  get("full_name"),
		FirstName: get("first_name"),
		LastName:  get("last_name"),
	}
}

func metadataString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
