package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/quickai/quickai/internal/model"
)

// planClaim is the session claim Clerk billing uses for the active plan.
const planClaim = "pla"

// ClerkVerifier validates Clerk-issued session JWTs using JWKS.
type ClerkVerifier struct {
	issuer  string
	keyFunc jwt.Keyfunc
}

// NewClerkVerifier creates a ClerkVerifier that fetches JWKS from the issuer.
func NewClerkVerifier(issuer string) (*ClerkVerifier, error) {
	if issuer == "" {
		return nil, fmt.Errorf("clerk issuer URL is required")
	}
	issuer = strings.TrimSuffix(issuer, "/")

	jwksURL := issuer + "/.well-known/jwks.json"
	jwks, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS from %s: %w", jwksURL, err)
	}

	return newClerkVerifier(issuer, jwks.Keyfunc), nil
}

func newClerkVerifier(issuer string, keyFunc jwt.Keyfunc) *ClerkVerifier {
	return &ClerkVerifier{issuer: issuer, keyFunc: keyFunc}
}

// Verify parses a session token and returns the session it carries.
func (v *ClerkVerifier) Verify(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	parsed, err := jwt.Parse(token, v.keyFunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil {
		return nil, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrUnauthorized
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrUnauthorized
	}

	session := &model.Session{UserID: sub}
	if raw, _ := claims[planClaim].(string); raw != "" {
		session.Plan = model.ParsePlan(raw)
	}
	return session, nil
}
