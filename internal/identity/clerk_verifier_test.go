package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickai/quickai/internal/model"
)

const testIssuer = "https://clerk.example.com"

func newTestVerifier(t *testing.T) (*ClerkVerifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	v := newClerkVerifier(testIssuer, func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	})
	return v, key
}

func sign(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestClerkVerifier_Verify(t *testing.T) {
	v, key := newTestVerifier(t)
	exp := time.Now().Add(time.Hour).Unix()

	testCases := []struct {
		name     string
		claims   jwt.MapClaims
		wantPlan model.Plan
	}{
		{"no plan claim", jwt.MapClaims{"sub": "user_1", "iss": testIssuer, "exp": exp}, ""},
		{"premium plan claim", jwt.MapClaims{"sub": "user_1", "iss": testIssuer, "exp": exp, "pla": "u:premium"}, model.PlanPremium},
		{"free plan claim", jwt.MapClaims{"sub": "user_1", "iss": testIssuer, "exp": exp, "pla": "u:free_user"}, model.PlanFree},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			session, err := v.Verify(context.Background(), sign(t, key, tc.claims))
			require.NoError(t, err)
			assert.Equal(t, "user_1", session.UserID)
			assert.Equal(t, tc.wantPlan, session.Plan)
		})
	}
}

func TestClerkVerifier_Rejects(t *testing.T) {
	v, key := newTestVerifier(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour).Unix()

	testCases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"expired", sign(t, key, jwt.MapClaims{"sub": "u", "iss": testIssuer, "exp": time.Now().Add(-time.Minute).Unix()})},
		{"missing exp", sign(t, key, jwt.MapClaims{"sub": "u", "iss": testIssuer})},
		{"wrong issuer", sign(t, key, jwt.MapClaims{"sub": "u", "iss": "https://evil.example.com", "exp": exp})},
		{"missing subject", sign(t, key, jwt.MapClaims{"iss": testIssuer, "exp": exp})},
		{"wrong key", sign(t, otherKey, jwt.MapClaims{"sub": "u", "iss": testIssuer, "exp": exp})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tc.token)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestNewClerkVerifier_RequiresIssuer(t *testing.T) {
	_, err := NewClerkVerifier("")
	assert.Error(t, err)
}
