// Package identity verifies session tokens and reads and writes the
// per-user plan and free usage counter held by the identity provider.
package identity

import (
	"context"
	"errors"

	"github.com/quickai/quickai/internal/model"
)

// Identity errors.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUserNotFound = errors.New("user not found")
)

// TokenVerifier turns a bearer token into a verified session.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.Session, error)
}

// Store reads and updates caller state.
type Store interface {
	Get(ctx context.Context, userID string) (*model.Caller, error)
	IncrementUsage(ctx context.Context, userID string) (int, error)
	ResetUsage(ctx context.Context, userID string) error
}
