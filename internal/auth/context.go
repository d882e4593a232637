// Package auth carries the authenticated caller through request contexts.
package auth

import (
	"context"

	"github.com/quickai/quickai/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// callerContextKey is the context key for storing the Caller.
	callerContextKey contextKey = "caller"
)

// ContextWithCaller adds the caller to the context.
func ContextWithCaller(ctx context.Context, caller *model.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFromContext retrieves the caller from the context.
// Returns nil if not present.
func CallerFromContext(ctx context.Context) *model.Caller {
	caller, ok := ctx.Value(callerContextKey).(*model.Caller)
	if !ok {
		return nil
	}
	return caller
}

// MustCallerFromContext retrieves the caller from the context.
// Panics if not present (use only when auth middleware has run).
func MustCallerFromContext(ctx context.Context) *model.Caller {
	caller := CallerFromContext(ctx)
	if caller == nil {
		panic("caller not found - ensure auth middleware is applied")
	}
	return caller
}

// UserIDFromContext is a convenience function to get user ID from context.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	caller := CallerFromContext(ctx)
	if caller == nil {
		return ""
	}
	return caller.UserID
}
