package usage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quickai/quickai/internal/metrics"
	"github.com/quickai/quickai/internal/model"
)

// Resolver turns a verified session into the caller used by the gate.
// The caller is read fresh from the identity store on every call.
type Resolver struct {
	identities IdentityStore
	logger     *slog.Logger
	metrics    metrics.Recorder
}

// NewResolver creates a Resolver.
func NewResolver(identities IdentityStore, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Resolver{identities: identities, logger: logger, metrics: recorder}
}

// Resolve loads the caller for session. A plan carried by the session token
// takes precedence over the stored plan. Premium callers with a non-zero
// counter are reset to zero so a later downgrade starts a fresh epoch.
func (r *Resolver) Resolve(ctx context.Context, session *model.Session) (*model.Caller, error) {
	caller, err := r.identities.Get(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load caller: %w", err)
	}

	if session.Plan != "" {
		caller.Plan = session.Plan
	}
	if caller.FreeUsage < 0 {
		caller.FreeUsage = 0
	}

	if caller.Plan.IsPremium() && caller.FreeUsage != 0 {
		if err := r.identities.ResetUsage(ctx, caller.UserID); err != nil {
			// The counter is ignored for premium callers, so a failed reset is not fatal.
			r.logger.Warn("free usage reset failed",
				slog.String("user_id", caller.UserID),
				slog.String("error", err.Error()),
			)
		} else {
			caller.FreeUsage = 0
			r.metrics.IncUsageReset()
		}
	}

	return caller, nil
}
