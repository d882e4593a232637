// Package usage implements the free-tier usage gate and the recorder that
// persists generated artifacts and advances the caller's usage counter.
package usage

import (
	"slices"

	"github.com/quickai/quickai/internal/model"
)

// DefaultFreeLimit is the number of generations a free caller gets per epoch.
const DefaultFreeLimit = 10

// User-facing denial messages.
const (
	MessageLimitReached = "Limit reached. Upgrade to continue."
	MessagePremiumOnly  = "This feature is only available for premium subscriptions."
)

// Decision is the outcome of a gate evaluation.
type Decision struct {
	Allowed bool
	// Message is set only when the request is denied.
	Message string
}

// Allow is the decision that lets a request through.
var Allow = Decision{Allowed: true}

// Gate decides whether a caller may run a billable operation.
// It has no side effects and is safe for concurrent use.
type Gate struct {
	limit       int
	premiumOnly []model.Feature
}

// NewGate creates a Gate with the given free-tier ceiling.
// Features in premiumOnly are closed to free callers regardless of usage.
func NewGate(limit int, premiumOnly ...model.Feature) *Gate {
	return &Gate{
		limit:       limit,
		premiumOnly: slices.Clone(premiumOnly),
	}
}

// Limit returns the configured free-tier ceiling.
func (g *Gate) Limit() int {
	return g.limit
}

// Authorize allows premium callers unconditionally and free callers while
// freeUsage is below the limit.
func (g *Gate) Authorize(plan model.Plan, freeUsage int) Decision {
	if plan.IsPremium() || freeUsage < g.limit {
		return Allow
	}
	return Decision{Message: MessageLimitReached}
}

// AuthorizeFeature applies the premium-only feature list before Authorize.
func (g *Gate) AuthorizeFeature(feature model.Feature, plan model.Plan, freeUsage int) Decision {
	if !plan.IsPremium() && slices.Contains(g.premiumOnly, feature) {
		return Decision{Message: MessagePremiumOnly}
	}
	return g.Authorize(plan, freeUsage)
}

// Remaining returns how many free generations the caller has left.
// Premium callers get -1, meaning unlimited.
func (g *Gate) Remaining(plan model.Plan, freeUsage int) int {
	if plan.IsPremium() {
		return -1
	}
	if freeUsage >= g.limit {
		return 0
	}
	return g.limit - max(freeUsage, 0)
}
