// Package model defines domain entities for the application.
package model

// Plan is the subscription tier of a caller.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// ParsePlan normalizes a plan value coming from the identity provider.
// Clerk billing prefixes plan slugs with the payer type ("u:" or "o:").
// Anything that is not premium is treated as free.
func ParsePlan(raw string) Plan {
	if len(raw) > 2 && raw[1] == ':' {
		raw = raw[2:]
	}
	if Plan(raw) == PlanPremium {
		return PlanPremium
	}
	return PlanFree
}

// IsPremium returns true for the premium plan.
func (p Plan) IsPremium() bool {
	return p == PlanPremium
}

// Caller is the identity on whose behalf a request runs.
// Plan and FreeUsage are read from the identity store on every request.
type Caller struct {
	UserID    string `json:"user_id"`
	Plan      Plan   `json:"plan"`
	FreeUsage int    `json:"free_usage"`
}

// Session is the verified content of a bearer credential.
type Session struct {
	UserID string
	// Plan is empty when the token carries no plan claim.
	Plan Plan
}
