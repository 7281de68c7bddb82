package rewards

import (
	"fmt"
	"sort"

	"voyage-rewards/pkg/celengine"
	"voyage-rewards/pkg/config"
	"voyage-rewards/pkg/errutil"
)

// ActionPolicy is the rate-limit policy for one action kind. A zero
// CooldownHours means no cooldown; a zero window cap means that window is
// unlimited.
type ActionPolicy struct {
	Action        string `json:"action"`
	BasePoints    int64  `json:"base_points"`
	CooldownHours int    `json:"cooldown_hours"`
	MaxPerDay     int    `json:"max_per_day"`
	MaxPerWeek    int    `json:"max_per_week"`
	MaxPerMonth   int    `json:"max_per_month"`
	AutoVerify    bool   `json:"auto_verify"`

	// Guard is an optional CEL expression over {action, base_points,
	// metadata} that must evaluate true for a submission to proceed.
	Guard string `json:"guard,omitempty"`
}

// PolicyCatalog is the static action -> policy lookup. Loaded once at
// process start, immutable thereafter.
type PolicyCatalog struct {
	policies map[string]ActionPolicy
}

func NewPolicyCatalog(policies []ActionPolicy) (*PolicyCatalog, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("policy catalog must not be empty")
	}

	byAction := make(map[string]ActionPolicy, len(policies))
	for _, p := range policies {
		if p.Action == "" {
			return nil, fmt.Errorf("policy with empty action kind")
		}
		if _, dup := byAction[p.Action]; dup {
			return nil, fmt.Errorf("duplicate policy for action %q", p.Action)
		}
		if p.BasePoints < 0 {
			return nil, fmt.Errorf("policy %q has negative base points", p.Action)
		}
		if p.CooldownHours < 0 || p.MaxPerDay < 0 || p.MaxPerWeek < 0 || p.MaxPerMonth < 0 {
			return nil, fmt.Errorf("policy %q has a negative limit", p.Action)
		}

		if p.Guard != "" {
			env, err := celengine.GuardEnv()
			if err != nil {
				return nil, err
			}
			if err := celengine.ValidateExpression(env, p.Guard); err != nil {
				return nil, fmt.Errorf("policy %q guard: %w", p.Action, err)
			}
		}

		byAction[p.Action] = p
	}

	return &PolicyCatalog{policies: byAction}, nil
}

// DefaultPolicies is the canonical action policy table. The historical
// system carried two diverging copies of these constants; this is the single
// unified one.
func DefaultPolicies() []ActionPolicy {
	return []ActionPolicy{
		{Action: "booking-completed", BasePoints: 500, CooldownHours: 0,
			MaxPerDay: 3, MaxPerWeek: 10, MaxPerMonth: 30, AutoVerify: true,
			Guard: `"booking_id" in metadata && metadata["booking_id"] != ""`},
		{Action: "review-posted", BasePoints: 150, CooldownHours: 24,
			MaxPerDay: 1, MaxPerWeek: 5, MaxPerMonth: 20},
		{Action: "social-follow", BasePoints: 100, CooldownHours: 0,
			MaxPerDay: 1, MaxPerWeek: 1, MaxPerMonth: 1,
			Guard: `"platform" in metadata && metadata["platform"] != ""`},
		{Action: "app-download", BasePoints: 250, CooldownHours: 0,
			MaxPerDay: 1, MaxPerWeek: 1, MaxPerMonth: 1, AutoVerify: true},
		{Action: "content-share", BasePoints: 50, CooldownHours: 6,
			MaxPerDay: 2, MaxPerWeek: 10, MaxPerMonth: 40},
	}
}

func policiesFromConfig(cfgs []config.ActionConfig) []ActionPolicy {
	policies := make([]ActionPolicy, 0, len(cfgs))
	for _, c := range cfgs {
		policies = append(policies, ActionPolicy{
			Action:        c.Action,
			BasePoints:    c.BasePoints,
			CooldownHours: c.CooldownHours,
			MaxPerDay:     c.MaxPerDay,
			MaxPerWeek:    c.MaxPerWeek,
			MaxPerMonth:   c.MaxPerMonth,
			AutoVerify:    c.AutoVerify,
			Guard:         c.Guard,
		})
	}
	return policies
}

// Resolve looks up the policy for an action kind.
func (c *PolicyCatalog) Resolve(action string) (ActionPolicy, bool) {
	p, ok := c.policies[action]
	return p, ok
}

// All returns the policies sorted by action kind, for the catalog endpoint.
func (c *PolicyCatalog) All() []ActionPolicy {
	out := make([]ActionPolicy, 0, len(c.policies))
	for _, p := range c.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}

// CheckGuard evaluates the policy guard, if any, against the submission.
func (p ActionPolicy) CheckGuard(basePoints int64, metadata map[string]string) error {
	if p.Guard == "" {
		return nil
	}

	env, err := celengine.GuardEnv()
	if err != nil {
		return errutil.Internal("guard environment unavailable", err)
	}

	if metadata == nil {
		metadata = map[string]string{}
	}

	ok, err := celengine.Evaluate(env, p.Guard, map[string]interface{}{
		"action":      p.Action,
		"base_points": basePoints,
		"metadata":    metadata,
	})
	if err != nil {
		return errutil.Internal("guard evaluation failed", err)
	}

	if !ok {
		return errutil.ValidationFailed(
			fmt.Sprintf("submission does not satisfy requirements for %s", p.Action), nil,
			errutil.WithDetails(errutil.Detail{Field: "metadata", Message: p.Guard}))
	}

	return nil
}
