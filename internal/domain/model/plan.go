package model

import (
	"strings"

	"tradematch/internal/domain"
)

type PlanTier string

const (
	PlanTierFree       PlanTier = "free"
	PlanTierPro        PlanTier = "pro"
	PlanTierEnterprise PlanTier = "enterprise"
)

// DefaultFreeMonthlyReveals is the free tier allowance per calendar month.
const DefaultFreeMonthlyReveals = 3

// Plan describes how many reveals a tier grants per calendar month.
type Plan struct {
	Tier           PlanTier
	Name           string
	MonthlyReveals int
	Unlimited      bool
}

func (p *Plan) IsZero() bool { return p == nil || p.Tier == "" }

// NewPlan validates and constructs a plan. monthlyReveals is ignored for unlimited plans.
func NewPlan(tier PlanTier, name string, monthlyReveals int, unlimited bool) (*Plan, error) {
	tier = PlanTier(strings.ToLower(strings.TrimSpace(string(tier))))
	if tier == "" || (!unlimited && monthlyReveals < 0) {
		return nil, domain.ErrInvalidArgument
	}
	if name == "" {
		name = string(tier)
	}
	if unlimited {
		monthlyReveals = 0
	}
	return &Plan{Tier: tier, Name: name, MonthlyReveals: monthlyReveals, Unlimited: unlimited}, nil
}

// PlanCatalog maps profile tiers to plans. A free plan is always present and
// unknown tiers resolve to it.
type PlanCatalog struct {
	plans map[PlanTier]*Plan
	free  *Plan
}

func NewPlanCatalog(freeMonthlyReveals int, plans ...*Plan) *PlanCatalog {
	if freeMonthlyReveals < 0 {
		freeMonthlyReveals = DefaultFreeMonthlyReveals
	}
	c := &PlanCatalog{plans: make(map[PlanTier]*Plan, len(plans)+1)}
	c.free = &Plan{Tier: PlanTierFree, Name: "Free", MonthlyReveals: freeMonthlyReveals}
	c.plans[PlanTierFree] = c.free
	for _, p := range plans {
		if p.IsZero() {
			continue
		}
		c.plans[p.Tier] = p
		if p.Tier == PlanTierFree {
			c.free = p
		}
	}
	return c
}

// DefaultPlanCatalog is the free tier plus unlimited pro and enterprise tiers.
func DefaultPlanCatalog() *PlanCatalog {
	return NewPlanCatalog(DefaultFreeMonthlyReveals,
		&Plan{Tier: PlanTierPro, Name: "Pro", Unlimited: true},
		&Plan{Tier: PlanTierEnterprise, Name: "Enterprise", Unlimited: true},
	)
}

func (c *PlanCatalog) Resolve(tier PlanTier) *Plan {
	if p, ok := c.plans[PlanTier(strings.ToLower(string(tier)))]; ok {
		return p
	}
	return c.free
}
