package model

import (
	"strings"
	"time"

	"tradematch/internal/domain"
)

// Profile is the owning business profile of a user. Only the fields the match
// subsystem reads are modelled here.
type Profile struct {
	UserID      string
	CompanyName string
	Country     string
	Plan        PlanTier
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewProfile(userID, companyName, country string, plan PlanTier) (*Profile, error) {
	if userID == "" || strings.TrimSpace(companyName) == "" {
		return nil, domain.ErrInvalidArgument
	}
	if plan == "" {
		plan = PlanTierFree
	}
	now := time.Now()
	return &Profile{
		UserID:      userID,
		CompanyName: strings.TrimSpace(companyName),
		Country:     strings.TrimSpace(country),
		Plan:        plan,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Profile) IsZero() bool { return p == nil || p.UserID == "" }
