package model

import (
	"time"

	"tradematch/internal/domain"

	"github.com/oklog/ulid/v2"
)

const monthKeyLayout = "2006-01"

// MonthKey buckets t into its UTC calendar month, e.g. "2026-02".
func MonthKey(t time.Time) string {
	return t.UTC().Format(monthKeyLayout)
}

// RevealLedgerEntry is one quota-consuming reveal. At most one entry exists per
// (OwnerID, MatchID) and entries are never mutated.
type RevealLedgerEntry struct {
	ID        string
	OwnerID   string
	MatchID   string
	MonthKey  string
	CreatedAt time.Time
}

func NewRevealLedgerEntry(ownerID, matchID string, at time.Time) (*RevealLedgerEntry, error) {
	if ownerID == "" || matchID == "" || at.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	at = at.UTC()
	return &RevealLedgerEntry{
		ID:        ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		OwnerID:   ownerID,
		MatchID:   matchID,
		MonthKey:  MonthKey(at),
		CreatedAt: at,
	}, nil
}

// RevealUsage is a user's reveal consumption for one month-key.
type RevealUsage struct {
	MonthKey  string
	Used      int
	Total     int
	Unlimited bool
}

func NewRevealUsage(plan *Plan, monthKey string, used int) RevealUsage {
	u := RevealUsage{MonthKey: monthKey, Used: used}
	switch {
	case plan == nil:
	case plan.Unlimited:
		u.Unlimited = true
	default:
		u.Total = plan.MonthlyReveals
	}
	return u
}

func (u RevealUsage) Remaining() int {
	if u.Unlimited {
		return -1
	}
	if r := u.Total - u.Used; r > 0 {
		return r
	}
	return 0
}

// Exhausted reports whether one more reveal would exceed the allowance.
func (u RevealUsage) Exhausted() bool {
	return !u.Unlimited && u.Used >= u.Total
}
