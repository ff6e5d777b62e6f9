package model

import (
	"strings"
	"time"

	"tradematch/internal/domain"

	"github.com/google/uuid"
)

type MatchTier string

const (
	MatchTierBest  MatchTier = "best"
	MatchTierGreat MatchTier = "great"
	MatchTierGood  MatchTier = "good"
)

func (t MatchTier) IsValid() bool {
	switch t {
	case MatchTierBest, MatchTierGreat, MatchTierGood:
		return true
	}
	return false
}

type MatchStatus string

const (
	MatchStatusNew        MatchStatus = "new"
	MatchStatusViewed     MatchStatus = "viewed"
	MatchStatusInterested MatchStatus = "interested"
	MatchStatusDismissed  MatchStatus = "dismissed"
)

func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusNew, MatchStatusViewed, MatchStatusInterested, MatchStatusDismissed:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is defined from s.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusInterested || s == MatchStatusDismissed
}

// ProductRef is a matched HS product code with its display name.
type ProductRef struct {
	Code string
	Name string
}

// ScoreBreakdown is the per-signal contribution to Match.Score. Internal only.
type ScoreBreakdown struct {
	ProductOverlap float64
	VolumeFit      float64
	GeographyFit   float64
	Reliability    float64
}

// TradeData is privileged: withheld until the match is revealed.
type TradeData struct {
	Volume      string
	Frequency   string
	YearsActive int
}

// CounterpartyContact is privileged: withheld until the match is revealed.
type CounterpartyContact struct {
	Name    string
	Email   string
	Phone   string
	Website *string
	Title   string
}

// Match is a computed pairing between the owner and a counterparty business.
// OwnerID is immutable once the upstream producer has created the record.
type Match struct {
	ID      string
	OwnerID string

	CounterpartyName string
	Country          string
	City             *string
	Products         []ProductRef
	Tier             MatchTier
	Reasons          []string
	Warnings         []string

	// Ranking signal, never exposed outside the service.
	Score     float64
	Breakdown ScoreBreakdown

	Status     MatchStatus
	Revealed   bool
	RevealedAt *time.Time

	TradeData *TradeData
	Contact   *CounterpartyContact

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMatch validates and constructs a match in its initial state.
func NewMatch(id, ownerID, counterpartyName, country string, tier MatchTier, score float64) (*Match, error) {
	if ownerID == "" || strings.TrimSpace(counterpartyName) == "" || strings.TrimSpace(country) == "" || !tier.IsValid() {
		return nil, domain.ErrInvalidArgument
	}
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	return &Match{
		ID:               id,
		OwnerID:          ownerID,
		CounterpartyName: strings.TrimSpace(counterpartyName),
		Country:          strings.TrimSpace(country),
		Tier:             tier,
		Score:            score,
		Status:           MatchStatusNew,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (m *Match) IsZero() bool { return m == nil || m.ID == "" }

func (m *Match) OwnedBy(userID string) bool {
	return m != nil && userID != "" && m.OwnerID == userID
}

// MarkViewed moves a new match to viewed. It reports whether the status changed.
func (m *Match) MarkViewed() bool {
	if m.Status != MatchStatusNew {
		return false
	}
	m.Status = MatchStatusViewed
	m.UpdatedAt = time.Now()
	return true
}

// SetStatus applies an explicit user decision. Only interested and dismissed are
// accepted targets. Re-applying the current terminal status is a no-op; moving
// from one terminal status to the other is ErrInvalidTransition.
func (m *Match) SetStatus(target MatchStatus) (changed bool, err error) {
	if target != MatchStatusInterested && target != MatchStatusDismissed {
		return false, domain.ErrInvalidArgument
	}
	if m.Status == target {
		return false, nil
	}
	if m.Status.IsTerminal() {
		return false, domain.ErrInvalidTransition
	}
	m.Status = target
	m.UpdatedAt = time.Now()
	return true, nil
}

// Reveal flips the one-way reveal flag. It reports whether the flag changed.
func (m *Match) Reveal(at time.Time) bool {
	if m.Revealed {
		return false
	}
	m.Revealed = true
	m.RevealedAt = &at
	m.UpdatedAt = at
	return true
}
