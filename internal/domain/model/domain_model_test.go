//go:build !integration

package model

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"tradematch/internal/domain"
)

// --- Match Model Tests ---

func TestNewMatch(t *testing.T) {
	t.Run("should create a new match in status new", func(t *testing.T) {
		m, err := NewMatch("", "owner-1", "  Kaffee GmbH ", "DE", MatchTierBest, 0.82)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if m.ID == "" {
			t.Error("expected a generated id")
		}
		if m.Status != MatchStatusNew || m.Revealed {
			t.Errorf("unexpected initial state status=%s revealed=%v", m.Status, m.Revealed)
		}
		if m.CounterpartyName != "Kaffee GmbH" {
			t.Errorf("expected trimmed name, got %q", m.CounterpartyName)
		}
	})

	tests := []struct {
		name, owner, cp, country string
		tier                     MatchTier
	}{
		{"missing owner", "", "X", "DE", MatchTierGood},
		{"blank counterparty", "o", "  ", "DE", MatchTierGood},
		{"blank country", "o", "X", "", MatchTierGood},
		{"unknown tier", "o", "X", "DE", MatchTier("ok")},
	}
	for _, tt := range tests {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			if _, err := NewMatch("", tt.owner, tt.cp, tt.country, tt.tier, 0); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestMatchStatusMachine(t *testing.T) {
	newMatch := func(s MatchStatus) *Match {
		return &Match{ID: "m", OwnerID: "o", Status: s}
	}

	t.Run("MarkViewed only applies to new", func(t *testing.T) {
		m := newMatch(MatchStatusNew)
		if !m.MarkViewed() || m.Status != MatchStatusViewed {
			t.Fatalf("expected new -> viewed, got %s", m.Status)
		}
		if m.MarkViewed() {
			t.Error("viewed must not change again")
		}
		d := newMatch(MatchStatusDismissed)
		if d.MarkViewed() || d.Status != MatchStatusDismissed {
			t.Error("terminal status must not become viewed")
		}
	})

	tests := []struct {
		name        string
		from        MatchStatus
		target      MatchStatus
		wantChanged bool
		wantErr     error
		wantStatus  MatchStatus
	}{
		{"new to interested", MatchStatusNew, MatchStatusInterested, true, nil, MatchStatusInterested},
		{"new to dismissed", MatchStatusNew, MatchStatusDismissed, true, nil, MatchStatusDismissed},
		{"viewed to interested", MatchStatusViewed, MatchStatusInterested, true, nil, MatchStatusInterested},
		{"viewed to dismissed", MatchStatusViewed, MatchStatusDismissed, true, nil, MatchStatusDismissed},
		{"dismissed again is a no-op", MatchStatusDismissed, MatchStatusDismissed, false, nil, MatchStatusDismissed},
		{"interested again is a no-op", MatchStatusInterested, MatchStatusInterested, false, nil, MatchStatusInterested},
		{"dismissed to interested", MatchStatusDismissed, MatchStatusInterested, false, domain.ErrInvalidTransition, MatchStatusDismissed},
		{"interested to dismissed", MatchStatusInterested, MatchStatusDismissed, false, domain.ErrInvalidTransition, MatchStatusInterested},
		{"target viewed", MatchStatusNew, MatchStatusViewed, false, domain.ErrInvalidArgument, MatchStatusNew},
		{"target new", MatchStatusViewed, MatchStatusNew, false, domain.ErrInvalidArgument, MatchStatusViewed},
		{"target garbage", MatchStatusNew, MatchStatus("archived"), false, domain.ErrInvalidArgument, MatchStatusNew},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMatch(tt.from)
			changed, err := m.SetStatus(tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if changed != tt.wantChanged || m.Status != tt.wantStatus {
				t.Errorf("changed=%v status=%s, want changed=%v status=%s", changed, m.Status, tt.wantChanged, tt.wantStatus)
			}
		})
	}
}

func TestMatchReveal(t *testing.T) {
	m := &Match{ID: "m", OwnerID: "o", Status: MatchStatusNew}
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if !m.Reveal(at) || !m.Revealed || !m.RevealedAt.Equal(at) {
		t.Fatal("expected first reveal to flip the flag")
	}
	if m.Reveal(at.Add(time.Hour)) {
		t.Error("reveal must be one-way and flip only once")
	}
	if !m.RevealedAt.Equal(at) {
		t.Error("revealed_at must not move on repeated reveal")
	}
	if m.Status != MatchStatusNew {
		t.Error("reveal must not touch status")
	}
}

// --- Shaper Tests ---

func shapedJSON(t *testing.T, m *Match) map[string]any {
	t.Helper()
	b, err := json.Marshal(ShapeMatch(m))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func fullMatch(revealed bool, status MatchStatus) *Match {
	site := "https://acme.example"
	city := "Hamburg"
	m := &Match{
		ID: "m1", OwnerID: "o1", CounterpartyName: "Acme", Country: "DE", City: &city,
		Products:  []ProductRef{{Code: "0901", Name: "Coffee"}},
		Tier:      MatchTierGreat,
		Reasons:   []string{"overlap"},
		Score:     0.91,
		Breakdown: ScoreBreakdown{ProductOverlap: 0.4, VolumeFit: 0.3, GeographyFit: 0.1, Reliability: 0.11},
		Status:    status,
		TradeData: &TradeData{Volume: "20t", Frequency: "weekly", YearsActive: 12},
		Contact:   &CounterpartyContact{Name: "Ann", Email: "ann@acme.example", Phone: "+49", Website: &site, Title: "CEO"},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if revealed {
		m.Reveal(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	}
	return m
}

func TestShapeMatch_NeverLeaksScore(t *testing.T) {
	for _, revealed := range []bool{false, true} {
		for _, st := range []MatchStatus{MatchStatusNew, MatchStatusViewed, MatchStatusInterested, MatchStatusDismissed} {
			out := shapedJSON(t, fullMatch(revealed, st))
			for k := range out {
				lk := strings.ToLower(k)
				if strings.Contains(lk, "score") || strings.Contains(lk, "breakdown") {
					t.Errorf("revealed=%v status=%s: field %q must never be exposed", revealed, st, k)
				}
			}
		}
	}
}

func TestShapeMatch_PrivilegedFieldsFollowRevealFlag(t *testing.T) {
	t.Run("hidden while not revealed", func(t *testing.T) {
		out := shapedJSON(t, fullMatch(false, MatchStatusViewed))
		for _, k := range []string{"tradeData", "counterpartyContact", "revealedAt"} {
			v, ok := out[k]
			if !ok {
				t.Errorf("%s must be present as null", k)
			}
			if v != nil {
				t.Errorf("%s must be null before reveal, got %v", k, v)
			}
		}
		if out["revealed"] != false {
			t.Error("revealed must be false")
		}
	})

	t.Run("present once revealed", func(t *testing.T) {
		out := shapedJSON(t, fullMatch(true, MatchStatusViewed))
		contact, ok := out["counterpartyContact"].(map[string]any)
		if !ok || contact["email"] != "ann@acme.example" || contact["website"] != "https://acme.example" {
			t.Errorf("unexpected contact %v", out["counterpartyContact"])
		}
		trade, ok := out["tradeData"].(map[string]any)
		if !ok || trade["yearsActive"] != float64(12) {
			t.Errorf("unexpected trade data %v", out["tradeData"])
		}
	})

	t.Run("shaped copy does not alias the stored match", func(t *testing.T) {
		m := fullMatch(true, MatchStatusNew)
		ext := ShapeMatch(m)
		*ext.City = "Berlin"
		ext.MatchReasons[0] = "changed"
		*ext.CounterpartyContact.Website = "x"
		if *m.City != "Hamburg" || m.Reasons[0] != "overlap" || *m.Contact.Website != "https://acme.example" {
			t.Error("shaper must deep-copy mutable fields")
		}
	})

	t.Run("nil slices become empty arrays", func(t *testing.T) {
		m := fullMatch(false, MatchStatusNew)
		m.Warnings = nil
		out := shapedJSON(t, m)
		if w, ok := out["warnings"].([]any); !ok || len(w) != 0 {
			t.Errorf("warnings = %v, want []", out["warnings"])
		}
	})
}

// --- Reveal ledger / usage Tests ---

func TestMonthKey(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC), "2026-02"},
		{time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC), "2026-01"},
		// 2026-02-01 00:30 in UTC+2 is still January in UTC.
		{time.Date(2026, 2, 1, 0, 30, 0, 0, time.FixedZone("EET", 2*3600)), "2026-01"},
	}
	for _, tt := range tests {
		if got := MonthKey(tt.in); got != tt.want {
			t.Errorf("MonthKey(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNewRevealLedgerEntry(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	e, err := NewRevealLedgerEntry("o1", "m1", at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == "" || e.MonthKey != "2026-02" || !e.CreatedAt.Equal(at) {
		t.Errorf("unexpected entry %+v", e)
	}
	if _, err := NewRevealLedgerEntry("", "m1", at); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := NewRevealLedgerEntry("o1", "m1", time.Time{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero time, got %v", err)
	}
}

func TestRevealUsage(t *testing.T) {
	free := &Plan{Tier: PlanTierFree, MonthlyReveals: 3}
	u := NewRevealUsage(free, "2026-02", 2)
	if u.Remaining() != 1 || u.Exhausted() {
		t.Errorf("unexpected %+v", u)
	}
	u = NewRevealUsage(free, "2026-02", 3)
	if u.Remaining() != 0 || !u.Exhausted() {
		t.Errorf("unexpected %+v", u)
	}
	// Allowance lowered mid-month.
	u = NewRevealUsage(free, "2026-02", 5)
	if u.Remaining() != 0 {
		t.Errorf("remaining must clamp at zero, got %d", u.Remaining())
	}
	u = NewRevealUsage(&Plan{Tier: PlanTierPro, Unlimited: true}, "2026-02", 50)
	if !u.Unlimited || u.Exhausted() || u.Remaining() != -1 {
		t.Errorf("unexpected unlimited usage %+v", u)
	}
}

// --- Plan Tests ---

func TestPlanCatalog(t *testing.T) {
	c := DefaultPlanCatalog()
	if p := c.Resolve(PlanTierFree); p.Unlimited || p.MonthlyReveals != 3 {
		t.Errorf("unexpected free plan %+v", p)
	}
	if p := c.Resolve("PRO"); !p.Unlimited {
		t.Errorf("pro must be unlimited, got %+v", p)
	}
	if p := c.Resolve("platinum"); p.Tier != PlanTierFree {
		t.Errorf("unknown tier must resolve to free, got %+v", p)
	}

	limited, err := NewPlan("starter", "Starter", 10, false)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	c = NewPlanCatalog(5, limited)
	if p := c.Resolve("starter"); p.MonthlyReveals != 10 {
		t.Errorf("unexpected starter plan %+v", p)
	}
	if p := c.Resolve(""); p.MonthlyReveals != 5 {
		t.Errorf("free allowance must be configurable, got %+v", p)
	}
	if _, err := NewPlan("", "x", 1, false); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

// --- Query Tests ---

func TestNewMatchQuery(t *testing.T) {
	q, err := NewMatchQuery(MatchFilter{Country: " DE "}, "", 0, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Page != 1 || q.Limit != DefaultMatchPageSize || q.Sort != MatchSortRelevance || q.Country != "DE" {
		t.Errorf("unexpected defaults %+v", q)
	}

	q, _ = NewMatchQuery(MatchFilter{}, MatchSortRecent, 3, 1000, 0)
	if q.Limit != MaxMatchPageSize || q.Offset() != 200 {
		t.Errorf("limit must clamp to %d, got %+v offset %d", MaxMatchPageSize, q, q.Offset())
	}

	for _, bad := range []struct {
		f    MatchFilter
		sort MatchSort
	}{
		{MatchFilter{Tier: "platinum"}, ""},
		{MatchFilter{Status: "archived"}, ""},
		{MatchFilter{}, "price"},
	} {
		if _, err := NewMatchQuery(bad.f, bad.sort, 1, 10, 0); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("%+v/%s: expected ErrInvalidArgument, got %v", bad.f, bad.sort, err)
		}
	}

	if TotalPages(0, 20) != 0 || TotalPages(41, 20) != 3 || TotalPages(40, 20) != 2 {
		t.Error("TotalPages must be ceil(total/limit)")
	}
}

func TestNewMatchQuery_PageBounds(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		wantErr    bool
		wantOffset int
	}{
		{"first page", 1, 100, false, 0},
		{"largest page that fits", math.MaxInt/100 + 1, 100, false, (math.MaxInt / 100) * 100},
		{"offset overflows", 1e17, 100, true, 0},
		{"max int page", math.MaxInt, 1, false, math.MaxInt - 1},
		{"max int page large limit", math.MaxInt, 20, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewMatchQuery(MatchFilter{}, "", tt.page, tt.limit, 100)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Offset() != tt.wantOffset || q.Offset() < 0 {
				t.Errorf("Offset = %d, want %d", q.Offset(), tt.wantOffset)
			}
		})
	}
}

func TestNewProfile(t *testing.T) {
	p, err := NewProfile("u1", " Acme ", "DE", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Plan != PlanTierFree || p.CompanyName != "Acme" {
		t.Errorf("unexpected profile %+v", p)
	}
	if _, err := NewProfile("", "Acme", "DE", PlanTierPro); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
