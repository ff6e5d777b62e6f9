//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"tradematch/internal/domain"
	"tradematch/internal/domain/model"
	"tradematch/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// -----------------------------
// In-memory store shared by the repos below
// -----------------------------

type memStore struct {
	mu       sync.Mutex
	matches  map[string]*model.Match
	ledger   []model.RevealLedgerEntry
	profiles map[string]*model.Profile
	now      func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		matches:  map[string]*model.Match{},
		profiles: map[string]*model.Profile{},
		now:      time.Now,
	}
}

type memSnapshot struct {
	matches map[string]model.Match
	ledger  []model.RevealLedgerEntry
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{matches: make(map[string]model.Match, len(s.matches))}
	for id, m := range s.matches {
		snap.matches[id] = *m
	}
	snap.ledger = append([]model.RevealLedgerEntry(nil), s.ledger...)
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = make(map[string]*model.Match, len(snap.matches))
	for id, m := range snap.matches {
		cp := m
		s.matches[id] = &cp
	}
	s.ledger = snap.ledger
}

func (s *memStore) ledgerCount(ownerID, matchID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.ledger {
		if e.OwnerID == ownerID && (matchID == "" || e.MatchID == matchID) {
			n++
		}
	}
	return n
}

func (s *memStore) match(id string) model.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.matches[id]
}

// -----------------------------
// Transactions
// -----------------------------

type memTx struct{}

// memTxManager serializes transactions (standing in for row and advisory
// locks) and restores the store when fn fails.
type memTxManager struct {
	store *memStore
	txMu  sync.Mutex
	calls int
}

var _ repository.TransactionManager = (*memTxManager)(nil)

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.calls++
	snap := m.store.snapshot()
	if err := fn(ctx, memTx{}); err != nil {
		m.store.restore(snap)
		return err
	}
	if err := ctx.Err(); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// -----------------------------
// Matches
// -----------------------------

type memMatchRepo struct {
	store *memStore

	// markRevealedErrs are returned, in order, by the next MarkRevealed calls.
	markRevealedErrs []error
	updateStatusErr  error
	listErr          error
}

var _ repository.MatchRepository = (*memMatchRepo)(nil)

func (r *memMatchRepo) Save(ctx context.Context, tx repository.Tx, m *model.Match) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *m
	r.store.matches[m.ID] = &cp
	return nil
}

func (r *memMatchRepo) FindByIDForOwner(ctx context.Context, tx repository.Tx, ownerID, matchID string) (*model.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.matches[matchID]
	if !ok || m.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMatchRepo) filtered(ownerID string, f model.MatchFilter) []*model.Match {
	var out []*model.Match
	for _, m := range r.store.matches {
		if m.OwnerID != ownerID {
			continue
		}
		if f.Tier != "" && m.Tier != f.Tier {
			continue
		}
		if f.Country != "" && !strings.EqualFold(m.Country, f.Country) {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out
}

func (r *memMatchRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, q model.MatchQuery) ([]*model.Match, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rows := r.filtered(ownerID, q.MatchFilter)
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if q.Sort != model.MatchSortRecent && a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	start := q.Offset()
	if start >= len(rows) {
		return []*model.Match{}, nil
	}
	end := start + q.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], nil
}

func (r *memMatchRepo) CountByOwner(ctx context.Context, tx repository.Tx, ownerID string, f model.MatchFilter) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.filtered(ownerID, f)), nil
}

func (r *memMatchRepo) UpdateStatus(ctx context.Context, tx repository.Tx, ownerID, matchID string, from, to model.MatchStatus) (bool, error) {
	if r.updateStatusErr != nil {
		return false, r.updateStatusErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.matches[matchID]
	if !ok || m.OwnerID != ownerID || m.Status != from {
		return false, nil
	}
	m.Status = to
	m.UpdatedAt = r.store.now()
	return true, nil
}

func (r *memMatchRepo) MarkRevealed(ctx context.Context, tx repository.Tx, ownerID, matchID string) (bool, error) {
	if len(r.markRevealedErrs) > 0 {
		err := r.markRevealedErrs[0]
		r.markRevealedErrs = r.markRevealedErrs[1:]
		if err != nil {
			return false, err
		}
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.matches[matchID]
	if !ok || m.OwnerID != ownerID {
		return false, nil
	}
	return m.Reveal(r.store.now()), nil
}

func (r *memMatchRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.MatchStatus]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := map[model.MatchStatus]int{}
	for _, m := range r.store.matches {
		out[m.Status]++
	}
	return out, nil
}

// -----------------------------
// Ledger
// -----------------------------

type memLedgerRepo struct {
	store    *memStore
	lockCall int
}

var _ repository.RevealLedgerRepository = (*memLedgerRepo)(nil)

func (r *memLedgerRepo) Insert(ctx context.Context, tx repository.Tx, e *model.RevealLedgerEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, x := range r.store.ledger {
		if x.OwnerID == e.OwnerID && x.MatchID == e.MatchID {
			return domain.ErrAlreadyExists
		}
	}
	r.store.ledger = append(r.store.ledger, *e)
	return nil
}

func (r *memLedgerRepo) CountForMonth(ctx context.Context, tx repository.Tx, ownerID, monthKey string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for _, e := range r.store.ledger {
		if e.OwnerID == ownerID && e.MonthKey == monthKey {
			n++
		}
	}
	return n, nil
}

func (r *memLedgerRepo) CountForMatch(ctx context.Context, tx repository.Tx, ownerID, matchID string) (int, error) {
	return r.store.ledgerCount(ownerID, matchID), nil
}

func (r *memLedgerRepo) LockOwner(ctx context.Context, tx repository.Tx, ownerID string) error {
	if tx == nil {
		return domain.ErrInvalidExecContext
	}
	r.store.mu.Lock()
	r.lockCall++
	r.store.mu.Unlock()
	return nil
}

// -----------------------------
// Profiles
// -----------------------------

type memProfileRepo struct {
	store *memStore
	err   error
}

var _ repository.ProfileRepository = (*memProfileRepo)(nil)

func (r *memProfileRepo) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *p
	r.store.profiles[p.UserID] = &cp
	return nil
}

func (r *memProfileRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// -----------------------------
// Fixtures
// -----------------------------

type fixture struct {
	store    *memStore
	matches  *memMatchRepo
	ledger   *memLedgerRepo
	profiles *memProfileRepo
	tm       *memTxManager
}

func newFixture() *fixture {
	s := newMemStore()
	return &fixture{
		store:    s,
		matches:  &memMatchRepo{store: s},
		ledger:   &memLedgerRepo{store: s},
		profiles: &memProfileRepo{store: s},
		tm:       &memTxManager{store: s},
	}
}

func (f *fixture) addProfile(userID string, plan model.PlanTier) {
	p, err := model.NewProfile(userID, "Acme "+userID, "DE", plan)
	if err != nil {
		panic(err)
	}
	_ = f.profiles.Save(context.Background(), repository.NoTX, p)
}

// addMatch stores a match with privileged fields populated.
func (f *fixture) addMatch(id, ownerID string, tier model.MatchTier, country string, score float64, createdAt time.Time) *model.Match {
	m, err := model.NewMatch(id, ownerID, "Counterparty "+id, country, tier, score)
	if err != nil {
		panic(err)
	}
	site := "https://example.com/" + id
	m.Products = []model.ProductRef{{Code: "0901", Name: "Coffee"}}
	m.Reasons = []string{"product overlap"}
	m.Breakdown = model.ScoreBreakdown{ProductOverlap: 0.5, VolumeFit: 0.2, GeographyFit: 0.1, Reliability: 0.2}
	m.TradeData = &model.TradeData{Volume: "500t", Frequency: "monthly", YearsActive: 7}
	m.Contact = &model.CounterpartyContact{Name: "Jo", Email: "jo@" + id + ".example", Phone: "+49 1", Website: &site, Title: "Buyer"}
	m.CreatedAt = createdAt
	m.UpdatedAt = createdAt
	_ = f.matches.Save(context.Background(), repository.NoTX, m)
	return m
}

func (f *fixture) addLedger(ownerID, matchID string, at time.Time) {
	e, err := model.NewRevealLedgerEntry(ownerID, matchID, at)
	if err != nil {
		panic(err)
	}
	if err := f.ledger.Insert(context.Background(), repository.NoTX, e); err != nil {
		panic(err)
	}
}

var errBoom = errors.New("boom")
