package repository

import (
	"context"

	"tradematch/internal/domain/model"
)

// -----------------------------
// Matches
// -----------------------------

// MatchRepository reads and writes match records. Every read and mutation is
// scoped by owner: a match that exists but belongs to someone else is
// reported as domain.ErrNotFound.
type MatchRepository interface {
	// Save inserts or replaces a match; used by the upstream producer and seeding.
	Save(ctx context.Context, tx Tx, m *model.Match) error
	FindByIDForOwner(ctx context.Context, tx Tx, ownerID, matchID string) (*model.Match, error)
	ListByOwner(ctx context.Context, tx Tx, ownerID string, q model.MatchQuery) ([]*model.Match, error)
	CountByOwner(ctx context.Context, tx Tx, ownerID string, f model.MatchFilter) (int, error)

	// UpdateStatus is a compare-and-set: it changes status only while the stored
	// value is still `from` and reports whether a row changed.
	UpdateStatus(ctx context.Context, tx Tx, ownerID, matchID string, from, to model.MatchStatus) (bool, error)
	// MarkRevealed flips revealed=false to true and reports whether this call
	// performed the flip.
	MarkRevealed(ctx context.Context, tx Tx, ownerID, matchID string) (bool, error)

	CountByStatus(ctx context.Context, tx Tx) (map[model.MatchStatus]int, error)
}
