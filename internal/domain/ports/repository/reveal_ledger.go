package repository

import (
	"context"

	"tradematch/internal/domain/model"
)

// -----------------------------
// Reveal ledger
// -----------------------------

// RevealLedgerRepository is the append-only audit trail that monthly reveal
// quota is derived from.
type RevealLedgerRepository interface {
	// Insert appends an entry. A second entry for the same (owner, match)
	// returns domain.ErrAlreadyExists.
	Insert(ctx context.Context, tx Tx, e *model.RevealLedgerEntry) error
	CountForMonth(ctx context.Context, tx Tx, ownerID, monthKey string) (int, error)
	CountForMatch(ctx context.Context, tx Tx, ownerID, matchID string) (int, error)
	// LockOwner serializes quota decisions for one owner until tx ends.
	LockOwner(ctx context.Context, tx Tx, ownerID string) error
}
