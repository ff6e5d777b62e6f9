package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tradematch/internal/domain"
	"tradematch/internal/domain/model"
	"tradematch/internal/domain/ports/repository"
)

var _ repository.RevealLedgerRepository = (*revealLedgerRepo)(nil)

type revealLedgerRepo struct {
	pool *pgxpool.Pool
}

func NewRevealLedgerRepo(pool *pgxpool.Pool) *revealLedgerRepo {
	return &revealLedgerRepo{pool: pool}
}

// Insert relies on uq_reveal_ledger_owner_match; a second reveal of the same
// match surfaces as domain.ErrAlreadyExists.
func (r *revealLedgerRepo) Insert(ctx context.Context, tx repository.Tx, e *model.RevealLedgerEntry) error {
	if e == nil || e.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO reveal_ledger (id, owner_id, match_id, month_key, created_at)
VALUES ($1,$2,$3,$4,$5);`
	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.OwnerID, e.MatchID, e.MonthKey, e.CreatedAt)
	return err
}

func (r *revealLedgerRepo) CountForMonth(ctx context.Context, tx repository.Tx, ownerID, monthKey string) (int, error) {
	const q = `SELECT COUNT(*) FROM reveal_ledger WHERE owner_id=$1 AND month_key=$2;`
	return r.count(ctx, tx, q, ownerID, monthKey)
}

func (r *revealLedgerRepo) CountForMatch(ctx context.Context, tx repository.Tx, ownerID, matchID string) (int, error) {
	const q = `SELECT COUNT(*) FROM reveal_ledger WHERE owner_id=$1 AND match_id=$2;`
	return r.count(ctx, tx, q, ownerID, matchID)
}

// LockOwner takes a transaction-scoped advisory lock keyed by owner. It needs a
// real transaction; on the bare pool the lock would be released immediately.
func (r *revealLedgerRepo) LockOwner(ctx context.Context, tx repository.Tx, ownerID string) error {
	if _, ok := tx.(pgx.Tx); !ok {
		return domain.ErrInvalidExecContext
	}
	_, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1)`, hashToInt64("reveal:"+ownerID))
	return err
}

func (r *revealLedgerRepo) count(ctx context.Context, tx repository.Tx, q string, args ...any) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, scanErr(err)
	}
	return n, nil
}
