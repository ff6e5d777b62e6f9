package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradematch/internal/domain"
	"tradematch/internal/domain/model"
	"tradematch/internal/domain/ports/repository"
	"tradematch/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// Compile-time check
var _ RevealUseCase = (*revealUC)(nil)

// RevealResult is the shaped match after a reveal plus the caller's usage for
// the current month. Granted is false when the match had already been revealed.
type RevealResult struct {
	Match   *model.ExternalMatch
	Usage   model.RevealUsage
	Granted bool
}

// RevealUseCase unlocks a match's privileged fields, charging the owner's
// monthly allowance exactly once per match.
type RevealUseCase interface {
	Reveal(ctx context.Context, ownerID, matchID string) (*RevealResult, error)
	Usage(ctx context.Context, ownerID string) (model.RevealUsage, error)
}

const (
	defaultRevealRetries   = 3
	defaultRevealRetryBase = 25 * time.Millisecond
)

type RevealOption func(*revealUC)

// WithClock overrides the wall clock used to derive month-keys.
func WithClock(now func() time.Time) RevealOption {
	return func(uc *revealUC) {
		if now != nil {
			uc.now = now
		}
	}
}

// WithRetry bounds how often a transient storage failure on the reveal write is retried.
func WithRetry(retries uint64, base time.Duration) RevealOption {
	return func(uc *revealUC) {
		uc.retries = retries
		if base > 0 {
			uc.retryBase = base
		}
	}
}

type revealUC struct {
	matches  repository.MatchRepository
	ledger   repository.RevealLedgerRepository
	profiles repository.ProfileRepository
	plans    *model.PlanCatalog
	tm       repository.TransactionManager
	log      *zerolog.Logger

	now       func() time.Time
	retries   uint64
	retryBase time.Duration
}

func NewRevealUseCase(
	matches repository.MatchRepository,
	ledger repository.RevealLedgerRepository,
	profiles repository.ProfileRepository,
	plans *model.PlanCatalog,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
	opts ...RevealOption,
) RevealUseCase {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if plans == nil {
		plans = model.DefaultPlanCatalog()
	}
	l := logger.With().Str("component", "RevealUC").Logger()
	uc := &revealUC{
		matches:   matches,
		ledger:    ledger,
		profiles:  profiles,
		plans:     plans,
		tm:        tm,
		log:       &l,
		now:       time.Now,
		retries:   defaultRevealRetries,
		retryBase: defaultRevealRetryBase,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Reveal runs ownership check, idempotency check, quota check and the atomic
// flag flip + ledger insert. A caller that loses a race against a concurrent
// reveal of the same match gets the idempotent result, not an error.
func (uc *revealUC) Reveal(ctx context.Context, ownerID, matchID string) (*RevealResult, error) {
	defer logging.TraceDuration(uc.log, "RevealUC.Reveal")()
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	l := logging.With(ctx, uc.log).With().Str("match_id", matchID).Logger()

	m, err := uc.matches.FindByIDForOwner(ctx, repository.NoTX, ownerID, matchID)
	if err != nil {
		return nil, err
	}
	plan, err := uc.planFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	monthKey := model.MonthKey(now)
	if m.Revealed {
		return uc.result(ctx, ownerID, matchID, m, plan, monthKey, false)
	}

	var granted bool
	err = uc.withRetry(ctx, l, func(ctx context.Context) error {
		granted = false
		return uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
			if !plan.Unlimited {
				// Serializes quota decisions across different matches of the same owner.
				if err := uc.ledger.LockOwner(ctx, tx, ownerID); err != nil {
					return err
				}
			}

			// Conditional flip first: a concurrent reveal of the same match either
			// already committed (no row changes) or blocks until it does.
			flipped, err := uc.matches.MarkRevealed(ctx, tx, ownerID, matchID)
			if err != nil {
				return err
			}
			if !flipped {
				return nil
			}

			if !plan.Unlimited {
				used, err := uc.ledger.CountForMonth(ctx, tx, ownerID, monthKey)
				if err != nil {
					return err
				}
				if model.NewRevealUsage(plan, monthKey, used).Exhausted() {
					return &domain.QuotaExceededError{Used: used, Total: plan.MonthlyReveals}
				}
			}

			entry, err := model.NewRevealLedgerEntry(ownerID, matchID, now)
			if err != nil {
				return err
			}
			if err := uc.ledger.Insert(ctx, tx, entry); err != nil {
				return err
			}
			granted = true
			return nil
		})
	})
	if err != nil {
		var qe *domain.QuotaExceededError
		switch {
		case errors.As(err, &qe):
			l.Info().Int("used", qe.Used).Int("total", qe.Total).Msg("reveal refused: quota exceeded")
			return nil, qe
		case errors.Is(err, domain.ErrNotFound):
			return nil, err
		case errors.Is(err, domain.ErrTransient):
			l.Error().Err(err).Msg("reveal write failed after retries")
			return nil, fmt.Errorf("%w: reveal match %s: %v", domain.ErrOperationFailed, matchID, err)
		default:
			l.Error().Err(err).Msg("reveal write failed")
			return nil, err
		}
	}

	if granted {
		l.Info().Str("month", monthKey).Str("plan", string(plan.Tier)).Msg("match revealed")
	} else {
		l.Debug().Msg("reveal lost race; serving idempotent result")
	}
	return uc.result(ctx, ownerID, matchID, nil, plan, monthKey, granted)
}

// Usage reports the owner's reveal consumption for the current month-key.
func (uc *revealUC) Usage(ctx context.Context, ownerID string) (model.RevealUsage, error) {
	if ownerID == "" {
		return model.RevealUsage{}, domain.ErrUnauthorized
	}
	plan, err := uc.planFor(ctx, ownerID)
	if err != nil {
		return model.RevealUsage{}, err
	}
	return uc.usage(ctx, ownerID, plan, model.MonthKey(uc.now()))
}

// result re-reads the match when m is nil so the response reflects the stored,
// revealed record.
func (uc *revealUC) result(ctx context.Context, ownerID, matchID string, m *model.Match, plan *model.Plan, monthKey string, granted bool) (*RevealResult, error) {
	if m == nil {
		var err error
		m, err = uc.matches.FindByIDForOwner(ctx, repository.NoTX, ownerID, matchID)
		if err != nil {
			return nil, err
		}
	}
	usage, err := uc.usage(ctx, ownerID, plan, monthKey)
	if err != nil {
		return nil, err
	}
	return &RevealResult{Match: model.ShapeMatch(m), Usage: usage, Granted: granted}, nil
}

func (uc *revealUC) usage(ctx context.Context, ownerID string, plan *model.Plan, monthKey string) (model.RevealUsage, error) {
	used, err := uc.ledger.CountForMonth(ctx, repository.NoTX, ownerID, monthKey)
	if err != nil {
		return model.RevealUsage{}, err
	}
	return model.NewRevealUsage(plan, monthKey, used), nil
}

func (uc *revealUC) planFor(ctx context.Context, ownerID string) (*model.Plan, error) {
	p, err := uc.profiles.FindByUserID(ctx, repository.NoTX, ownerID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrProfileNotFound, ownerID)
		}
		return nil, err
	}
	return uc.plans.Resolve(p.Plan), nil
}

func (uc *revealUC) withRetry(ctx context.Context, l zerolog.Logger, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(uc.retries, retry.NewExponential(uc.retryBase))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if errors.Is(err, domain.ErrTransient) {
			l.Warn().Err(err).Int("attempt", attempt).Msg("transient storage error; retrying reveal")
			return retry.RetryableError(err)
		}
		return err
	})
}
