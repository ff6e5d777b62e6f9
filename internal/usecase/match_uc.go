package usecase

import (
	"context"
	"errors"
	"fmt"

	"tradematch/internal/domain"
	"tradematch/internal/domain/model"
	"tradematch/internal/domain/ports/repository"
	"tradematch/internal/infra/logging"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Compile-time check
var _ MatchUseCase = (*matchUC)(nil)

// MatchPage is one page of an owner's shaped matches.
type MatchPage struct {
	Matches    []*model.ExternalMatch
	Total      int
	Page       int
	TotalPages int
}

// MatchUseCase exposes the read paths and the status state machine for matches.
// Every result is shaped with model.ShapeMatch.
type MatchUseCase interface {
	// Get returns one match and moves it from new to viewed.
	Get(ctx context.Context, ownerID, matchID string) (*model.ExternalMatch, error)
	// List never changes status.
	List(ctx context.Context, ownerID string, q model.MatchQuery) (*MatchPage, error)
	SetStatus(ctx context.Context, ownerID, matchID string, target model.MatchStatus) (model.MatchStatus, error)
}

// maxStatusAttempts bounds compare-and-set retries when a concurrent writer
// changed the status between our read and our update.
const maxStatusAttempts = 3

type matchUC struct {
	matches repository.MatchRepository
	log     *zerolog.Logger
}

func NewMatchUseCase(matches repository.MatchRepository, logger *zerolog.Logger) MatchUseCase {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "MatchUC").Logger()
	return &matchUC{matches: matches, log: &l}
}

func (uc *matchUC) Get(ctx context.Context, ownerID, matchID string) (*model.ExternalMatch, error) {
	defer logging.TraceDuration(uc.log, "MatchUC.Get")()
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}

	m, err := uc.matches.FindByIDForOwner(ctx, repository.NoTX, ownerID, matchID)
	if err != nil {
		return nil, err
	}

	if m.MarkViewed() {
		ok, err := uc.matches.UpdateStatus(ctx, repository.NoTX, ownerID, matchID, model.MatchStatusNew, model.MatchStatusViewed)
		switch {
		case err != nil:
			// The read still succeeds; the view is recorded on the next read.
			logging.With(ctx, uc.log).Warn().Err(err).Str("match_id", matchID).Msg("mark viewed failed")
			m.Status = model.MatchStatusNew
		case !ok:
			// Someone else moved it first; report what is stored.
			if fresh, ferr := uc.matches.FindByIDForOwner(ctx, repository.NoTX, ownerID, matchID); ferr == nil {
				m = fresh
			}
		}
	}
	return model.ShapeMatch(m), nil
}

func (uc *matchUC) List(ctx context.Context, ownerID string, q model.MatchQuery) (*MatchPage, error) {
	defer logging.TraceDuration(uc.log, "MatchUC.List")()
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if q.Page < 1 || q.Limit < 1 {
		return nil, domain.ErrInvalidArgument
	}

	var (
		rows  []*model.Match
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = uc.matches.ListByOwner(gctx, repository.NoTX, ownerID, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = uc.matches.CountByOwner(gctx, repository.NoTX, ownerID, q.MatchFilter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &MatchPage{
		Matches:    model.ShapeMatches(rows),
		Total:      total,
		Page:       q.Page,
		TotalPages: model.TotalPages(total, q.Limit),
	}, nil
}

func (uc *matchUC) SetStatus(ctx context.Context, ownerID, matchID string, target model.MatchStatus) (model.MatchStatus, error) {
	defer logging.TraceDuration(uc.log, "MatchUC.SetStatus")()
	if ownerID == "" {
		return "", domain.ErrUnauthorized
	}
	if target != model.MatchStatusInterested && target != model.MatchStatusDismissed {
		return "", domain.ErrInvalidArgument
	}

	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		m, err := uc.matches.FindByIDForOwner(ctx, repository.NoTX, ownerID, matchID)
		if err != nil {
			return "", err
		}
		from := m.Status
		changed, err := m.SetStatus(target)
		if err != nil {
			return "", err
		}
		if !changed {
			return m.Status, nil
		}

		ok, err := uc.matches.UpdateStatus(ctx, repository.NoTX, ownerID, matchID, from, target)
		if err != nil {
			return "", err
		}
		if ok {
			logging.With(ctx, uc.log).Info().
				Str("match_id", matchID).
				Str("from", string(from)).
				Str("to", string(target)).
				Msg("match status changed")
			return target, nil
		}
	}
	return "", fmt.Errorf("%w: status of match %s kept changing", domain.ErrOperationFailed, matchID)
}

// isNotFound keeps "absent" and "not yours" indistinguishable for callers.
func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }
