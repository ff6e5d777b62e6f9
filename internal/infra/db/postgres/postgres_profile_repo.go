package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"tradematch/internal/domain"
	"tradematch/internal/domain/model"
	"tradematch/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *profileRepo {
	return &profileRepo{pool: pool}
}

func (r *profileRepo) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	if p.IsZero() {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO profiles (user_id, company_name, country, plan, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (user_id) DO UPDATE SET
  company_name=EXCLUDED.company_name,
  country=EXCLUDED.country,
  plan=EXCLUDED.plan,
  updated_at=EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q, p.UserID, p.CompanyName, p.Country, string(p.Plan), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *profileRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	const q = `
SELECT user_id, company_name, country, plan, created_at, updated_at
  FROM profiles WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	var (
		p    model.Profile
		plan string
	)
	if err := row.Scan(&p.UserID, &p.CompanyName, &p.Country, &plan, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	p.Plan = model.PlanTier(plan)
	return &p, nil
}
