package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tradematch/internal/domain"
	"tradematch/internal/domain/model"
	"tradematch/internal/domain/ports/repository"
)

var _ repository.MatchRepository = (*matchRepo)(nil)

// FieldSealer encrypts a column value bound to its row key.
type FieldSealer interface {
	Seal(plaintext, aad []byte) (string, error)
	Open(sealed string, aad []byte) ([]byte, error)
}

type matchRepo struct {
	pool   *pgxpool.Pool
	sealer FieldSealer
}

type MatchRepoOption func(*matchRepo)

// WithContactSealer stores counterparty_contact as a sealed JSON string.
// Rows written before the sealer was configured still read as plain documents.
func WithContactSealer(s FieldSealer) MatchRepoOption {
	return func(r *matchRepo) { r.sealer = s }
}

func NewMatchRepo(pool *pgxpool.Pool, opts ...MatchRepoOption) *matchRepo {
	r := &matchRepo{pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONB column shapes. Kept separate from the domain types so a field rename in
// the model never silently changes stored documents.
type productDoc struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type breakdownDoc struct {
	ProductOverlap float64 `json:"product_overlap"`
	VolumeFit      float64 `json:"volume_fit"`
	GeographyFit   float64 `json:"geography_fit"`
	Reliability    float64 `json:"reliability"`
}

type tradeDataDoc struct {
	Volume      string `json:"volume"`
	Frequency   string `json:"frequency"`
	YearsActive int    `json:"years_active"`
}

type contactDoc struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Website *string `json:"website,omitempty"`
	Title   string  `json:"title"`
}

const matchColumns = `
  id, owner_id, counterparty_name, country, city, products, tier,
  match_reasons, warnings, match_score, score_breakdown, status,
  revealed, revealed_at, trade_data, counterparty_contact, created_at, updated_at`

func (r *matchRepo) Save(ctx context.Context, tx repository.Tx, m *model.Match) error {
	if m == nil || m.ID == "" || m.OwnerID == "" {
		return domain.ErrInvalidArgument
	}
	docs, err := encodeMatchDocs(m, r.sealer)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO matches (` + matchColumns + `
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
) ON CONFLICT (id) DO UPDATE SET
  counterparty_name=EXCLUDED.counterparty_name,
  country=EXCLUDED.country,
  city=EXCLUDED.city,
  products=EXCLUDED.products,
  tier=EXCLUDED.tier,
  match_reasons=EXCLUDED.match_reasons,
  warnings=EXCLUDED.warnings,
  match_score=EXCLUDED.match_score,
  score_breakdown=EXCLUDED.score_breakdown,
  trade_data=EXCLUDED.trade_data,
  counterparty_contact=EXCLUDED.counterparty_contact,
  updated_at=EXCLUDED.updated_at
WHERE matches.owner_id = EXCLUDED.owner_id;`
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	_, err = execSQL(ctx, r.pool, tx, q,
		m.ID, m.OwnerID, m.CounterpartyName, m.Country, m.City, docs.products, string(m.Tier),
		docs.reasons, docs.warnings, m.Score, docs.breakdown, string(m.Status),
		m.Revealed, m.RevealedAt, docs.tradeData, docs.contact, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

func (r *matchRepo) FindByIDForOwner(ctx context.Context, tx repository.Tx, ownerID, matchID string) (*model.Match, error) {
	if ownerID == "" || matchID == "" {
		return nil, domain.ErrNotFound
	}
	q := `SELECT` + matchColumns + `
  FROM matches WHERE id=$1 AND owner_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, matchID, ownerID)
	if err != nil {
		return nil, err
	}
	return scanMatch(row, r.sealer)
}

func (r *matchRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, mq model.MatchQuery) ([]*model.Match, error) {
	where, args := matchWhere(ownerID, mq.MatchFilter)
	args = append(args, mq.Limit, mq.Offset())
	q := fmt.Sprintf(`SELECT%s
  FROM matches
 WHERE %s
 ORDER BY %s
 LIMIT $%d OFFSET $%d;`, matchColumns, where, matchOrder(mq.Sort), len(args)-1, len(args))

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Match, 0, mq.Limit)
	for rows.Next() {
		m, err := scanMatch(rows, r.sealer)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func (r *matchRepo) CountByOwner(ctx context.Context, tx repository.Tx, ownerID string, f model.MatchFilter) (int, error) {
	where, args := matchWhere(ownerID, f)
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM matches WHERE `+where, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, scanErr(err)
	}
	return n, nil
}

func (r *matchRepo) UpdateStatus(ctx context.Context, tx repository.Tx, ownerID, matchID string, from, to model.MatchStatus) (bool, error) {
	const q = `
UPDATE matches SET status=$4, updated_at=NOW()
 WHERE id=$1 AND owner_id=$2 AND status=$3;`
	tag, err := execSQL(ctx, r.pool, tx, q, matchID, ownerID, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *matchRepo) MarkRevealed(ctx context.Context, tx repository.Tx, ownerID, matchID string) (bool, error) {
	const q = `
UPDATE matches SET revealed=TRUE, revealed_at=NOW(), updated_at=NOW()
 WHERE id=$1 AND owner_id=$2 AND revealed=FALSE;`
	tag, err := execSQL(ctx, r.pool, tx, q, matchID, ownerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *matchRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.MatchStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM matches GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.MatchStatus]int{
		model.MatchStatusNew:        0,
		model.MatchStatusViewed:     0,
		model.MatchStatusInterested: 0,
		model.MatchStatusDismissed:  0,
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, scanErr(err)
		}
		out[model.MatchStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

// --- helpers ---

func matchWhere(ownerID string, f model.MatchFilter) (string, []any) {
	conds := []string{"owner_id = $1"}
	args := []any{ownerID}
	if f.Tier != "" {
		args = append(args, string(f.Tier))
		conds = append(conds, fmt.Sprintf("tier = $%d", len(args)))
	}
	if f.Country != "" {
		args = append(args, f.Country)
		conds = append(conds, fmt.Sprintf("lower(country) = lower($%d)", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

// matchOrder always ends in id so paging is stable across equal keys.
func matchOrder(s model.MatchSort) string {
	if s == model.MatchSortRecent {
		return "created_at DESC, id ASC"
	}
	return "match_score DESC, created_at DESC, id ASC"
}

type matchDocs struct {
	products, reasons, warnings, breakdown []byte
	tradeData, contact                     []byte
}

func encodeMatchDocs(m *model.Match, sealer FieldSealer) (*matchDocs, error) {
	var (
		d   matchDocs
		err error
	)
	products := make([]productDoc, 0, len(m.Products))
	for _, p := range m.Products {
		products = append(products, productDoc{Code: p.Code, Name: p.Name})
	}
	if d.products, err = json.Marshal(products); err != nil {
		return nil, err
	}
	if d.reasons, err = json.Marshal(nonNil(m.Reasons)); err != nil {
		return nil, err
	}
	if d.warnings, err = json.Marshal(nonNil(m.Warnings)); err != nil {
		return nil, err
	}
	if d.breakdown, err = json.Marshal(breakdownDoc{
		ProductOverlap: m.Breakdown.ProductOverlap,
		VolumeFit:      m.Breakdown.VolumeFit,
		GeographyFit:   m.Breakdown.GeographyFit,
		Reliability:    m.Breakdown.Reliability,
	}); err != nil {
		return nil, err
	}
	if m.TradeData != nil {
		if d.tradeData, err = json.Marshal(tradeDataDoc{
			Volume:      m.TradeData.Volume,
			Frequency:   m.TradeData.Frequency,
			YearsActive: m.TradeData.YearsActive,
		}); err != nil {
			return nil, err
		}
	}
	if m.Contact != nil {
		if d.contact, err = json.Marshal(contactDoc{
			Name:    m.Contact.Name,
			Email:   m.Contact.Email,
			Phone:   m.Contact.Phone,
			Website: m.Contact.Website,
			Title:   m.Contact.Title,
		}); err != nil {
			return nil, err
		}
		if sealer != nil {
			sealed, err := sealer.Seal(d.contact, []byte(m.ID))
			if err != nil {
				return nil, fmt.Errorf("%w: seal contact: %v", domain.ErrOperationFailed, err)
			}
			if d.contact, err = json.Marshal(sealed); err != nil {
				return nil, err
			}
		}
	}
	return &d, nil
}

func scanMatch(row pgx.Row, sealer FieldSealer) (*model.Match, error) {
	var (
		m                                model.Match
		tier, status                     string
		products, reasons, warnings, brk []byte
		tradeData, contact               []byte
	)
	if err := row.Scan(
		&m.ID, &m.OwnerID, &m.CounterpartyName, &m.Country, &m.City, &products, &tier,
		&reasons, &warnings, &m.Score, &brk, &status,
		&m.Revealed, &m.RevealedAt, &tradeData, &contact, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, scanErr(err)
	}
	m.Tier = model.MatchTier(tier)
	m.Status = model.MatchStatus(status)

	var ps []productDoc
	if err := unmarshalDoc(products, &ps); err != nil {
		return nil, err
	}
	m.Products = make([]model.ProductRef, 0, len(ps))
	for _, p := range ps {
		m.Products = append(m.Products, model.ProductRef{Code: p.Code, Name: p.Name})
	}
	if err := unmarshalDoc(reasons, &m.Reasons); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(warnings, &m.Warnings); err != nil {
		return nil, err
	}
	var b breakdownDoc
	if err := unmarshalDoc(brk, &b); err != nil {
		return nil, err
	}
	m.Breakdown = model.ScoreBreakdown{
		ProductOverlap: b.ProductOverlap,
		VolumeFit:      b.VolumeFit,
		GeographyFit:   b.GeographyFit,
		Reliability:    b.Reliability,
	}
	if len(tradeData) > 0 {
		var td tradeDataDoc
		if err := unmarshalDoc(tradeData, &td); err != nil {
			return nil, err
		}
		m.TradeData = &model.TradeData{Volume: td.Volume, Frequency: td.Frequency, YearsActive: td.YearsActive}
	}
	if len(contact) > 0 {
		plain, err := openContact(contact, m.ID, sealer)
		if err != nil {
			return nil, err
		}
		var c contactDoc
		if err := unmarshalDoc(plain, &c); err != nil {
			return nil, err
		}
		m.Contact = &model.CounterpartyContact{Name: c.Name, Email: c.Email, Phone: c.Phone, Website: c.Website, Title: c.Title}
	}
	return &m, nil
}

// openContact unwraps a sealed contact (a JSON string) and passes plain
// documents through unchanged.
func openContact(raw []byte, matchID string, sealer FieldSealer) ([]byte, error) {
	if len(raw) == 0 || raw[0] != '"' {
		return raw, nil
	}
	if sealer == nil {
		return nil, fmt.Errorf("%w: sealed contact but no sealer configured", domain.ErrReadDatabaseRow)
	}
	var sealed string
	if err := json.Unmarshal(raw, &sealed); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	plain, err := sealer.Open(sealed, []byte(matchID))
	if err != nil {
		return nil, fmt.Errorf("%w: open contact: %v", domain.ErrReadDatabaseRow, err)
	}
	return plain, nil
}

func unmarshalDoc(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
