package model

import (
	"math"
	"strings"

	"tradematch/internal/domain"
)

type MatchSort string

const (
	MatchSortRelevance MatchSort = "relevance"
	MatchSortRecent    MatchSort = "recent"
)

const (
	DefaultMatchPageSize = 20
	MaxMatchPageSize     = 100
)

// MatchFilter narrows an owner's matches. Empty fields do not filter; set
// fields combine with AND.
type MatchFilter struct {
	Tier    MatchTier
	Country string
	Status  MatchStatus
}

// MatchQuery is a validated, paginated listing request.
type MatchQuery struct {
	MatchFilter
	Sort  MatchSort
	Page  int
	Limit int
}

// Offset is the zero-based row offset of Page.
func (q MatchQuery) Offset() int { return (q.Page - 1) * q.Limit }

// NewMatchQuery validates filters and applies defaults. page below 1 becomes 1;
// limit is clamped to [1, maxLimit] (maxLimit <= 0 means MaxMatchPageSize).
// A page whose offset would overflow int is ErrInvalidArgument.
func NewMatchQuery(f MatchFilter, sort MatchSort, page, limit, maxLimit int) (MatchQuery, error) {
	if f.Tier != "" && !f.Tier.IsValid() {
		return MatchQuery{}, domain.ErrInvalidArgument
	}
	if f.Status != "" && !f.Status.IsValid() {
		return MatchQuery{}, domain.ErrInvalidArgument
	}
	f.Country = strings.TrimSpace(f.Country)

	switch sort {
	case "":
		sort = MatchSortRelevance
	case MatchSortRelevance, MatchSortRecent:
	default:
		return MatchQuery{}, domain.ErrInvalidArgument
	}

	if maxLimit <= 0 || maxLimit > MaxMatchPageSize {
		maxLimit = MaxMatchPageSize
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultMatchPageSize
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page-1 > math.MaxInt/limit {
		return MatchQuery{}, domain.ErrInvalidArgument
	}
	return MatchQuery{MatchFilter: f, Sort: sort, Page: page, Limit: limit}, nil
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
