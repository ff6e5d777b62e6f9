package model

import "time"

// ExternalMatch is the only representation of a Match that leaves the service.
// It has no score fields at all; privileged fields are nil until revealed.
type ExternalMatch struct {
	ID                  string             `json:"id"`
	CounterpartyName    string             `json:"counterpartyName"`
	Country             string             `json:"country"`
	City                *string            `json:"city"`
	Products            []ExternalProduct  `json:"products"`
	Tier                MatchTier          `json:"tier"`
	MatchReasons        []string           `json:"matchReasons"`
	Warnings            []string           `json:"warnings"`
	Status              MatchStatus        `json:"status"`
	Revealed            bool               `json:"revealed"`
	RevealedAt          *time.Time         `json:"revealedAt"`
	TradeData           *ExternalTradeData `json:"tradeData"`
	CounterpartyContact *ExternalContact   `json:"counterpartyContact"`
	CreatedAt           time.Time          `json:"createdAt"`
}

type ExternalProduct struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type ExternalTradeData struct {
	Volume      string `json:"volume"`
	Frequency   string `json:"frequency"`
	YearsActive int    `json:"yearsActive"`
}

type ExternalContact struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Website *string `json:"website"`
	Title   string  `json:"title"`
}

// ShapeMatch maps a stored match to its external form. Every read path goes
// through here. Score and Breakdown are never copied; TradeData and Contact are
// copied only when m.Revealed is true.
func ShapeMatch(m *Match) *ExternalMatch {
	if m == nil {
		return nil
	}
	out := &ExternalMatch{
		ID:               m.ID,
		CounterpartyName: m.CounterpartyName,
		Country:          m.Country,
		City:             cloneString(m.City),
		Products:         make([]ExternalProduct, 0, len(m.Products)),
		Tier:             m.Tier,
		MatchReasons:     cloneStrings(m.Reasons),
		Warnings:         cloneStrings(m.Warnings),
		Status:           m.Status,
		Revealed:         m.Revealed,
		CreatedAt:        m.CreatedAt,
	}
	for _, p := range m.Products {
		out.Products = append(out.Products, ExternalProduct{Code: p.Code, Name: p.Name})
	}
	if !m.Revealed {
		return out
	}

	if m.RevealedAt != nil {
		at := *m.RevealedAt
		out.RevealedAt = &at
	}
	if m.TradeData != nil {
		out.TradeData = &ExternalTradeData{
			Volume:      m.TradeData.Volume,
			Frequency:   m.TradeData.Frequency,
			YearsActive: m.TradeData.YearsActive,
		}
	}
	if m.Contact != nil {
		out.CounterpartyContact = &ExternalContact{
			Name:    m.Contact.Name,
			Email:   m.Contact.Email,
			Phone:   m.Contact.Phone,
			Website: cloneString(m.Contact.Website),
			Title:   m.Contact.Title,
		}
	}
	return out
}

// ShapeMatches shapes a page of matches in order.
func ShapeMatches(ms []*Match) []*ExternalMatch {
	out := make([]*ExternalMatch, 0, len(ms))
	for _, m := range ms {
		out = append(out, ShapeMatch(m))
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneStrings(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	return out
}
