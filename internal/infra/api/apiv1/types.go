package apiv1

import "tradematch/internal/domain/model"

const unlimited = "unlimited"

// Usage is the reveal usage triple. Remaining and Total hold the string
// "unlimited" for plans without an allowance, otherwise integers.
type Usage struct {
	Used      int `json:"used"`
	Remaining any `json:"remaining"`
	Total     any `json:"total"`
}

func toUsage(u model.RevealUsage) Usage {
	if u.Unlimited {
		return Usage{Used: u.Used, Remaining: unlimited, Total: unlimited}
	}
	return Usage{Used: u.Used, Remaining: u.Remaining(), Total: u.Total}
}

type MatchListResponse struct {
	Matches    []*model.ExternalMatch `json:"matches"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	TotalPages int                    `json:"totalPages"`
}

type MatchResponse struct {
	Match *model.ExternalMatch `json:"match"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type StatusResponse struct {
	Success bool              `json:"success"`
	Status  model.MatchStatus `json:"status"`
}

type RevealResponse struct {
	Match   *model.ExternalMatch `json:"match"`
	Reveals Usage                `json:"reveals"`
}

// QuotaErrorBody is the 403 QUOTA_EXCEEDED envelope.
type QuotaErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Reveals Usage  `json:"reveals"`
}
