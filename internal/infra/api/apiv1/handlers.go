package apiv1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tradematch/internal/domain"
	"tradematch/internal/domain/model"
	"tradematch/internal/infra/api"
	"tradematch/internal/infra/logging"
	"tradematch/internal/infra/metrics"
)

const maxBodyBytes = 4 << 10

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	p, ok := api.PrincipalFrom(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "unauthorized")
		return
	}

	qs := r.URL.Query()
	page, err := intParam(qs.Get("page"), 1)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeInvalidInput, "page must be an integer")
		return
	}
	limit, err := intParam(qs.Get("limit"), s.opts.DefaultLimit)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeInvalidInput, "limit must be an integer")
		return
	}
	q, err := model.NewMatchQuery(model.MatchFilter{
		Tier:    model.MatchTier(strings.ToLower(qs.Get("tier"))),
		Country: qs.Get("country"),
		Status:  model.MatchStatus(strings.ToLower(qs.Get("status"))),
	}, model.MatchSort(strings.ToLower(qs.Get("sort"))), page, limit, s.opts.MaxLimit)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeInvalidInput, "invalid filter or sort")
		return
	}

	res, err := s.matches.List(r.Context(), p.UserID, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, MatchListResponse{
		Matches:    res.Matches,
		Total:      res.Total,
		Page:       res.Page,
		TotalPages: res.TotalPages,
	})
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	p, ok := api.PrincipalFrom(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "unauthorized")
		return
	}
	m, err := s.matches.Get(r.Context(), p.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, MatchResponse{Match: m})
}

func (s *Server) setMatchStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := api.PrincipalFrom(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "unauthorized")
		return
	}
	var req StatusRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeInvalidInput, "invalid request body")
		return
	}
	target := model.MatchStatus(strings.ToLower(strings.TrimSpace(req.Status)))

	status, err := s.matches.SetStatus(r.Context(), p.UserID, chi.URLParam(r, "id"), target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	metrics.IncMatchStatusChange(string(status))
	api.WriteJSON(w, http.StatusOK, StatusResponse{Success: true, Status: status})
}

func (s *Server) revealMatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := api.PrincipalFrom(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "unauthorized")
		return
	}
	res, err := s.reveals.Reveal(r.Context(), p.UserID, chi.URLParam(r, "id"))
	if err != nil {
		metrics.ObserveReveal(revealOutcome(err), time.Since(start).Seconds())
		s.writeError(w, r, err)
		return
	}
	outcome := "granted"
	if !res.Granted {
		outcome = "idempotent"
	}
	metrics.ObserveReveal(outcome, time.Since(start).Seconds())
	api.WriteJSON(w, http.StatusOK, RevealResponse{Match: res.Match, Reveals: toUsage(res.Usage)})
}

func (s *Server) revealUsage(w http.ResponseWriter, r *http.Request) {
	p, ok := api.PrincipalFrom(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "unauthorized")
		return
	}
	u, err := s.reveals.Usage(r.Context(), p.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, toUsage(u))
}

// writeError maps domain errors to status codes. Internal failures are logged
// and answered with a generic body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var qe *domain.QuotaExceededError
	switch {
	case errors.As(err, &qe):
		api.WriteJSON(w, http.StatusForbidden, QuotaErrorBody{
			Error:   "monthly reveal limit reached",
			Code:    api.CodeQuotaExceeded,
			Reveals: Usage{Used: qe.Used, Remaining: qe.Remaining(), Total: qe.Total},
		})
	case errors.Is(err, domain.ErrUnauthorized):
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		api.WriteError(w, http.StatusNotFound, api.CodeNotFound, "match not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		api.WriteError(w, http.StatusBadRequest, api.CodeInvalidInput, "invalid input")
	case errors.Is(err, domain.ErrInvalidTransition):
		api.WriteError(w, http.StatusBadRequest, api.CodeInvalidTransition, "status change not allowed")
	case errors.Is(err, domain.ErrEmailNotVerified):
		api.WriteError(w, http.StatusForbidden, api.CodeEmailNotVerified, "email address must be verified")
	case errors.Is(err, domain.ErrRateLimited):
		api.WriteError(w, http.StatusTooManyRequests, api.CodeRateLimited, "too many requests")
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		api.WriteError(w, http.StatusInternalServerError, api.CodeInternal, "internal error")
	}
}

func revealOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
