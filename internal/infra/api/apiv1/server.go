package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"tradematch/internal/domain/model"
	"tradematch/internal/usecase"
)

// Options configures the v1 routes.
type Options struct {
	DefaultLimit int
	MaxLimit     int

	// Authenticate guards every route. Required.
	Authenticate func(http.Handler) http.Handler
	// RevealGuards run before the reveal handler (throttle, email gate).
	RevealGuards []func(http.Handler) http.Handler
}

type Server struct {
	matches usecase.MatchUseCase
	reveals usecase.RevealUseCase
	opts    Options
	log     *zerolog.Logger
}

func NewServer(matches usecase.MatchUseCase, reveals usecase.RevealUseCase, opts Options, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.MaxLimit <= 0 || opts.MaxLimit > model.MaxMatchPageSize {
		opts.MaxLimit = model.MaxMatchPageSize
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = model.DefaultMatchPageSize
	}
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{matches: matches, reveals: reveals, opts: opts, log: &l}
}

// RegisterAPIV1 mounts the v1 routes under /api/v1 on r.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		if s.opts.Authenticate != nil {
			r.Use(s.opts.Authenticate)
		}
		r.Get("/matches", s.listMatches)
		r.Get("/matches/{id}", s.getMatch)
		r.Patch("/matches/{id}/status", s.setMatchStatus)
		r.With(s.opts.RevealGuards...).Post("/matches/{id}/reveal", s.revealMatch)
		r.Get("/reveals/usage", s.revealUsage)
	})
}
