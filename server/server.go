// Package server exposes the coordinator over HTTP.
//
// Two route groups mirror the two kinds of clients: /api/end/* is what
// deployed endpoints talk to (register, checkin, post_result), /api/man/*
// is the operator surface (queue tasks, inspect the fleet). Status codes
// follow the coordinator contract: 200 success, 204 checkin with no pending
// tasks, 400 malformed or duplicate input, 404 unknown endpoint.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/perchsec/roost/fleet"
)

// Server binds the fleet coordinator to HTTP routes.
type Server struct {
	coord  *fleet.Coordinator
	logger zerolog.Logger
	mux    *chi.Mux
}

// New creates the server and its routing table.
func New(coord *fleet.Coordinator, logger zerolog.Logger) *Server {
	s := &Server{
		coord:  coord,
		logger: logger.With().Str("component", "http").Logger(),
		mux:    chi.NewRouter(),
	}

	s.mux.Use(middleware.RequestID)
	s.mux.Use(middleware.Recoverer)
	s.mux.Use(s.requestLogger)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	s.mux.Route("/api/end", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/checkin", s.handleCheckin)
		r.Post("/post_result", s.handlePostResult)
	})

	s.mux.Route("/api/man", func(r chi.Router) {
		r.Post("/post_task", s.handlePostTask)
		r.Get("/endpoints", s.handleListEndpoints)
		r.Get("/tasks", s.handleListTasks)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// requestLogger logs one line per request through the shared zerolog sink.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
