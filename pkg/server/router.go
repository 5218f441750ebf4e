/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"net/http"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const RequestIDHeader = "X-Request-Id"

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleInfo)
	r.Get("/info", s.handleInfo)
	r.Get("/service-info", s.handleServiceInfo)
	r.Get("/overview", s.handleOverview)
	r.Get("/filtering_terms", s.handleFilteringTerms)

	for _, endpoint := range []string{"individuals", "biosamples", "g_variants"} {
		h := s.handleQuery(endpoint)
		r.Get("/"+endpoint, h)
		r.Post("/"+endpoint, h)
	}

	r.Get("/network", s.handleNetwork)
	r.Get("/network/beacons", s.handleNetworkBeacons)
	r.HandleFunc("/network/beacons/{beaconId}/{endpoint}", s.handleProxy)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, "", errNotFound(r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, "", beacon.NotImplemented("method %s is not supported for %s", r.Method, r.URL.Path))
	})
	return r
}

// requestLogger tags every request with an id and logs its outcome. Handlers
// log through zerolog.Ctx so their entries carry the same id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		log := s.log.With().Str("request_id", id).Logger()
		r = r.WithContext(log.WithContext(r.Context()))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
}

func logger(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}
