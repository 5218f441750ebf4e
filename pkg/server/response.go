/*
 * Copyright (c) 2022, Gideon Williams <gideon@gideonw.com>
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with an error envelope. Only the error's public message
// reaches the caller; the cause is logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	status := beacon.StatusCode(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		logger(r).Error().Err(err).Str("endpoint", endpoint).Msg("request failed")
	} else {
		logger(r).Debug().Err(err).Str("endpoint", endpoint).Msg("request rejected")
	}
	writeJSON(w, status, s.beacon.Builder().Error(endpoint, err))
}

func errNotFound(path string) error {
	return beacon.NotFound("no such endpoint %s", path)
}

// decodeBody reads a query from the request. GET parameters are repackaged
// into the POST body shape; an empty POST body is an empty query.
func decodeBody(r *http.Request) (beacon.RequestBody, error) {
	if r.Method == http.MethodGet {
		return beacon.FromValues(r.URL.Query())
	}

	var body beacon.RequestBody
	if r.Body == nil {
		return body, nil
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err == io.EOF {
		return beacon.RequestBody{}, nil
	}
	if err != nil {
		return beacon.RequestBody{}, beacon.InvalidQuery("request body is not valid JSON")
	}
	return body, nil
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.beacon.Info(r.Context())
	if err != nil {
		s.writeError(w, r, "info", err)
		return
	}
	writeJSON(w, http.StatusOK, s.beacon.Builder().Info("info", info))
}

func (s *Server) handleServiceInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.beacon.Info(r.Context())
	if err != nil {
		s.writeError(w, r, "service-info", err)
		return
	}
	writeJSON(w, http.StatusOK, info.ServiceInfo())
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	o, err := s.beacon.Overview(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		s.writeError(w, r, "overview", err)
		return
	}
	writeJSON(w, http.StatusOK, s.beacon.Builder().Info("overview", o))
}

func (s *Server) handleFilteringTerms(w http.ResponseWriter, r *http.Request) {
	entries, err := s.beacon.FilteringTerms(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		s.writeError(w, r, "filtering_terms", err)
		return
	}
	writeJSON(w, http.StatusOK, s.beacon.Builder().Info("filtering_terms", map[string]interface{}{
		"filteringTerms": entries,
	}))
}

func (s *Server) handleQuery(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			s.metrics.ObserveResponseNS(endpoint, time.Since(start).Nanoseconds())
		}()

		body, err := decodeBody(r)
		if err != nil {
			s.writeError(w, r, endpoint, err)
			return
		}

		g := string(body.Query.RequestedGranularity)
		if g == "" {
			g = "default"
		}
		s.metrics.IncRequests(endpoint, g)

		env, err := s.beacon.Query(r.Context(), endpoint, body, r.Header.Get("Authorization"))
		if err != nil {
			s.writeError(w, r, endpoint, err)
			return
		}
		writeJSON(w, http.StatusOK, env)
	}
}

func (s *Server) networkDisabled(w http.ResponseWriter, r *http.Request) bool {
	if s.network != nil {
		return false
	}
	s.writeError(w, r, "network", beacon.NotImplemented("this beacon is not part of a network"))
	return true
}

// The network endpoints resolve every peer again on each request; only proxy
// calls are answered from the cached snapshot.
func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	if s.networkDisabled(w, r) {
		return
	}
	snap, err := s.network.Build(r.Context())
	if err != nil {
		s.writeError(w, r, "network", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleNetworkBeacons(w http.ResponseWriter, r *http.Request) {
	if s.networkDisabled(w, r) {
		return
	}
	snap, err := s.network.Build(r.Context())
	if err != nil {
		s.writeError(w, r, "network", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"beacons": snap.Beacons})
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if s.networkDisabled(w, r) {
		return
	}
	endpoint := chi.URLParam(r, "endpoint")

	var body beacon.RequestBody
	if r.Method == http.MethodPost {
		var err error
		if body, err = decodeBody(r); err != nil {
			s.writeError(w, r, endpoint, err)
			return
		}
	}

	resp, err := s.network.Proxy(r.Context(), r.Method, chi.URLParam(r, "beaconId"), endpoint, body, r.Header.Get("Authorization"))
	if err != nil {
		s.writeError(w, r, endpoint, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
