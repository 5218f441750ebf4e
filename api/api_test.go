/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/terms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBeacon struct {
	authorization string
}

func (b *stubBeacon) Info(context.Context) (beacon.Info, error) {
	return beacon.Info{ID: "local", APIVersion: "v2.0.0"}, nil
}

func (b *stubBeacon) Overview(_ context.Context, authorization string) (beacon.Overview, error) {
	b.authorization = authorization
	return beacon.Overview{Counts: map[string]int{"individuals": 4}}, nil
}

func (b *stubBeacon) FilteringTerms(context.Context, string) ([]terms.Entry, error) {
	return []terms.Entry{{ID: "sex", Values: []string{"MALE"}}}, nil
}

func (b *stubBeacon) Query(_ context.Context, endpoint string, body beacon.RequestBody, _ string) (beacon.Envelope, error) {
	q, err := beacon.Parse(body, beacon.GranularityCount)
	if err != nil {
		return beacon.Envelope{}, err
	}
	return beacon.Builder{BeaconID: "local"}.Query(endpoint, &q, 7, nil), nil
}

func TestParseTarget(t *testing.T) {
	tt := []struct {
		target string
		want   string
		ok     bool
	}{
		{"https://beacon.example.ca/api/beacon/", "https://beacon.example.ca/api/beacon", true},
		{"http://localhost:5000", "http://localhost:5000", true},
		{"localhost:5000", "", false},
		{"ftp://beacon.example.ca", "", false},
		{"https://", "", false},
	}

	for _, tc := range tt {
		t.Run(tc.target, func(t *testing.T) {
			got, err := ParseTarget(tc.target)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLocalClient(t *testing.T) {
	b := &stubBeacon{}
	c, err := NewClient("", b, nil, 0)
	require.NoError(t, err)
	c.(*LocalClient).Authorization = "Bearer t"

	o, err := c.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, o.Counts["individuals"])
	assert.Equal(t, "Bearer t", b.authorization)

	resp, err := c.Query(context.Background(), "individuals", beacon.RequestBody{})
	require.NoError(t, err)
	n, ok := resp.Count()
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	env, err := resp.Envelope()
	require.NoError(t, err)
	assert.Equal(t, "local", env.Meta.BeaconID)
}

func TestRemoteClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": map[string]string{"id": "remote", "name": "Remote"}})
	})
	mux.HandleFunc("/api/overview", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": map[string]interface{}{"counts": map[string]int{"biosamples": 9}}})
	})
	mux.HandleFunc("/api/filtering_terms", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": map[string]interface{}{
			"filteringTerms": []map[string]interface{}{{"id": "sex", "values": []string{"FEMALE"}}},
		}})
	})
	mux.HandleFunc("/api/biosamples", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body beacon.RequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, beacon.GranularityCount, body.Query.RequestedGranularity)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"responseSummary": map[string]interface{}{"exists": true, "count": 3}})
	})
	s := httptest.NewServer(mux)
	defer s.Close()

	c, err := NewClient(s.URL+"/api/", nil, nil, time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	info, err := c.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "remote", info.ID)

	o, err := c.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, o.Counts["biosamples"])

	entries, err := c.FilteringTerms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []terms.Entry{{ID: "sex", Values: []string{"FEMALE"}}}, entries)

	var body beacon.RequestBody
	body.Query.RequestedGranularity = beacon.GranularityCount
	resp, err := c.Query(ctx, "biosamples", body)
	require.NoError(t, err)
	n, ok := resp.Count()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestRemoteClientUpstreamError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>oops</html>", http.StatusInternalServerError)
	}))
	defer s.Close()

	c := NewRemoteClient(s.URL, nil, time.Second)
	_, err := c.Info(context.Background())
	assert.Equal(t, beacon.KindUpstream, beacon.KindOf(err))
}
