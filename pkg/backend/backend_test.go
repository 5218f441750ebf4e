/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bento-platform/bento-beacon-sub000/pkg/authz"
	"github.com/bento-platform/bento-beacon-sub000/pkg/beacon"
	"github.com/bento-platform/bento-beacon-sub000/pkg/censor"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/filter"
	"github.com/bento-platform/bento-beacon-sub000/pkg/query/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	s := httptest.NewServer(h)
	t.Cleanup(s.Close)
	return s
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestKatsuSearch(t *testing.T) {
	var got map[string]interface{}
	s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/private/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, map[string]interface{}{
			"results": map[string]interface{}{
				"project-1": map[string]interface{}{"data_type": "phenopacket", "matches": []interface{}{"b1", "b2"}},
				"project-2": map[string]interface{}{"data_type": "phenopacket", "matches": []interface{}{"b2", 3}},
			},
		})
	})

	k := NewKatsu(s.URL, NewTransport(nil, "katsu", time.Second))
	expr, err := filter.Translate([]beacon.Filter{{ID: "subject.sex", Operator: beacon.OpEqual, Value: beacon.Scalar("MALE")}})
	require.NoError(t, err)

	ids, err := k.Search(context.Background(), "phenopacket", expr, []string{"biosamples", "[item]", "id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "b1", "b2"}, ids.Sorted())

	assert.Equal(t, "phenopacket", got["data_type"])
	assert.Equal(t, "values_list", got["output"])
	assert.Equal(t, []interface{}{"biosamples", "[item]", "id"}, got["field"])
	assert.Equal(t, []interface{}{"#eq", []interface{}{"#resolve", "subject", "sex"}, "MALE"}, got["query"])
}

func TestKatsuSearchNilExpressionSendsEmptyQuery(t *testing.T) {
	var got map[string]json.RawMessage
	s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, map[string]interface{}{"results": map[string]interface{}{}})
	})

	k := NewKatsu(s.URL, NewTransport(nil, "katsu", time.Second))
	ids, err := k.Search(context.Background(), "experiment", nil, []string{"biosample"})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, "[]", string(got["query"]))
}

func TestKatsuPolicy(t *testing.T) {
	s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/public_rules", r.URL.Path)
		assert.Equal(t, "p1", r.URL.Query().Get("project"))
		assert.Equal(t, "d1", r.URL.Query().Get("dataset"))
		writeJSON(w, map[string]int{"max_query_parameters": 2, "count_threshold": 5})
	})

	k := NewKatsu(s.URL, NewTransport(nil, "katsu", time.Second))
	p, err := k.Policy(context.Background(), "p1", "d1")
	require.NoError(t, err)
	assert.Equal(t, censor.Policy{MaxFilters: 2, CountThreshold: 5}, p)
}

func TestKatsuSearchFieldsMerged(t *testing.T) {
	s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"sections": []interface{}{
				map[string]interface{}{"section_title": "General", "fields": []interface{}{
					map[string]interface{}{"id": "sex", "title": "Sex", "mapping": "individual/sex", "options": []string{"MALE"}},
				}},
				map[string]interface{}{"section_title": "Other", "fields": []interface{}{
					map[string]interface{}{"id": "sex_again", "title": "Sex", "mapping": "individual/sex", "options": []string{"FEMALE"}},
				}},
			},
		})
	})

	k := NewKatsu(s.URL, NewTransport(nil, "katsu", time.Second))
	fields, err := k.SearchFields(context.Background())
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, []string{"MALE", "FEMALE"}, fields[0].Options)
}

func TestTransportErrorsAreUpstream(t *testing.T) {
	tt := []struct {
		test    string
		handler http.HandlerFunc
	}{
		{"html error page", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>Internal Server Error</html>"))
		}},
		{"status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			writeJSON(w, map[string]int{})
		}},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			s := newServer(t, tc.handler)
			k := NewKatsu(s.URL, NewTransport(nil, "katsu", 50*time.Millisecond))

			_, err := k.Policy(context.Background(), "", "")
			require.Error(t, err)
			assert.Equal(t, beacon.KindUpstream, beacon.KindOf(err))
			assert.Equal(t, "error contacting katsu", beacon.PublicMessage(err))
		})
	}
}

func TestGohanSampleIDs(t *testing.T) {
	s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/variants/get/by/variantId", r.URL.Path)
		assert.Equal(t, "3", q.Get("chromosome"))
		assert.Equal(t, "189631389", q.Get("lowerBound"))
		assert.Equal(t, "189631389", q.Get("upperBound"))
		assert.Equal(t, "A", q.Get("reference"))
		assert.Equal(t, "G", q.Get("alternative"))
		assert.Equal(t, "true", q.Get("getSampleIdsOnly"))
		assert.False(t, q.Has("assemblyId"))

		writeJSON(w, map[string]interface{}{
			"results": []interface{}{
				map[string]interface{}{"calls": []interface{}{
					map[string]string{"sample_id": "s1"},
					map[string]string{"sample_id": "s2"},
				}},
				map[string]interface{}{"calls": []interface{}{
					map[string]string{"sample_id": "s2"},
				}},
			},
		})
	})

	g := NewGohan(s.URL, NewTransport(nil, "gohan", time.Second))
	ids, err := g.SampleIDs(context.Background(), variant.Request{
		Chromosome: "3", LowerBound: 189631389, UpperBound: 189631389,
		Reference: "A", Alternative: "G", SampleIDsOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids.Sorted())
}

func TestGohanSampleIDsDataForm(t *testing.T) {
	s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"status": 200,
			"data": []interface{}{
				map[string]interface{}{"count": 2, "sampleIds": []string{"s3"}, "results": []interface{}{
					map[string]interface{}{"samples": []interface{}{map[string]string{"sampleId": "s4"}}},
				}},
			},
		})
	})

	g := NewGohan(s.URL, NewTransport(nil, "gohan", time.Second))
	ids, err := g.SampleIDs(context.Background(), variant.Request{Chromosome: "1", LowerBound: 1, UpperBound: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "s4"}, ids.Sorted())
}

func TestGohanResolveGene(t *testing.T) {
	s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/genes/search", r.URL.Path)
		assert.Equal(t, "BRCA1", q.Get("term"))
		assert.Equal(t, "true", q.Get("getExactMatch"))
		if q.Get("assemblyId") != "GRCh38" {
			writeJSON(w, map[string]interface{}{"results": []interface{}{}})
			return
		}
		writeJSON(w, map[string]interface{}{"results": []interface{}{
			map[string]interface{}{"name": "BRCA1", "chrom": "17", "start": 43044295, "end": 43125483, "assemblyId": "GRCh38"},
		}})
	})

	g := NewGohan(s.URL, NewTransport(nil, "gohan", time.Second))
	loci, err := g.ResolveGene(context.Background(), "BRCA1", "GRCh38")
	require.NoError(t, err)
	assert.Equal(t, []variant.Locus{{Chromosome: "17", Start: 43044295, End: 43125483, AssemblyID: "GRCh38"}}, loci)

	loci, err = g.ResolveGene(context.Background(), "BRCA1", "GRCh37")
	require.NoError(t, err)
	assert.Empty(t, loci)
}

func TestPolicyServiceForwardsCallerToken(t *testing.T) {
	var body evaluateRequest
	s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/policy/evaluate", r.URL.Path)
		assert.Equal(t, "Bearer caller", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, map[string]interface{}{"result": [][]bool{{true, false, true, false}}})
	})

	p := NewPolicyService(s.URL, NewTransport(nil, "authorization service", time.Second))
	r := authz.NewResolver(p, authz.ScopeOf("p1", ""), "Bearer caller")
	perms, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.True(t, perms[authz.QueryData])
	assert.False(t, perms[authz.QueryProjectCounts])
	assert.True(t, perms[authz.QueryProjectBoolean])
	assert.Equal(t, []authz.Resource{{Project: "p1"}}, body.Resources)
	assert.Equal(t, authz.Checklist(authz.ScopeProject), body.Permissions)
}
