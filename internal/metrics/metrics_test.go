package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/crisisboard/internal/corpus"
	"github.com/TobiSchelling/crisisboard/internal/pipeline"
)

func TestCollectorObservesSession(t *testing.T) {
	c := NewCollector("crisisboard")
	ts := time.Date(2020, 4, 6, 14, 0, 0, 0, time.UTC)
	ds := &corpus.Dataset{Messages: []corpus.Message{
		{Index: 0, Time: ts, Topic: "Shelter"},
		{Index: 1, Time: ts.Add(time.Hour), Topic: "Shelter"},
	}}

	s := pipeline.NewSession(ds, pipeline.Options{}, c)
	s.Reset()
	s.SetKeyword("nothing matches this")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Transactions.WithLabelValues("init")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Transactions.WithLabelValues("reset")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Transactions.WithLabelValues("keyword")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.FilteredMessages))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Revision))
	assert.Equal(t, 1, testutil.CollectAndCount(c.RecomputeDuration))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	c := NewCollector("crisisboard")
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", c.Handler())

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/items/{id}", "418")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "crisisboard_http_requests_total"), "exposition should include request counter")
	assert.Contains(t, body, "go_goroutines")
}
