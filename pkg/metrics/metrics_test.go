package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLookup(ResultHit, 0.1)
		m.IncrementInserts()
		m.IncrementErrors("insert")
		m.IncrementRehydrations()
		m.SetIndexSize(3)
		m.ObserveAPIEndpointDuration("query", "GET", "200", 0.1)
		m.IncrementHTTPRequests()
		m.IncrementHTTPErrors()
		m.IncrementLLMRequests("openai", "ok")
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveLookup(ResultHit, 0.01)
	m.ObserveLookup(ResultHit, 0.01)
	m.ObserveLookup(ResultMiss, 0.02)
	m.IncrementInserts()
	m.IncrementErrors("lookup")
	m.SetIndexSize(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookups.WithLabelValues(ResultHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues(ResultMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inserts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("lookup")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.indexSize))
}

func TestHandler(t *testing.T) {
	m := New()
	m.IncrementInserts()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "semcache_cache_inserts_total 1")
}
