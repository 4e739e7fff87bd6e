package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveTranslation("LIBRE", "es", "en", 3, 20*time.Millisecond)
	m.ObserveBatch(3)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.translations.WithLabelValues("LIBRE", "es", "en")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.batchSize))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.ObserveBatch(10)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "mt_batch_size_count 1"), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTranslation("LIBRE", "es", "en", 1, time.Second)
		m.ObserveBatch(1)
		m.CacheLookup(true)
	})
	assert.Nil(t, m.Registry())
}
