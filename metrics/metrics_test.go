package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersByLabel(t *testing.T) {
	before := testutil.ToFloat64(JobsFinished.WithLabelValues("import", "completed"))
	JobsFinished.WithLabelValues("import", "completed").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(JobsFinished.WithLabelValues("import", "completed")))

	JobsActive.WithLabelValues("save").Inc()
	JobsActive.WithLabelValues("save").Dec()
	assert.Equal(t, float64(0), testutil.ToFloat64(JobsActive.WithLabelValues("save")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	InventoryMatches.WithLabelValues("rakuten", "degraded").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spotletter_inventory_matches_total{outcome="degraded",provider="rakuten"}`)
}
