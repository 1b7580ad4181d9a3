package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGateDecisionsCounter(t *testing.T) {
	c := GateDecisionsTotal.WithLabelValues("supplier", "false", "trial-expired")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestHandlerExposesInstruments(t *testing.T) {
	SubscriptionTransitionsTotal.WithLabelValues("activate", "trader").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketplace_entitlements_subscription_transitions_total")
}
