package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordEmergencyCreated(t *testing.T) {
	before := testutil.ToFloat64(emergenciesCreated.WithLabelValues("true"))
	RecordEmergencyCreated(true)
	assert.Equal(t, before+1, testutil.ToFloat64(emergenciesCreated.WithLabelValues("true")))
}

func TestRecordNotificationsDispatched_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(notificationsDispatched.WithLabelValues("emergencia"))
	RecordNotificationsDispatched("emergencia", 0)
	RecordNotificationsDispatched("emergencia", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(notificationsDispatched.WithLabelValues("emergencia")))
}

func TestObserveHTTP_UnmatchedPath(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	ObserveHTTP("GET", "", http.StatusNotFound, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestTrackInFlight(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsInFlight)
	done := TrackInFlight()
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsInFlight))
	done()
	assert.Equal(t, before, testutil.ToFloat64(httpRequestsInFlight))
}

func TestHandler_ExposesBusinessMetrics(t *testing.T) {
	RecordTransition("en_camino", "en_escena")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hospitales_emergency_transitions_total")
}
