package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/circuitbreaker"
)

func TestMetrics_Observers(t *testing.T) {
	m := New()

	m.BackendRequest("GET", 200, 10*time.Millisecond)
	m.BackendRequest("GET", 200, 20*time.Millisecond)
	m.BackendRequest("PUT", 0, time.Second)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BackendRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendRequests.WithLabelValues("PUT", "0")))

	m.EventPublished(shared.EventUserBlocked)
	m.HandlerFinished(shared.EventUserBlocked, time.Millisecond, nil)
	m.HandlerFinished(shared.EventUserBlocked, time.Millisecond, errors.New("audit down"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(string(shared.EventUserBlocked))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerFailures.WithLabelValues(string(shared.EventUserBlocked))))

	m.BreakerStateChanged("backend", circuitbreaker.StateClosed, circuitbreaker.StateOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("backend")))

	m.ObserveHTTP("GET", "/api/v1/admin/users", 200, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/admin/users", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.EventPublished(shared.EventSignedIn)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `admin_hub_events_published_total{type="session.signed_in"} 1`)
}
