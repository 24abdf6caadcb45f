package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.ObserveTurn("AWAITING_CONFIRMATION", "ORDER", 120*time.Millisecond)
	m.ObserveTurn("AWAITING_CONFIRMATION", "ORDER", 80*time.Millisecond)
	m.ObserveTurn("FULFILLED", "CONFIRM", 10*time.Millisecond)
	m.TurnError("provider_unavailable")
	m.MatchOutcome(OutcomeAccepted)
	m.MatchOutcome(OutcomeAccepted)
	m.MatchOutcome(OutcomeNoMatch)
	m.OrderFinalized()

	assert.InDelta(t, 2, testutil.ToFloat64(m.turns.WithLabelValues("AWAITING_CONFIRMATION", "ORDER")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.turns.WithLabelValues("FULFILLED", "CONFIRM")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.turnErrors.WithLabelValues("provider_unavailable")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.matchOutcomes.WithLabelValues(OutcomeAccepted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.finalized), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.turnDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.OrderFinalized()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tableside_orders_finalized_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NotPanics(t, func() {
		r.ObserveTurn("GREETING", "UNKNOWN", time.Second)
		r.TurnError("internal")
		r.MatchOutcome(OutcomeError)
		r.OrderFinalized()
	})
}
