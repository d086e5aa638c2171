package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/ilrvalidation/rules"
)

func TestObserveRun(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRun(rules.OutcomeSucceeded, 2*time.Second, []rules.ValidationError{
		{RuleName: "AddHours_01", Severity: rules.SeverityError},
		{RuleName: "AddHours_01", Severity: rules.SeverityError},
		{RuleName: "ULN_03", Severity: rules.SeverityWarning},
	})
	m.ObserveRun(rules.OutcomeCancelled, time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("cancelled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ValidationErrors.WithLabelValues("AddHours_01", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationErrors.WithLabelValues("ULN_03", "warning")))
}

func TestObserveRecordsAndFaults(t *testing.T) {
	m := New(nil)
	for i := 0; i < 3; i++ {
		m.ObserveRecordEvaluated()
	}
	m.ObserveRuleFault("TTACCOM_02")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsEvaluated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleFaults.WithLabelValues("TTACCOM_02")))
}

func TestObserveRetrievalLatency(t *testing.T) {
	m := New(nil)
	m.ObserveRetrievalLatency("uln", 10*time.Millisecond, nil)
	m.ObserveRetrievalLatency("uln", 10*time.Millisecond, errors.New("timeout"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.RetrievalLatency))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRecordEvaluated()
		m.ObserveRuleFault("AddHours_01")
		m.ObserveRun(rules.OutcomeFailed, time.Second, nil)
		m.ObserveRetrievalLatency("uln", time.Second, nil)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(nil)
	m.ObserveRecordEvaluated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ilrv_records_evaluated_total")
}
