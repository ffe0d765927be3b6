package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

func TestMetricsObserveCollector(t *testing.T) {
	m := New()
	c := stats.New(m)

	c.RecordRequest(stats.Sample{Name: "/create", Method: "POST", Status: 201, Latency: 5 * time.Millisecond})
	c.RecordRequest(stats.Sample{Name: "/create", Method: "POST", Status: 500, Failed: true})
	c.RecordRequest(stats.Sample{Name: "/create", Method: "POST", Err: errors.New("refused")})
	c.RecordCheck("create: status is 201", true)
	c.RecordCheck("create: status is 201", false)
	c.RecordTask("access_url", stats.OutcomeSkipped)
	c.SetUsers(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/create", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/create", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.failures.WithLabelValues("POST", "/create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues("create: status is 201", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasks.WithLabelValues("access_url", "skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.users))
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.ObserveUsers(2)

	expected := `
# HELP shortload_virtual_users Virtual users currently running.
# TYPE shortload_virtual_users gauge
shortload_virtual_users 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "shortload_virtual_users"))
	assert.NotNil(t, m.Handler())
}
