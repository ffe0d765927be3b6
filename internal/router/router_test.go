package router

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/urlshrtload/internal/logger"
	"github.com/patric-chuzhbe/urlshrtload/internal/metrics"
	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

func setupTestRouter(t *testing.T) (*httptest.Server, *stats.Collector) {
	t.Helper()

	err := logger.Init("debug")
	require.NoError(t, err)

	m := metrics.New()
	collector := stats.New(m)
	srv := httptest.NewServer(New(collector, m.Handler()))
	t.Cleanup(srv.Close)

	return srv, collector
}

func TestGetPing(t *testing.T) {
	srv, _ := setupTestRouter(t)

	resp, err := resty.New().R().Get(fmt.Sprintf("%s/ping", srv.URL))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "pong", resp.String())
}

func TestGetStats(t *testing.T) {
	srv, collector := setupTestRouter(t)
	collector.RecordRequest(stats.Sample{Name: "/create", Method: http.MethodPost, Status: http.StatusCreated, Latency: time.Millisecond})
	collector.SetUsers(2)

	var summary stats.Summary
	resp, err := resty.New().R().
		SetResult(&summary).
		Get(fmt.Sprintf("%s/stats", srv.URL))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	assert.Equal(t, 2, summary.Users)
	require.Len(t, summary.Endpoints, 1)
	assert.Equal(t, int64(1), summary.Endpoints[0].Requests)
}

func TestGetStatsGzipped(t *testing.T) {
	srv, collector := setupTestRouter(t)
	collector.SetUsers(7)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)

	var summary stats.Summary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 7, summary.Users)
}

func TestGetMetrics(t *testing.T) {
	srv, collector := setupTestRouter(t)
	collector.SetUsers(4)

	resp, err := resty.New().R().Get(fmt.Sprintf("%s/metrics", srv.URL))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), "shortload_virtual_users 4")
}

func TestMetricsRouteIsOptional(t *testing.T) {
	srv := httptest.NewServer(New(stats.New(), nil))
	defer srv.Close()

	resp, err := resty.New().R().Get(fmt.Sprintf("%s/metrics", srv.URL))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}
