package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cinestream/cinestream/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamStats(t *testing.T) {
	metrics.ResetStats()
	before := testutil.ToFloat64(metrics.StreamBytes)

	metrics.StreamStarted()
	metrics.StreamStarted()
	assert.Equal(t, int64(2), metrics.GetSnapshot().ActiveStreams)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ActiveStreams))

	metrics.StreamFinished(100)
	metrics.StreamFinished(50)

	s := metrics.GetSnapshot()
	assert.Equal(t, int64(0), s.ActiveStreams)
	assert.Equal(t, int64(2), s.StreamsServed)
	assert.Equal(t, int64(150), s.BytesStreamed)
	assert.Equal(t, before+150, testutil.ToFloat64(metrics.StreamBytes))
}

func TestMiddleware_RecordsMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(metrics.Middleware())
	router.GET("/api/movies/:id", func(c *gin.Context) { c.Status(204) })
	router.GET("/metrics", metrics.NewHandler().Metrics)

	counter := metrics.HTTPRequests.WithLabelValues("GET", "/api/movies/:id", "204")
	before := testutil.ToFloat64(counter)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/movies/7", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, resp.Code)
	assert.True(t, strings.Contains(resp.Body.String(), "cinestream_http_requests_total"))
}
