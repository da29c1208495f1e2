package health_test

import (
	"net/http/httptest"
	"testing"

	"github.com/cinestream/cinestream/internal/health"
	"github.com/cinestream/cinestream/internal/testutil"
	"github.com/cinestream/cinestream/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHealthRouter(t *testing.T) (*gin.Engine, func() error) {
	db := testutil.NewDB(t)
	handler := health.NewHandler(db)

	router := gin.New()
	router.GET("/health", handler.Health)
	router.GET("/healthz", handler.Healthz)
	router.GET("/readyz", handler.Readyz)
	return router, db.Close
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthz_AlwaysReturnsOK(t *testing.T) {
	router, _ := setupHealthRouter(t)

	resp := get(router, "/healthz")
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, `{"status":"alive"}`, resp.Body.String())
}

func TestReadyz_HealthySystem(t *testing.T) {
	router, _ := setupHealthRouter(t)

	resp := get(router, "/readyz")
	require.Equal(t, 200, resp.Code, resp.Body.String())
	assert.Equal(t, `{"status":"ready"}`, resp.Body.String())
}

func TestReadyz_DatabaseClosed(t *testing.T) {
	router, closeDB := setupHealthRouter(t)
	require.NoError(t, closeDB())

	resp := get(router, "/readyz")
	assert.Equal(t, 503, resp.Code)
	assert.Contains(t, resp.Body.String(), "database_ping_failed")
}

func TestReadyz_NoDatabase(t *testing.T) {
	router := gin.New()
	router.GET("/readyz", health.NewHandler(nil).Readyz)

	resp := get(router, "/readyz")
	assert.Equal(t, 503, resp.Code)
	assert.Contains(t, resp.Body.String(), "database_not_initialized")
}

func TestHealth_ReportsStreamCounters(t *testing.T) {
	router, _ := setupHealthRouter(t)
	metrics.ResetStats()
	metrics.StreamStarted()
	metrics.StreamFinished(2048)

	resp := get(router, "/health")
	require.Equal(t, 200, resp.Code)

	var body map[string]interface{}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["active_streams"])
	assert.EqualValues(t, 1, body["streams_served"])
	assert.Equal(t, "2.0 kB", body["bytes_streamed"])
}
