package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	cases := map[*Error]int{
		Validation("v"):          http.StatusBadRequest,
		Authentication("a"):      http.StatusUnauthorized,
		Authorization("z"):       http.StatusForbidden,
		NotFound("n"):            http.StatusNotFound,
		Conflict("c", nil):       http.StatusBadRequest,
		RangeNotSatisfiable("r"): http.StatusRequestedRangeNotSatisfiable,
		TooManyRequests("t"):     http.StatusTooManyRequests,
		Internal("i", nil):       http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, err.Kind.Status(), err.Error())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NotFound("Movie not found"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.Equal(t, "Movie not found", PublicMessage(wrapped))

	plain := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(plain))
	assert.Equal(t, "Internal server error", PublicMessage(plain))
	assert.False(t, Is(nil, KindInternal))
}

func TestRespond_HidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/internal", func(c *gin.Context) {
		Respond(c, Internal("Failed to fetch movies", errors.New("pq: relation movies does not exist")))
	})
	router.GET("/validation", func(c *gin.Context) {
		Respond(c, Validationf("invalid %s", "id"))
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/internal", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch movies"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validation", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"invalid id"}`, rr.Body.String())
}
