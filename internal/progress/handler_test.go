package progress_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/cinestream/cinestream/internal/auth"
	"github.com/cinestream/cinestream/internal/catalog"
	"github.com/cinestream/cinestream/internal/progress"
	"github.com/cinestream/cinestream/internal/testutil"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	h := progress.NewHandler(progress.NewStore(db, catalog.NewStore(db)))

	router := gin.New()
	group := router.Group("/api/progress")
	group.Use(auth.AuthMiddleware(auth.NewStore(db), testutil.Secret))
	group.GET("/continue", h.ContinueWatching)
	group.GET("/history", h.History)
	group.PUT("/:id", h.UpdateProgress)
	group.GET("/:id", h.GetProgress)

	user := testutil.CreateUser(t, db)
	token := testutil.Token(t, user)
	movie := testutil.CreateMovie(t, db, testutil.MovieSeed{})
	path := fmt.Sprintf("/api/progress/%d", movie.ID)

	resp := testutil.Do(t, router, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = testutil.Do(t, router, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"progress":0,"duration":0,"completed":false}`, resp.Body.String())

	resp = testutil.Do(t, router, http.MethodPut, path, token, gin.H{"progress": -1, "duration": 10})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	resp = testutil.Do(t, router, http.MethodPut, path, token, gin.H{"duration": 10})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	resp = testutil.Do(t, router, http.MethodPut, "/api/progress/9999", token, gin.H{"progress": 1, "duration": 10})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = testutil.Do(t, router, http.MethodPut, path, token, gin.H{"progress": 61.5, "duration": 3600})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = testutil.Do(t, router, http.MethodGet, path, token, nil)
	assert.JSONEq(t, `{"progress":61.5,"duration":3600,"completed":false}`, resp.Body.String())

	resp = testutil.Do(t, router, http.MethodGet, "/api/progress/continue", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var watching []models.WatchedMovie
	testutil.DecodeJSON(t, resp, &watching)
	require.Len(t, watching, 1)
	assert.Equal(t, movie.ID, watching[0].ID)

	resp = testutil.Do(t, router, http.MethodGet, "/api/progress/history?page=2", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())
}
