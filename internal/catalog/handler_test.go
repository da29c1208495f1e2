package catalog_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/cinestream/cinestream/internal/auth"
	"github.com/cinestream/cinestream/internal/catalog"
	"github.com/cinestream/cinestream/internal/testutil"
	"github.com/cinestream/cinestream/pkg/database"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCatalogRouter(t *testing.T) (*gin.Engine, *database.DB) {
	db := testutil.NewDB(t)
	users := auth.NewStore(db)
	h := catalog.NewHandler(catalog.NewStore(db))

	router := gin.New()
	movies := router.Group("/api/movies")
	movies.GET("", h.ListMovies)
	movies.GET("/featured", h.Featured)
	movies.GET("/genre/:genre", h.ByGenre)
	movies.GET("/:id", auth.OptionalAuth(users, testutil.Secret, false), h.GetMovie)

	protected := movies.Group("")
	protected.Use(auth.AuthMiddleware(users, testutil.Secret))
	protected.POST("/:id/favorite", h.AddFavorite)
	protected.DELETE("/:id/favorite", h.RemoveFavorite)
	protected.GET("/user/favorites", h.ListFavorites)
	protected.POST("/:id/watchlist", h.AddToWatchlist)
	protected.GET("/user/watchlist", h.ListWatchlist)
	protected.POST("/:id/review", h.AddReview)
	return router, db
}

func TestListMovies_Response(t *testing.T) {
	router, db := setupCatalogRouter(t)
	testutil.CreateMovie(t, db, testutil.MovieSeed{Title: "One", Genre: "Drama"})
	testutil.CreateMovie(t, db, testutil.MovieSeed{Title: "Two", Genre: "Comedy"})

	resp := testutil.Do(t, router, http.MethodGet, "/api/movies?genre=Drama", "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var list models.MovieList
	testutil.DecodeJSON(t, resp, &list)
	require.Len(t, list.Movies, 1)
	assert.Equal(t, "One", list.Movies[0].Title)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 20, Total: 1, Pages: 1}, list.Pagination)
	assert.NotContains(t, resp.Body.String(), "video_path")

	resp = testutil.Do(t, router, http.MethodGet, "/api/movies?year=soon", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetMovie_NotFoundAndAnonymous(t *testing.T) {
	router, db := setupCatalogRouter(t)
	movie := testutil.CreateMovie(t, db, testutil.MovieSeed{})

	resp := testutil.Do(t, router, http.MethodGet, "/api/movies/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"Movie not found"}`, resp.Body.String())

	resp = testutil.Do(t, router, http.MethodGet, fmt.Sprintf("/api/movies/%d", movie.ID), "bad-token", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var detail models.MovieDetail
	testutil.DecodeJSON(t, resp, &detail)
	assert.False(t, detail.IsFavorite)
	assert.NotNil(t, detail.Reviews)
}

func TestFavorite_RequiresAuthAndIsIdempotent(t *testing.T) {
	router, db := setupCatalogRouter(t)
	user := testutil.CreateUser(t, db)
	token := testutil.Token(t, user)
	movie := testutil.CreateMovie(t, db, testutil.MovieSeed{})
	path := fmt.Sprintf("/api/movies/%d/favorite", movie.ID)

	resp := testutil.Do(t, router, http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	for i := 0; i < 2; i++ {
		resp = testutil.Do(t, router, http.MethodPost, path, token, nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	resp = testutil.Do(t, router, http.MethodGet, "/api/movies/user/favorites", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var favorites []models.Movie
	testutil.DecodeJSON(t, resp, &favorites)
	assert.Len(t, favorites, 1)

	resp = testutil.Do(t, router, http.MethodGet, fmt.Sprintf("/api/movies/%d", movie.ID), token, nil)
	var detail models.MovieDetail
	testutil.DecodeJSON(t, resp, &detail)
	assert.True(t, detail.IsFavorite)

	resp = testutil.Do(t, router, http.MethodPost, "/api/movies/9999/watchlist", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = testutil.Do(t, router, http.MethodPost, "/api/movies/abc/watchlist", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAddReview_Validation(t *testing.T) {
	router, db := setupCatalogRouter(t)
	user := testutil.CreateUser(t, db)
	token := testutil.Token(t, user)
	movie := testutil.CreateMovie(t, db, testutil.MovieSeed{})
	path := fmt.Sprintf("/api/movies/%d/review", movie.ID)

	for _, body := range []interface{}{
		gin.H{"rating": 0},
		gin.H{"rating": 6},
		gin.H{"comment": "no rating"},
		gin.H{"rating": "five"},
	} {
		resp := testutil.Do(t, router, http.MethodPost, path, token, body)
		assert.Equal(t, http.StatusBadRequest, resp.Code, "%v", body)
		assert.JSONEq(t, `{"error":"Rating must be between 1 and 5"}`, resp.Body.String())
	}

	resp := testutil.Do(t, router, http.MethodPost, path, token, gin.H{"rating": 4, "comment": "solid"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	resp = testutil.Do(t, router, http.MethodPost, path, token, gin.H{"rating": 2})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = testutil.Do(t, router, http.MethodGet, fmt.Sprintf("/api/movies/%d", movie.ID), "", nil)
	var detail models.MovieDetail
	testutil.DecodeJSON(t, resp, &detail)
	require.Len(t, detail.Reviews, 1)
	assert.Equal(t, 2, detail.Reviews[0].Rating)
	require.NotNil(t, detail.AverageRating)
	assert.Equal(t, 2.0, *detail.AverageRating)
}

func TestFeaturedAndGenre(t *testing.T) {
	router, db := setupCatalogRouter(t)
	for i := 0; i < 12; i++ {
		testutil.CreateMovie(t, db, testutil.MovieSeed{Genre: "Horror"})
	}

	resp := testutil.Do(t, router, http.MethodGet, "/api/movies/featured", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var featured []models.Movie
	testutil.DecodeJSON(t, resp, &featured)
	assert.Len(t, featured, catalog.FeaturedLimit)

	resp = testutil.Do(t, router, http.MethodGet, "/api/movies/genre/horror", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var byGenre []models.Movie
	testutil.DecodeJSON(t, resp, &byGenre)
	assert.Len(t, byGenre, 12)
}
