package catalog

import (
	"errors"
	"net/http"

	"github.com/cinestream/cinestream/internal/auth"
	"github.com/cinestream/cinestream/pkg/apperr"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/cinestream/cinestream/pkg/utils"
	"github.com/gin-gonic/gin"
)

// Handler serves the public catalog and the per-user lists and reviews.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// ListMovies searches, filters, sorts and paginates the catalog.
func (h *Handler) ListMovies(c *gin.Context) {
	var raw models.MovieListQuery
	if err := c.ShouldBindQuery(&raw); err != nil {
		apperr.Respond(c, apperr.Validation(err.Error()))
		return
	}
	q, err := ParseListQuery(raw)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	list, err := h.store.List(c.Request.Context(), q)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to fetch movies", err))
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetMovie returns a movie with reviews and, for a signed-in viewer, their
// progress and list membership.
func (h *Handler) GetMovie(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var userID int64
	if identity, ok := auth.CurrentIdentity(c); ok {
		userID = identity.ID
	}

	detail, err := h.store.Detail(c.Request.Context(), id, userID)
	if err != nil {
		respondStore(c, err, "Failed to fetch movie")
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) Featured(c *gin.Context) {
	movies, err := h.store.Featured(c.Request.Context())
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to fetch featured movies", err))
		return
	}
	c.JSON(http.StatusOK, movies)
}

func (h *Handler) ByGenre(c *gin.Context) {
	movies, err := h.store.ByGenre(c.Request.Context(), c.Param("genre"))
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to fetch movies by genre", err))
		return
	}
	c.JSON(http.StatusOK, movies)
}

func (h *Handler) AddFavorite(c *gin.Context) { h.add(c, Favorites, "Added to favorites") }
func (h *Handler) RemoveFavorite(c *gin.Context) { h.remove(c, Favorites, "Removed from favorites") }
func (h *Handler) ListFavorites(c *gin.Context) { h.list(c, Favorites) }
func (h *Handler) AddToWatchlist(c *gin.Context) { h.add(c, Watchlist, "Added to watchlist") }
func (h *Handler) RemoveWatchlist(c *gin.Context) { h.remove(c, Watchlist, "Removed from watchlist") }
func (h *Handler) ListWatchlist(c *gin.Context) { h.list(c, Watchlist) }

func (h *Handler) add(c *gin.Context, coll Collection, msg string) {
	identity, id, ok := userAndMovie(c)
	if !ok {
		return
	}
	if err := h.store.Add(c.Request.Context(), coll, identity.ID, id); err != nil {
		respondStore(c, err, "Failed to update "+string(coll))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) remove(c *gin.Context, coll Collection, msg string) {
	identity, id, ok := userAndMovie(c)
	if !ok {
		return
	}
	if err := h.store.Remove(c.Request.Context(), coll, identity.ID, id); err != nil {
		respondStore(c, err, "Failed to update "+string(coll))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) list(c *gin.Context, coll Collection) {
	identity, ok := auth.CurrentIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.Authentication("Authentication required"))
		return
	}
	movies, err := h.store.ListCollection(c.Request.Context(), coll, identity.ID)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to fetch "+string(coll), err))
		return
	}
	c.JSON(http.StatusOK, movies)
}

// AddReview creates or replaces the caller's review of a movie.
func (h *Handler) AddReview(c *gin.Context) {
	identity, id, ok := userAndMovie(c)
	if !ok {
		return
	}
	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Rating == nil || *req.Rating < 1 || *req.Rating > 5 {
		apperr.Respond(c, apperr.Validation("Rating must be between 1 and 5"))
		return
	}

	review, err := h.store.UpsertReview(c.Request.Context(), identity.ID, id, *req.Rating, req.Comment)
	if err != nil {
		respondStore(c, err, "Failed to add review")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review added successfully", "review": review})
}

func userAndMovie(c *gin.Context) (models.Identity, int64, bool) {
	identity, ok := auth.CurrentIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.Authentication("Authentication required"))
		return models.Identity{}, 0, false
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return models.Identity{}, 0, false
	}
	return identity, id, true
}

func respondStore(c *gin.Context, err error, msg string) {
	if errors.Is(err, ErrMovieNotFound) {
		apperr.Respond(c, apperr.NotFound("Movie not found"))
		return
	}
	apperr.Respond(c, apperr.Internal(msg, err))
}
