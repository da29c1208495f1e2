package progress

import (
	"errors"
	"net/http"

	"github.com/cinestream/cinestream/internal/auth"
	"github.com/cinestream/cinestream/internal/catalog"
	"github.com/cinestream/cinestream/pkg/apperr"
	"github.com/cinestream/cinestream/pkg/metrics"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/cinestream/cinestream/pkg/utils"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) UpdateProgress(c *gin.Context) {
	identity, ok := auth.CurrentIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.Authentication("Authentication required"))
		return
	}
	movieID, err := utils.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	var req models.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Progress == nil || req.Duration == nil {
		apperr.Respond(c, apperr.Validation("progress and duration are required"))
		return
	}
	if *req.Progress < 0 || *req.Duration < 0 {
		apperr.Respond(c, apperr.Validation("progress and duration must not be negative"))
		return
	}
	completed := req.Completed != nil && *req.Completed

	p, err := h.store.Update(c.Request.Context(), identity.ID, movieID, *req.Progress, *req.Duration, completed)
	if err != nil {
		metrics.ProgressWrites.WithLabelValues("client", "error").Inc()
		if errors.Is(err, catalog.ErrMovieNotFound) {
			apperr.Respond(c, apperr.NotFound("Movie not found"))
			return
		}
		apperr.Respond(c, apperr.Internal("Failed to update progress", err))
		return
	}
	metrics.ProgressWrites.WithLabelValues("client", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Progress updated", "progress": p})
}

func (h *Handler) GetProgress(c *gin.Context) {
	identity, ok := auth.CurrentIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.Authentication("Authentication required"))
		return
	}
	movieID, err := utils.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	v, err := h.store.Get(c.Request.Context(), identity.ID, movieID)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to get progress", err))
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) ContinueWatching(c *gin.Context) {
	identity, ok := auth.CurrentIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.Authentication("Authentication required"))
		return
	}
	movies, err := h.store.ContinueWatching(c.Request.Context(), identity.ID)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to get continue watching", err))
		return
	}
	c.JSON(http.StatusOK, movies)
}

func (h *Handler) History(c *gin.Context) {
	identity, ok := auth.CurrentIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.Authentication("Authentication required"))
		return
	}
	page := utils.QueryInt(c, "page", 1)
	limit := utils.QueryInt(c, "limit", DefaultHistoryLimit)

	movies, err := h.store.History(c.Request.Context(), identity.ID, page, limit)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to get watch history", err))
		return
	}
	c.JSON(http.StatusOK, movies)
}
