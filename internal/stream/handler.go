package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/cinestream/cinestream/internal/auth"
	"github.com/cinestream/cinestream/internal/catalog"
	"github.com/cinestream/cinestream/pkg/apperr"
	"github.com/cinestream/cinestream/pkg/logger"
	"github.com/cinestream/cinestream/pkg/metrics"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/cinestream/cinestream/pkg/utils"
	"github.com/gin-gonic/gin"
)

const touchTimeout = 5 * time.Second

// Toucher records that a user started watching a movie.
type Toucher interface {
	Touch(ctx context.Context, userID, movieID int64) error
}

// Handler serves video bytes by HTTP range and the player metadata around them.
type Handler struct {
	movies   *catalog.Store
	progress Toucher
	log      *logger.Logger

	inflight sync.WaitGroup
}

func NewHandler(movies *catalog.Store, progress Toucher) *Handler {
	return &Handler{
		movies:   movies,
		progress: progress,
		log:      logger.WithContext("component", "stream"),
	}
}

// Stream answers a Range request with at most ChunkSize+1 bytes of the
// movie's video file.
func (h *Handler) Stream(c *gin.Context) {
	rangeHeader := c.GetHeader("Range")
	if rangeHeader == "" {
		metrics.StreamRequests.WithLabelValues("400").Inc()
		c.String(http.StatusBadRequest, "Range header required")
		return
	}

	id, err := utils.ParamID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	movie, err := h.movies.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrMovieNotFound) {
			h.fail(c, apperr.NotFound("Movie not found"))
			return
		}
		h.fail(c, apperr.Internal("Streaming failed", err))
		return
	}

	f, err := os.Open(movie.VideoPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.fail(c, apperr.NotFound("Video file not found"))
			return
		}
		h.fail(c, apperr.Internal("Streaming failed", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.fail(c, apperr.Internal("Streaming failed", err))
		return
	}
	size := info.Size()

	r, err := ParseRange(rangeHeader, size)
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		h.fail(c, apperr.RangeNotSatisfiable("Requested range not satisfiable"))
		return
	}
	if _, err := f.Seek(r.Start, io.SeekStart); err != nil {
		h.fail(c, apperr.Internal("Streaming failed", err))
		return
	}

	if identity, ok := auth.CurrentIdentity(c); ok {
		h.touch(identity.ID, movie.ID)
	}

	c.Header("Content-Range", r.ContentRange(size))
	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Length", strconv.FormatInt(r.Length(), 10))
	c.Header("Content-Type", "video/mp4")
	c.Status(http.StatusPartialContent)
	metrics.StreamRequests.WithLabelValues("206").Inc()

	metrics.StreamStarted()
	n, err := io.CopyN(c.Writer, f, r.Length())
	metrics.StreamFinished(n)
	if err != nil {
		h.log.Debug("stream_aborted", "movie_id", movie.ID, "written", n, "error", err)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	metrics.StreamRequests.WithLabelValues(strconv.Itoa(apperr.KindOf(err).Status())).Inc()
	apperr.Respond(c, err)
}

// touch refreshes last_watched off the request path. Failures are logged and
// counted only.
func (h *Handler) touch(userID, movieID int64) {
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()

		if err := h.progress.Touch(ctx, userID, movieID); err != nil {
			metrics.ProgressWrites.WithLabelValues("stream", "error").Inc()
			h.log.Warn("progress_touch_failed", "user_id", userID, "movie_id", movieID, "error", err)
			return
		}
		metrics.ProgressWrites.WithLabelValues("stream", "ok").Inc()
	}()
}

// Drain waits for in-flight progress writes or until ctx is done.
func (h *Handler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Info returns the movie with the caller's position and the video size.
func (h *Handler) Info(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var userID int64
	if identity, ok := auth.CurrentIdentity(c); ok {
		userID = identity.ID
	}

	detail, err := h.movies.Detail(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, catalog.ErrMovieNotFound) {
			apperr.Respond(c, apperr.NotFound("Movie not found"))
			return
		}
		apperr.Respond(c, apperr.Internal("Failed to get movie info", err))
		return
	}

	var size int64
	if st, err := os.Stat(detail.VideoPath); err == nil {
		size = st.Size()
	}
	c.JSON(http.StatusOK, models.StreamInfo{
		Movie:         detail.Movie,
		Progress:      detail.UserProgress,
		TotalDuration: detail.TotalDuration,
		VideoSize:     size,
		StreamingURL:  detail.StreamURL,
	})
}

func (h *Handler) Recommended(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	movies, err := h.movies.Recommended(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrMovieNotFound) {
			apperr.Respond(c, apperr.NotFound("Movie not found"))
			return
		}
		apperr.Respond(c, apperr.Internal("Failed to get recommendations", err))
		return
	}
	c.JSON(http.StatusOK, movies)
}
