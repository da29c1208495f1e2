package health

import (
	"context"
	"net/http"
	"time"

	"github.com/cinestream/cinestream/pkg/database"
	"github.com/cinestream/cinestream/pkg/metrics"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

type Handler struct {
	db *database.DB
}

func NewHandler(db *database.DB) *Handler {
	return &Handler{db: db}
}

// Health reports liveness along with a few streaming counters.
func (h *Handler) Health(c *gin.Context) {
	s := metrics.GetSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime":         s.Uptime.Truncate(time.Second).String(),
		"active_streams": s.ActiveStreams,
		"streams_served": s.StreamsServed,
		"bytes_streamed": humanize.Bytes(uint64(s.BytesStreamed)),
	})
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (h *Handler) Readyz(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "database_not_initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "database_ping_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
