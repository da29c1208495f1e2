package apperr

import (
	"github.com/cinestream/cinestream/pkg/logger"
	"github.com/cinestream/cinestream/pkg/telemetry"
	"github.com/gin-gonic/gin"
)

// Respond writes err as a JSON {"error": ...} body and aborts the chain.
// Internal errors are logged and reported with their cause; the client only
// sees the public message.
func Respond(c *gin.Context, err error) {
	kind := KindOf(err)
	if kind == KindInternal {
		logger.GetLogger().Error("request_failed",
			"route", c.FullPath(),
			"method", c.Request.Method,
			"error", err.Error())
		telemetry.CaptureError(err, map[string]string{
			"route":  c.FullPath(),
			"method": c.Request.Method,
		})
	}
	c.AbortWithStatusJSON(kind.Status(), gin.H{"error": PublicMessage(err)})
}
