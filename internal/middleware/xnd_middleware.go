package middleware

import (
	"log/slog"
	"net/http"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/monitoring"
	"github.com/gin-gonic/gin"
)

const CallbackTokenHeader = "x-callback-token"

// CallbackToken drops webhook deliveries whose x-callback-token does not
// match. They are still answered with 200 so the provider stops retrying.
func CallbackToken(expected string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !helpers.CallbackTokenValid(expected, c.GetHeader(CallbackTokenHeader)) {
			monitoring.TrackWebhook("rejected")
			logger.Warn("webhook callback token mismatch", "remote_addr", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"received": false})
			return
		}
		c.Next()
	}
}
