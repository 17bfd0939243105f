package middleware

import (
	"net/http"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/gin-gonic/gin"
)

// Misconfigured fails every request fast with initErr, the error captured
// while the server was starting. A nil initErr lets requests through.
func Misconfigured(initErr error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if initErr != nil {
			helpers.RespondWithAppError(c, initErr)
			return
		}
		c.Next()
	}
}

// MisconfiguredWebhook is Misconfigured for the payment webhook, which must
// keep answering 200.
func MisconfiguredWebhook(initErr error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if initErr != nil {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"received": false})
			return
		}
		c.Next()
	}
}
