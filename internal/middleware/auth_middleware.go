package middleware

import (
	"strings"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/gin-gonic/gin"
)

type TokenVerifier interface {
	Verify(token string) error
}

func AdminAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			helpers.RespondWithAppError(c, helpers.NewError(helpers.KindUnauthorized, "Authorization token required."))
			return
		}

		if err := verifier.Verify(strings.TrimSpace(token)); err != nil {
			helpers.RespondWithAppError(c, err)
			return
		}

		c.Set("role", "admin")
		c.Next()
	}
}
