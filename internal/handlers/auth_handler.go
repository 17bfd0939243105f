package handlers

import (
	"net/http"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/services"
	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type AuthHandler struct {
	auth *services.AdminAuth
}

func NewAuthHandler(auth *services.AdminAuth) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithAppError(c, helpers.BindingError(err))
		return
	}

	token, err := h.auth.Login(req.Password)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
