package handlers

import (
	"net/http"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/services"
	"github.com/gin-gonic/gin"
)

type InscriptionIDRequest struct {
	ID string `json:"id" binding:"required"`
}

type AdminHandler struct {
	inscriptions *services.InscriptionService
	fulfillment  *services.FulfillmentService
}

func NewAdminHandler(inscriptions *services.InscriptionService, fulfillment *services.FulfillmentService) *AdminHandler {
	return &AdminHandler{inscriptions: inscriptions, fulfillment: fulfillment}
}

func (h *AdminHandler) ListInscriptions(c *gin.Context) {
	page, limit, err := helpers.ParsePagination(c.Query("page"), c.Query("limit"))
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	result, err := h.inscriptions.List(c.Request.Context(), page, limit)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) Approve(c *gin.Context) {
	id, ok := bindInscriptionID(c)
	if !ok {
		return
	}

	if err := h.fulfillment.Approve(c.Request.Context(), id); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "message": "Inscription approved and email sent."})
}

func (h *AdminHandler) Delete(c *gin.Context) {
	id, ok := bindInscriptionID(c)
	if !ok {
		return
	}

	if err := h.inscriptions.Delete(c.Request.Context(), id); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "message": "Inscription deleted."})
}

func (h *AdminHandler) RegenerateQRCodes(c *gin.Context) {
	count, err := h.fulfillment.RegenerateQRCodes(c.Request.Context())
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func bindInscriptionID(c *gin.Context) (string, bool) {
	var req InscriptionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithAppError(c, helpers.BindingError(err))
		return "", false
	}
	return req.ID, true
}
