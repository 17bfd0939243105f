package handlers

import (
	"net/http"

	"github.com/farellandr/ticketgate/internal/checkin"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/services"
	"github.com/gin-gonic/gin"
)

type CheckinRequest struct {
	TicketID string `json:"ticketId" binding:"required"`
}

type CheckinHandler struct {
	checkins     *checkin.Service
	inscriptions *services.InscriptionService
}

func NewCheckinHandler(checkins *checkin.Service, inscriptions *services.InscriptionService) *CheckinHandler {
	return &CheckinHandler{checkins: checkins, inscriptions: inscriptions}
}

func (h *CheckinHandler) Validate(c *gin.Context) {
	var req CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithAppError(c, helpers.BindingError(err))
		return
	}

	result, err := h.checkins.Validate(c.Request.Context(), req.TicketID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"message":         "VALID ENTRY",
		"participantName": result.ParticipantName,
		"ticketType":      result.TicketType,
		"checkedInAt":     result.CheckedInAt,
	})
}

func (h *CheckinHandler) List(c *gin.Context) {
	logs, err := h.inscriptions.CheckinLogs(c.Request.Context())
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}
