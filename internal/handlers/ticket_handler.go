package handlers

import (
	"net/http"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/services"
	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	inscriptions *services.InscriptionService
}

func NewTicketHandler(inscriptions *services.InscriptionService) *TicketHandler {
	return &TicketHandler{inscriptions: inscriptions}
}

func (h *TicketHandler) GetStatus(c *gin.Context) {
	status, err := h.inscriptions.Status(c.Request.Context(), c.Query("id"))
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// GetTicket serves the inscription-level ticket of legacy inscriptions.
func (h *TicketHandler) GetTicket(c *gin.Context) {
	view, err := h.inscriptions.Ticket(c.Request.Context(), c.Query("id"))
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *TicketHandler) GetTickets(c *gin.Context) {
	tickets, err := h.inscriptions.Tickets(c.Request.Context(), c.Query("id"))
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, tickets)
}
