package services

import (
	"context"
	"strings"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
)

// TicketView is the single-ticket page of an inscription.
type TicketView struct {
	ParticipantName string `json:"participantName"`
	TicketType      string `json:"ticketType"`
	Quantity        int    `json:"quantity"`
	QRCodeDataURL   string `json:"qrCodeDataURL,omitempty"`
}

type InscriptionPage struct {
	Inscriptions []models.Inscription `json:"inscriptions"`
	Page         int                  `json:"page"`
	Limit        int                  `json:"limit"`
	Total        int64                `json:"total"`
}

type InscriptionService struct {
	store Store
}

func NewInscriptionService(store Store) *InscriptionService {
	return &InscriptionService{store: store}
}

func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", helpers.NewError(helpers.KindMissingField, "The inscription ID is required.")
	}
	return id, nil
}

func (s *InscriptionService) find(ctx context.Context, id string) (*models.Inscription, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	inscription, err := s.store.FindInscription(ctx, id)
	if err != nil {
		return nil, storeError(err, "Inscription not found.")
	}
	return inscription, nil
}

func (s *InscriptionService) Status(ctx context.Context, id string) (models.PaymentStatus, error) {
	inscription, err := s.find(ctx, id)
	if err != nil {
		return "", err
	}
	return inscription.PaymentStatus, nil
}

func (s *InscriptionService) Ticket(ctx context.Context, id string) (*TicketView, error) {
	inscription, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TicketView{
		ParticipantName: inscription.MainParticipant.Name,
		TicketType:      inscription.TicketType,
		Quantity:        inscription.Quantity,
		QRCodeDataURL:   inscription.QRCodeDataURL,
	}, nil
}

func (s *InscriptionService) Tickets(ctx context.Context, id string) ([]models.Ticket, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	tickets, err := s.store.ListTickets(ctx, id)
	if err != nil {
		return nil, storeError(err, "No tickets found for this inscription.")
	}
	if len(tickets) == 0 {
		return nil, helpers.NewError(helpers.KindNotFound, "No tickets found for this inscription.")
	}
	return tickets, nil
}

func (s *InscriptionService) List(ctx context.Context, page, limit int) (*InscriptionPage, error) {
	inscriptions, total, err := s.store.ListInscriptions(ctx, page, limit)
	if err != nil {
		return nil, storeError(err, "Inscription not found.")
	}
	if inscriptions == nil {
		inscriptions = []models.Inscription{}
	}
	return &InscriptionPage{Inscriptions: inscriptions, Page: page, Limit: limit, Total: total}, nil
}

func (s *InscriptionService) Delete(ctx context.Context, id string) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteInscription(ctx, id); err != nil {
		return storeError(err, "Inscription not found.")
	}
	return nil
}

func (s *InscriptionService) CheckinLogs(ctx context.Context) ([]models.CheckinLog, error) {
	logs, err := s.store.ListCheckinLogs(ctx)
	if err != nil {
		return nil, storeError(err, "No check-ins found.")
	}
	if logs == nil {
		logs = []models.CheckinLog{}
	}
	return logs, nil
}
