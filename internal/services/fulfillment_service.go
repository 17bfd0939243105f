package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/farellandr/ticketgate/config"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/mailer"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/monitoring"
	"github.com/farellandr/ticketgate/internal/repository"
)

// FulfillmentService turns an inscription into admissible tickets: it marks
// it paid, issues QR codes and sends the confirmation email.
type FulfillmentService struct {
	store    Store
	mailer   ConfirmationSender
	catalog  config.Catalog
	baseURL  string
	logger   *slog.Logger
	now      func() time.Time
	encodeQR func(content string) (string, error)
}

func NewFulfillmentService(store Store, sender ConfirmationSender, catalog config.Catalog, baseURL string, logger *slog.Logger) *FulfillmentService {
	return &FulfillmentService{
		store:    store,
		mailer:   sender,
		catalog:  catalog,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
		now:      utcNow,
		encodeQR: helpers.QRCodeDataURL,
	}
}

// ConfirmPayment marks the inscription paid after the provider approved
// providerRef. It reports false, with no side effects, when the inscription
// was already paid.
func (s *FulfillmentService) ConfirmPayment(ctx context.Context, inscriptionID, providerRef string) (bool, error) {
	inscription, err := s.store.FindInscription(ctx, inscriptionID)
	if err != nil {
		return false, storeError(err, "Inscription not found.")
	}
	if inscription.IsPaid() {
		return false, nil
	}
	return s.fulfill(ctx, inscription, providerRef)
}

// Approve fulfills a voucher inscription. Anything not awaiting approval is
// reported as not found.
func (s *FulfillmentService) Approve(ctx context.Context, inscriptionID string) error {
	const message = "Inscription not found or already processed."
	inscription, err := s.store.FindInscription(ctx, inscriptionID)
	if err != nil {
		return storeError(err, message)
	}
	if inscription.PaymentStatus != models.PaymentAwaitingApproval {
		return helpers.NewError(helpers.KindNotFound, message)
	}

	transitioned, err := s.fulfill(ctx, inscription, "")
	if err != nil {
		return err
	}
	if !transitioned {
		return helpers.NewError(helpers.KindNotFound, message)
	}
	return nil
}

// RegenerateQRCodes issues QR codes for paid inscriptions that never got
// them and returns how many inscriptions were processed.
func (s *FulfillmentService) RegenerateQRCodes(ctx context.Context) (int, error) {
	inscriptions, err := s.store.ListPaidWithoutQRCodes(ctx)
	if err != nil {
		return 0, storeError(err, "Inscription not found.")
	}

	count := 0
	for i := range inscriptions {
		inscription := &inscriptions[i]
		codes, legacy, err := s.qrCodes(inscription)
		if err != nil {
			return count, err
		}
		if err := s.store.StoreQRCodes(ctx, inscription.ID, codes, legacy); err != nil {
			return count, storeError(err, "Inscription not found.")
		}
		s.logger.Info("qr codes regenerated", "inscription_id", inscription.ID, "tickets", len(codes))
		count++
	}
	return count, nil
}

func (s *FulfillmentService) fulfill(ctx context.Context, inscription *models.Inscription, providerRef string) (bool, error) {
	codes, legacy, err := s.qrCodes(inscription)
	if err != nil {
		return false, err
	}

	transitioned, err := s.store.MarkPaid(ctx, inscription.ID, repository.PaidUpdate{
		ProviderReference: providerRef,
		TicketQRCodes:     codes,
		LegacyQRCode:      legacy,
		At:                s.now(),
	})
	if err != nil {
		return false, storeError(err, "Inscription not found.")
	}
	if !transitioned {
		s.logger.Info("inscription already paid", "inscription_id", inscription.ID)
		return false, nil
	}
	s.logger.Info("inscription paid", "inscription_id", inscription.ID, "provider_reference", providerRef, "tickets", len(inscription.Tickets))

	s.removeDuplicates(ctx, inscription)
	s.sendConfirmation(ctx, inscription)
	return true, nil
}

// qrCodes encodes one QR per ticket, or the inscription ID itself for legacy
// inscriptions without tickets.
func (s *FulfillmentService) qrCodes(inscription *models.Inscription) (map[string]string, string, error) {
	if inscription.Legacy() {
		legacy, err := s.encodeQR(inscription.ID)
		if err != nil {
			return nil, "", helpers.WrapError(helpers.KindInternal, "Failed to generate the QR code.", err)
		}
		return nil, legacy, nil
	}

	codes := make(map[string]string, len(inscription.Tickets))
	for i := range inscription.Tickets {
		ticket := &inscription.Tickets[i]
		code, err := s.encodeQR(ticket.QRPayload())
		if err != nil {
			return nil, "", helpers.WrapError(helpers.KindInternal, "Failed to generate the QR code.", err)
		}
		codes[ticket.ID] = code
	}
	return codes, "", nil
}

// removeDuplicates drops abandoned pending checkouts of the same payer.
// Failures are logged only.
func (s *FulfillmentService) removeDuplicates(ctx context.Context, inscription *models.Inscription) {
	email := inscription.MainParticipant.Email
	if email == "" {
		return
	}
	deleted, err := s.store.DeletePendingByEmail(ctx, email, inscription.ID)
	if err != nil {
		s.logger.Warn("duplicate cleanup failed", "inscription_id", inscription.ID, "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("duplicate pending inscriptions removed", "inscription_id", inscription.ID, "count", deleted)
	}
}

func (s *FulfillmentService) sendConfirmation(ctx context.Context, inscription *models.Inscription) {
	if inscription.MainParticipant.Email == "" {
		return
	}

	confirmation := mailer.Confirmation{
		To:          inscription.MainParticipant.Email,
		Name:        inscription.MainParticipant.Name,
		EventName:   s.catalog.EventName,
		TicketURL:   s.baseURL + "/ticket.html?id=" + inscription.ID,
		TicketCount: max(len(inscription.Tickets), 1),
	}
	if inscription.PaymentStatus == models.PaymentAwaitingApproval && inscription.AppliedCoupon != nil {
		confirmation.Coupon = *inscription.AppliedCoupon
	}

	if err := s.mailer.SendConfirmation(ctx, confirmation); err != nil {
		monitoring.TrackEmail("failure")
		s.logger.Error("confirmation email failed", "inscription_id", inscription.ID, "error", err)
		return
	}
	monitoring.TrackEmail("sent")
}
