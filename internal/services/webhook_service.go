package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/farellandr/ticketgate/internal/idempotency"
	"github.com/farellandr/ticketgate/internal/monitoring"
)

// ProviderID accepts a payment ID sent either as a JSON string or a number.
type ProviderID string

func (id *ProviderID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProviderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ProviderID(n.String())
	return nil
}

// Notification covers both accepted webhook shapes: the generic
// {type: "payment", data: {id}} event and the Xendit invoice callback.
type Notification struct {
	Type string `json:"type"`
	Data struct {
		ID ProviderID `json:"id"`
	} `json:"data"`

	ID         ProviderID `json:"id"`
	ExternalID string     `json:"external_id"`
	Status     string     `json:"status"`
}

// PaymentID returns the provider payment the notification is about, or ""
// when it is not a payment event.
func (n *Notification) PaymentID() string {
	if n.Type != "" {
		if n.Type != "payment" {
			return ""
		}
		return string(n.Data.ID)
	}
	return string(n.ID)
}

const (
	WebhookIgnored     = "ignored"
	WebhookDuplicate   = "duplicate"
	WebhookNotApproved = "not_approved"
	WebhookAlreadyPaid = "already_paid"
	WebhookConfirmed   = "confirmed"
	WebhookFailed      = "error"
)

type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, inscriptionID, providerRef string) (bool, error)
}

type WebhookService struct {
	gateway   PaymentGateway
	confirmer PaymentConfirmer
	guard     idempotency.Guard
	logger    *slog.Logger
}

func NewWebhookService(gateway PaymentGateway, confirmer PaymentConfirmer, guard idempotency.Guard, logger *slog.Logger) *WebhookService {
	if guard == nil {
		guard = idempotency.Nop{}
	}
	return &WebhookService{gateway: gateway, confirmer: confirmer, guard: guard, logger: logger}
}

// Handle processes one delivery and returns its outcome. The payment is
// always re-fetched from the provider; the notification body is not trusted
// beyond its ID.
func (s *WebhookService) Handle(ctx context.Context, n Notification) (string, error) {
	result, err := s.handle(ctx, n)
	monitoring.TrackWebhook(result)
	return result, err
}

func (s *WebhookService) handle(ctx context.Context, n Notification) (string, error) {
	paymentID := n.PaymentID()
	if paymentID == "" {
		return WebhookIgnored, nil
	}

	claimed, err := s.guard.Acquire(ctx, paymentID)
	if err != nil {
		s.logger.Warn("webhook dedupe unavailable", "payment_id", paymentID, "error", err)
		claimed = true
	}
	if !claimed {
		s.logger.Info("duplicate webhook delivery", "payment_id", paymentID)
		return WebhookDuplicate, nil
	}

	result, err := s.process(ctx, paymentID)
	if result != WebhookConfirmed && result != WebhookAlreadyPaid {
		if releaseErr := s.guard.Release(ctx, paymentID); releaseErr != nil {
			s.logger.Warn("webhook dedupe release failed", "payment_id", paymentID, "error", releaseErr)
		}
	}
	return result, err
}

func (s *WebhookService) process(ctx context.Context, paymentID string) (string, error) {
	p, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		s.logger.Error("fetch payment failed", "payment_id", paymentID, "error", err)
		return WebhookFailed, err
	}
	if p.ExternalReference == "" {
		s.logger.Info("payment without external reference", "payment_id", paymentID)
		return WebhookIgnored, nil
	}
	if !p.Approved() {
		s.logger.Info("payment not approved", "payment_id", paymentID, "status", p.Status)
		return WebhookNotApproved, nil
	}

	transitioned, err := s.confirmer.ConfirmPayment(ctx, p.ExternalReference, p.ID)
	if err != nil {
		s.logger.Error("confirm payment failed", "payment_id", paymentID, "inscription_id", p.ExternalReference, "error", err)
		return WebhookFailed, err
	}
	if !transitioned {
		return WebhookAlreadyPaid, nil
	}
	return WebhookConfirmed, nil
}
