package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/farellandr/ticketgate/config"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/payment"
)

type CouponRef struct {
	Code string `json:"code"`
}

// HolderRequest is the paying participant, who receives the confirmation
// email.
type HolderRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	TaxID string `json:"cpf"`
	Phone string `json:"phone"`
}

type GuestRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
	TaxID string `json:"cpf"`
	Phone string `json:"phone"`
}

type OrderRequest struct {
	MainParticipant        HolderRequest  `json:"mainParticipant"`
	AdditionalParticipants []GuestRequest `json:"additionalParticipants" binding:"dive"`
	TicketType             string         `json:"ticket_type" binding:"required"`
	Quantity               int            `json:"quantity" binding:"min=1"`
	Coupon                 *CouponRef     `json:"coupon"`
}

func (req *OrderRequest) couponCode() string {
	if req.Coupon == nil {
		return ""
	}
	return models.NormalizeCouponCode(req.Coupon.Code)
}

type Preference struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
}

type CheckoutService struct {
	store   Store
	gateway PaymentGateway
	catalog config.Catalog
	baseURL string
	logger  *slog.Logger
}

func NewCheckoutService(store Store, gateway PaymentGateway, catalog config.Catalog, baseURL string, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		store:   store,
		gateway: gateway,
		catalog: catalog,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// CreatePreference records a pending inscription and opens a provider
// checkout for it. The inscription ID is the checkout's external reference,
// which is how the webhook finds it again.
func (s *CheckoutService) CreatePreference(ctx context.Context, req OrderRequest) (*Preference, error) {
	inscription, err := s.prepare(ctx, req, false)
	if err != nil {
		return nil, err
	}
	if inscription.TotalPrice.IsZero() {
		return nil, helpers.NewError(helpers.KindInvalidField,
			"This order is free. Request a voucher inscription instead.")
	}

	if err := s.store.CreateInscription(ctx, inscription); err != nil {
		return nil, storeError(err, "Inscription not found.")
	}

	checkout, err := s.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		ExternalReference: inscription.ID,
		Description:       fmt.Sprintf("%s ticket x%d - %s", strings.ToUpper(inscription.TicketType), inscription.Quantity, s.catalog.EventName),
		Amount:            inscription.TotalPrice,
		Currency:          s.catalog.Currency,
		PayerEmail:        inscription.MainParticipant.Email,
		SuccessURL:        s.baseURL + "/success.html?id=" + inscription.ID,
		FailureURL:        s.baseURL + "/failure.html?id=" + inscription.ID,
	})
	if err != nil {
		s.logger.Error("create checkout failed", "inscription_id", inscription.ID, "error", err)
		return nil, helpers.WrapError(helpers.KindUpstreamFailure, "Failed to create the payment checkout.", err)
	}

	s.logger.Info("checkout created", "inscription_id", inscription.ID, "checkout_id", checkout.ID, "total", inscription.TotalPrice.String())
	return &Preference{ID: inscription.ID, RedirectURL: checkout.RedirectURL}, nil
}

// RequestVoucher records a free inscription waiting for manual approval. Only
// a 100% percentage coupon qualifies.
func (s *CheckoutService) RequestVoucher(ctx context.Context, req OrderRequest) (*models.Inscription, error) {
	if req.couponCode() == "" {
		return nil, helpers.NewError(helpers.KindMissingField, "A coupon is required for a voucher inscription.")
	}
	inscription, err := s.prepare(ctx, req, true)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateInscription(ctx, inscription); err != nil {
		return nil, storeError(err, "Inscription not found.")
	}

	s.logger.Info("voucher inscription requested", "inscription_id", inscription.ID, "coupon", *inscription.AppliedCoupon)
	return inscription, nil
}

func (s *CheckoutService) ValidateCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	if models.NormalizeCouponCode(code) == "" {
		return nil, helpers.NewError(helpers.KindMissingField, "The coupon code is required.")
	}
	coupon, err := s.store.FindCoupon(ctx, code)
	if err != nil {
		return nil, storeError(err, "Invalid coupon or not found.")
	}
	return coupon, nil
}

// prepare prices req and builds the inscription with one ticket per attendee.
// voucher switches both to awaiting_approval and requires a fully free coupon.
// Single fields are checked by the binding tags when the request is decoded.
func (s *CheckoutService) prepare(ctx context.Context, req OrderRequest, voucher bool) (*models.Inscription, error) {
	if req.Quantity != 1+len(req.AdditionalParticipants) {
		return nil, helpers.NewError(helpers.KindInvalidField, "Quantity must match the number of participants.")
	}

	ticketType := strings.ToLower(strings.TrimSpace(req.TicketType))
	unitPrice, ok := s.catalog.Price(ticketType)
	if !ok {
		return nil, helpers.NewError(helpers.KindInvalidField, "Invalid ticket type.")
	}

	var coupon *models.Coupon
	if code := req.couponCode(); code != "" {
		found, err := s.store.FindCoupon(ctx, code)
		if err != nil {
			return nil, storeError(err, "Invalid coupon or not found.")
		}
		coupon = found
	}
	if voucher && (coupon == nil || !coupon.FullyFree()) {
		return nil, helpers.NewError(helpers.KindForbidden, "This coupon is not valid for a free inscription.")
	}

	quote := PriceOrder(unitPrice, req.Quantity, coupon)

	paymentStatus, ticketStatus := models.PaymentPending, models.TicketPending
	if voucher {
		paymentStatus, ticketStatus = models.PaymentAwaitingApproval, models.TicketAwaitingApproval
	}

	h := req.MainParticipant
	holder := newParticipant(h.Name, h.Email, h.TaxID, h.Phone)
	additional := make(models.Participants, 0, len(req.AdditionalParticipants))
	for _, g := range req.AdditionalParticipants {
		additional = append(additional, newParticipant(g.Name, g.Email, g.TaxID, g.Phone))
	}

	tickets := make([]models.Ticket, 0, req.Quantity)
	for _, name := range append([]string{holder.Name}, additional.Names()...) {
		tickets = append(tickets, models.Ticket{
			ParticipantName: name,
			TicketType:      ticketType,
			Status:          ticketStatus,
		})
	}

	inscription := &models.Inscription{
		MainParticipant:        holder,
		AdditionalParticipants: additional,
		TicketType:             ticketType,
		Quantity:               req.Quantity,
		UnitPrice:              quote.UnitPrice,
		TotalPrice:             quote.Total,
		DiscountAmount:         quote.Discount,
		PaymentStatus:          paymentStatus,
		Tickets:                tickets,
	}
	if coupon != nil {
		code := coupon.Code
		inscription.AppliedCoupon = &code
	}
	return inscription, nil
}

func newParticipant(name, email, taxID, phone string) models.Participant {
	return models.Participant{
		Name:  strings.TrimSpace(name),
		Email: strings.ToLower(strings.TrimSpace(email)),
		TaxID: helpers.DigitsOnly(taxID),
		Phone: strings.TrimSpace(phone),
	}
}
