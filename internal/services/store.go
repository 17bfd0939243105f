package services

import (
	"context"
	"errors"
	"time"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/mailer"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/payment"
	"github.com/farellandr/ticketgate/internal/repository"
)

// Store is the persistence the checkout and admin flows need. It is
// satisfied by *repository.Repository and by repositorytest.Memory.
type Store interface {
	CreateInscription(ctx context.Context, inscription *models.Inscription) error
	FindInscription(ctx context.Context, id string) (*models.Inscription, error)
	ListInscriptions(ctx context.Context, page, limit int) ([]models.Inscription, int64, error)
	DeleteInscription(ctx context.Context, id string) error
	DeletePendingByEmail(ctx context.Context, email, keepID string) (int64, error)
	MarkPaid(ctx context.Context, id string, update repository.PaidUpdate) (bool, error)
	StoreQRCodes(ctx context.Context, id string, ticketQRCodes map[string]string, legacyQRCode string) error
	ListPaidWithoutQRCodes(ctx context.Context) ([]models.Inscription, error)
	ListTickets(ctx context.Context, inscriptionID string) ([]models.Ticket, error)
	ListCheckinLogs(ctx context.Context) ([]models.CheckinLog, error)
	FindCoupon(ctx context.Context, code string) (*models.Coupon, error)
}

type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error)
	GetPayment(ctx context.Context, id string) (*payment.Payment, error)
}

type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, c mailer.Confirmation) error
}

// storeError maps a repository error onto the error taxonomy. Not found
// becomes notFoundMessage; anything else is an upstream failure.
func storeError(err error, notFoundMessage string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return helpers.WrapError(helpers.KindNotFound, notFoundMessage, err)
	}
	return helpers.WrapError(helpers.KindUpstreamFailure, "The database could not be reached.", err)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
