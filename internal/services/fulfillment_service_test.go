package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/mailer"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/repository"
	"github.com/farellandr/ticketgate/internal/repository/repositorytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var paidAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setupFulfillment() (*FulfillmentService, *repositorytest.Memory, *MockSender) {
	store := repositorytest.NewMemory()
	sender := &MockSender{}
	svc := NewFulfillmentService(store, sender, testCatalog(), testBaseURL, discardLogger())
	svc.now = func() time.Time { return paidAt }
	svc.encodeQR = func(content string) (string, error) { return "qr:" + content, nil }
	return svc, store, sender
}

func seedPending(store *repositorytest.Memory, id, email string, status models.PaymentStatus) {
	store.AddInscription(models.Inscription{
		ID:              id,
		MainParticipant: models.Participant{Name: "Ana Souza", Email: email},
		TicketType:      "vip",
		Quantity:        2,
		PaymentStatus:   status,
		Tickets: []models.Ticket{
			{ID: id + "-t1", ParticipantName: "Ana Souza", TicketType: "vip"},
			{ID: id + "-t2", ParticipantName: "Bruno Lima", TicketType: "vip"},
		},
	})
}

func TestConfirmPayment_IssuesTicketsOnce(t *testing.T) {
	svc, store, sender := setupFulfillment()
	seedPending(store, "ins1", "ana@example.com", models.PaymentPending)
	ctx := context.Background()

	sender.On("SendConfirmation", ctx, mailer.Confirmation{
		To:          "ana@example.com",
		Name:        "Ana Souza",
		EventName:   "Resenha Music",
		TicketURL:   testBaseURL + "/ticket.html?id=ins1",
		TicketCount: 2,
	}).Return(nil).Once()

	transitioned, err := svc.ConfirmPayment(ctx, "ins1", "pay_1")
	require.NoError(t, err)
	assert.True(t, transitioned)

	again, err := svc.ConfirmPayment(ctx, "ins1", "pay_1")
	require.NoError(t, err)
	assert.False(t, again)
	sender.AssertExpectations(t)

	ins, err := store.FindInscription(ctx, "ins1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, ins.PaymentStatus)
	assert.True(t, ins.QRCodeGenerated)
	require.NotNil(t, ins.ProviderReference)
	assert.Equal(t, "pay_1", *ins.ProviderReference)
	for _, ticket := range ins.Tickets {
		assert.Equal(t, models.TicketValid, ticket.Status)
		assert.Equal(t, "qr:ins1_"+ticket.ID, ticket.QRCodeDataURL)
	}
}

func TestConfirmPayment_LegacyInscriptionGetsInscriptionQR(t *testing.T) {
	svc, store, sender := setupFulfillment()
	store.AddInscription(models.Inscription{
		ID:              "oldIns",
		MainParticipant: models.Participant{Name: "Carla", Email: "carla@example.com"},
		Quantity:        1,
	})
	sender.On("SendConfirmation", mock.Anything, mock.MatchedBy(func(c mailer.Confirmation) bool {
		return c.TicketCount == 1
	})).Return(nil)

	_, err := svc.ConfirmPayment(context.Background(), "oldIns", "pay_2")
	require.NoError(t, err)

	ins, err := store.FindInscription(context.Background(), "oldIns")
	require.NoError(t, err)
	assert.Equal(t, "qr:oldIns", ins.QRCodeDataURL)
}

func TestConfirmPayment_RemovesDuplicatePendingInscriptions(t *testing.T) {
	svc, store, sender := setupFulfillment()
	seedPending(store, "ins1", "ana@example.com", models.PaymentPending)
	seedPending(store, "dup", "ana@example.com", models.PaymentPending)
	seedPending(store, "voucher", "ana@example.com", models.PaymentAwaitingApproval)
	seedPending(store, "other", "bruno@example.com", models.PaymentPending)
	sender.On("SendConfirmation", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	_, err := svc.ConfirmPayment(ctx, "ins1", "pay_1")
	require.NoError(t, err)

	_, err = store.FindInscription(ctx, "dup")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	for _, id := range []string{"ins1", "voucher", "other"} {
		_, err := store.FindInscription(ctx, id)
		assert.NoError(t, err, id)
	}
	tickets, err := store.ListTickets(ctx, "dup")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestConfirmPayment_EmailFailureIsNotReturned(t *testing.T) {
	svc, store, sender := setupFulfillment()
	seedPending(store, "ins1", "ana@example.com", models.PaymentPending)
	sender.On("SendConfirmation", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	transitioned, err := svc.ConfirmPayment(context.Background(), "ins1", "pay_1")

	require.NoError(t, err)
	assert.True(t, transitioned)
}

func TestConfirmPayment_UnknownInscription(t *testing.T) {
	svc, _, sender := setupFulfillment()

	_, err := svc.ConfirmPayment(context.Background(), "missing", "pay_1")

	assert.Equal(t, helpers.KindNotFound, helpers.KindOf(err))
	sender.AssertNotCalled(t, "SendConfirmation", mock.Anything, mock.Anything)
}

func TestConfirmPayment_QRFailureLeavesInscriptionPending(t *testing.T) {
	svc, store, sender := setupFulfillment()
	seedPending(store, "ins1", "ana@example.com", models.PaymentPending)
	svc.encodeQR = func(string) (string, error) { return "", errors.New("too long") }

	_, err := svc.ConfirmPayment(context.Background(), "ins1", "pay_1")

	require.Error(t, err)
	ins, _ := store.FindInscription(context.Background(), "ins1")
	assert.Equal(t, models.PaymentPending, ins.PaymentStatus)
	sender.AssertNotCalled(t, "SendConfirmation", mock.Anything, mock.Anything)
}

func TestApprove_VoucherInscription(t *testing.T) {
	svc, store, sender := setupFulfillment()
	coupon := "FREE100"
	store.AddInscription(models.Inscription{
		ID:              "v1",
		MainParticipant: models.Participant{Name: "Ana", Email: "ana@example.com"},
		Quantity:        1,
		PaymentStatus:   models.PaymentAwaitingApproval,
		AppliedCoupon:   &coupon,
		Tickets:         []models.Ticket{{ID: "v1-t1", ParticipantName: "Ana", Status: models.TicketAwaitingApproval}},
	})
	sender.On("SendConfirmation", mock.Anything, mock.MatchedBy(func(c mailer.Confirmation) bool {
		return c.Coupon == "FREE100" && strings.HasSuffix(c.TicketURL, "?id=v1")
	})).Return(nil).Once()
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, "v1"))

	err := svc.Approve(ctx, "v1")
	assert.Equal(t, helpers.KindNotFound, helpers.KindOf(err))
	sender.AssertExpectations(t)

	tickets, err := store.ListTickets(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.TicketValid, tickets[0].Status)
}

func TestApprove_RejectsPendingCheckout(t *testing.T) {
	svc, store, _ := setupFulfillment()
	seedPending(store, "ins1", "ana@example.com", models.PaymentPending)

	err := svc.Approve(context.Background(), "ins1")

	assert.Equal(t, helpers.KindNotFound, helpers.KindOf(err))
}

func TestRegenerateQRCodes(t *testing.T) {
	svc, store, _ := setupFulfillment()
	seedPending(store, "paid", "ana@example.com", models.PaymentPaid)
	seedPending(store, "pending", "bruno@example.com", models.PaymentPending)
	store.AddInscription(models.Inscription{ID: "done", PaymentStatus: models.PaymentPaid, QRCodeGenerated: true})
	ctx := context.Background()

	count, err := svc.RegenerateQRCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	ins, err := store.FindInscription(ctx, "paid")
	require.NoError(t, err)
	assert.True(t, ins.QRCodeGenerated)
	assert.Equal(t, "qr:paid_paid-t1", ins.Tickets[0].QRCodeDataURL)

	count, err = svc.RegenerateQRCodes(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
