package services

import (
	"context"
	"testing"
	"time"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/repository/repositorytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInscriptionService_StatusAndTickets(t *testing.T) {
	store := repositorytest.NewMemory()
	seedPending(store, "ins1", "ana@example.com", models.PaymentPaid)
	store.AddInscription(models.Inscription{ID: "oldIns", MainParticipant: models.Participant{Name: "Carla"}, TicketType: "pista", Quantity: 1, QRCodeDataURL: "qr:oldIns"})
	svc := NewInscriptionService(store)
	ctx := context.Background()

	status, err := svc.Status(ctx, "ins1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, status)

	tickets, err := svc.Tickets(ctx, "ins1")
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "ins1-t1", tickets[0].ID)

	view, err := svc.Ticket(ctx, "oldIns")
	require.NoError(t, err)
	assert.Equal(t, &TicketView{ParticipantName: "Carla", TicketType: "pista", Quantity: 1, QRCodeDataURL: "qr:oldIns"}, view)

	_, err = svc.Tickets(ctx, "oldIns")
	assert.Equal(t, helpers.KindNotFound, helpers.KindOf(err))

	_, err = svc.Status(ctx, "missing")
	assert.Equal(t, helpers.KindNotFound, helpers.KindOf(err))

	_, err = svc.Status(ctx, " ")
	assert.Equal(t, helpers.KindMissingField, helpers.KindOf(err))
}

func TestInscriptionService_ListNewestFirst(t *testing.T) {
	store := repositorytest.NewMemory()
	for _, id := range []string{"a", "b", "c"} {
		store.AddInscription(models.Inscription{ID: id})
	}
	svc := NewInscriptionService(store)

	page, err := svc.List(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Inscriptions, 2)
	assert.Equal(t, "c", page.Inscriptions[0].ID)
	assert.Equal(t, "b", page.Inscriptions[1].ID)

	page, err = svc.List(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.NotNil(t, page.Inscriptions)
	assert.Empty(t, page.Inscriptions)
}

func TestInscriptionService_Delete(t *testing.T) {
	store := repositorytest.NewMemory()
	seedPending(store, "ins1", "ana@example.com", models.PaymentPending)
	svc := NewInscriptionService(store)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "ins1"))

	assert.Equal(t, helpers.KindNotFound, helpers.KindOf(svc.Delete(ctx, "ins1")))
	tickets, err := store.ListTickets(ctx, "ins1")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestInscriptionService_CheckinLogsNewestFirst(t *testing.T) {
	store := repositorytest.NewMemory()
	base := time.Date(2025, 3, 8, 21, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, store.AppendCheckinLog(ctx, &models.CheckinLog{ParticipantName: "first", CheckedInAt: base}))
	require.NoError(t, store.AppendCheckinLog(ctx, &models.CheckinLog{ParticipantName: "second", CheckedInAt: base.Add(time.Minute)}))
	svc := NewInscriptionService(store)

	logs, err := svc.CheckinLogs(ctx)

	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "second", logs[0].ParticipantName)

	empty, err := NewInscriptionService(repositorytest.NewMemory()).CheckinLogs(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}
