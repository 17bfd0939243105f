package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/farellandr/ticketgate/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var checkinAt = time.Date(2025, 3, 1, 21, 4, 0, 0, time.UTC)

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// An in-memory database lives and dies with its connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return New(db)
}

func createInscription(t *testing.T, repo *Repository, email string, status models.PaymentStatus, names ...string) *models.Inscription {
	t.Helper()
	ins := &models.Inscription{
		MainParticipant: models.Participant{Name: names[0], Email: email},
		TicketType:      "vip",
		Quantity:        len(names),
		UnitPrice:       decimal.NewFromInt(150),
		TotalPrice:      decimal.NewFromInt(150 * int64(len(names))),
		PaymentStatus:   status,
	}
	for _, name := range names[1:] {
		ins.AdditionalParticipants = append(ins.AdditionalParticipants, models.Participant{Name: name})
	}
	for _, name := range names {
		ins.Tickets = append(ins.Tickets, models.Ticket{ParticipantName: name, TicketType: "vip", Status: models.TicketPending})
	}
	require.NoError(t, repo.CreateInscription(context.Background(), ins))
	return ins
}

func TestCreateAndFindInscription(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	created := createInscription(t, repo, "ana@example.com", models.PaymentPending, "Ana Souza", "Bruno Lima", "Carla Dias")

	found, err := repo.FindInscription(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Ana Souza", found.MainParticipant.Name)
	assert.Equal(t, []string{"Bruno Lima", "Carla Dias"}, found.AdditionalParticipants.Names())
	assert.True(t, found.TotalPrice.Equal(decimal.NewFromInt(450)))
	require.Len(t, found.Tickets, 3)
	for i, name := range []string{"Ana Souza", "Bruno Lima", "Carla Dias"} {
		assert.Equal(t, name, found.Tickets[i].ParticipantName)
		assert.Equal(t, created.ID, found.Tickets[i].InscriptionID)
	}
}

func TestLookupsTreatUnknownIDsAsNotFound(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	existing := createInscription(t, repo, "ana@example.com", models.PaymentPaid, "Ana Souza")

	for _, id := range []string{"ins1", "oldIns", "t1", "Xy3kP9qLm2Rt7Vb1Nc4D", "", "not a uuid at all", uuid.NewString()} {
		_, err := repo.FindInscription(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, "inscription %q", id)

		_, err = repo.FindTicketByID(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, "ticket %q", id)

		_, err = repo.FindTicket(ctx, existing.ID, id)
		assert.ErrorIs(t, err, ErrNotFound, "nested ticket %q", id)

		_, err = repo.FindTicket(ctx, id, existing.Tickets[0].ID)
		assert.ErrorIs(t, err, ErrNotFound, "ticket under inscription %q", id)

		tickets, err := repo.ListTickets(ctx, id)
		assert.NoError(t, err)
		assert.Empty(t, tickets)

		assert.ErrorIs(t, repo.DeleteInscription(ctx, id), ErrNotFound, "delete %q", id)
	}
}

func TestFindTicket_RequiresOwningInscription(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	first := createInscription(t, repo, "ana@example.com", models.PaymentPaid, "Ana Souza")
	second := createInscription(t, repo, "bruno@example.com", models.PaymentPaid, "Bruno Lima")

	ticket, err := repo.FindTicket(ctx, first.ID, first.Tickets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", ticket.ParticipantName)

	_, err = repo.FindTicket(ctx, second.ID, first.Tickets[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	byID, err := repo.FindTicketByID(ctx, second.Tickets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, byID.InscriptionID)
}

func TestMarkTicketCheckedIn_OnlyOnce(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	ins := createInscription(t, repo, "ana@example.com", models.PaymentPaid, "Ana Souza")
	ticketID := ins.Tickets[0].ID

	won, err := repo.MarkTicketCheckedIn(ctx, ticketID, checkinAt)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.MarkTicketCheckedIn(ctx, ticketID, checkinAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, won)

	ticket, err := repo.FindTicketByID(ctx, ticketID)
	require.NoError(t, err)
	assert.True(t, ticket.IsCheckedIn)
	require.NotNil(t, ticket.CheckedInAt)
	assert.True(t, checkinAt.Equal(*ticket.CheckedInAt), "the first check-in time is kept")
}

func TestMarkTicketCheckedIn_ConcurrentScansAdmitOnce(t *testing.T) {
	repo := setupRepository(t)
	ins := createInscription(t, repo, "ana@example.com", models.PaymentPaid, "Ana Souza")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.MarkTicketCheckedIn(context.Background(), ins.Tickets[0].ID, checkinAt)
			assert.NoError(t, err)
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestMarkInscriptionCheckedIn_OnlyOnce(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	legacy := &models.Inscription{
		MainParticipant: models.Participant{Name: "Carla Dias"},
		TicketType:      "pista",
		Quantity:        1,
		PaymentStatus:   models.PaymentPaid,
	}
	require.NoError(t, repo.CreateInscription(ctx, legacy))

	won, err := repo.MarkInscriptionCheckedIn(ctx, legacy.ID, checkinAt)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.MarkInscriptionCheckedIn(ctx, legacy.ID, checkinAt.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, won)

	found, err := repo.FindInscription(ctx, legacy.ID)
	require.NoError(t, err)
	assert.True(t, found.Legacy())
	require.NotNil(t, found.CheckedInAt)
	assert.True(t, checkinAt.Equal(*found.CheckedInAt))
}

func TestMarkPaid_TransitionsOnce(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	ins := createInscription(t, repo, "ana@example.com", models.PaymentPending, "Ana Souza", "Bruno Lima")
	codes := map[string]string{}
	for _, ticket := range ins.Tickets {
		codes[ticket.ID] = "qr:" + ticket.QRPayload()
	}

	transitioned, err := repo.MarkPaid(ctx, ins.ID, PaidUpdate{ProviderReference: "pay_1", TicketQRCodes: codes, At: checkinAt})
	require.NoError(t, err)
	assert.True(t, transitioned)

	replay := map[string]string{}
	for id := range codes {
		replay[id] = "qr:replayed"
	}
	transitioned, err = repo.MarkPaid(ctx, ins.ID, PaidUpdate{ProviderReference: "pay_2", TicketQRCodes: replay, At: checkinAt})
	require.NoError(t, err)
	assert.False(t, transitioned)

	found, err := repo.FindInscription(ctx, ins.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, found.PaymentStatus)
	assert.True(t, found.QRCodeGenerated)
	require.NotNil(t, found.ProviderReference)
	assert.Equal(t, "pay_1", *found.ProviderReference)
	for _, ticket := range found.Tickets {
		assert.Equal(t, models.TicketValid, ticket.Status)
		assert.Equal(t, codes[ticket.ID], ticket.QRCodeDataURL)
	}
}

func TestMarkPaid_LegacyInscription(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	legacy := &models.Inscription{MainParticipant: models.Participant{Name: "Carla Dias"}, TicketType: "pista", Quantity: 1}
	require.NoError(t, repo.CreateInscription(ctx, legacy))

	transitioned, err := repo.MarkPaid(ctx, legacy.ID, PaidUpdate{LegacyQRCode: "qr:" + legacy.ID, At: checkinAt})
	require.NoError(t, err)
	assert.True(t, transitioned)

	found, err := repo.FindInscription(ctx, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, "qr:"+legacy.ID, found.QRCodeDataURL)

	_, err = repo.MarkPaid(ctx, "oldIns", PaidUpdate{At: checkinAt})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePendingByEmail(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	paid := createInscription(t, repo, "ana@example.com", models.PaymentPaid, "Ana Souza")
	dup := createInscription(t, repo, "ana@example.com", models.PaymentPending, "Ana Souza", "Bruno Lima")
	voucher := createInscription(t, repo, "ana@example.com", models.PaymentAwaitingApproval, "Ana Souza")
	other := createInscription(t, repo, "bruno@example.com", models.PaymentPending, "Bruno Lima")

	deleted, err := repo.DeletePendingByEmail(ctx, "ana@example.com", paid.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = repo.FindInscription(ctx, dup.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	tickets, err := repo.ListTickets(ctx, dup.ID)
	require.NoError(t, err)
	assert.Empty(t, tickets)
	for _, ins := range []*models.Inscription{paid, voucher, other} {
		_, err := repo.FindInscription(ctx, ins.ID)
		assert.NoError(t, err)
	}

	deleted, err = repo.DeletePendingByEmail(ctx, "ana@example.com", paid.ID)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestDeleteInscription(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	ins := createInscription(t, repo, "ana@example.com", models.PaymentPaid, "Ana Souza", "Bruno Lima")

	require.NoError(t, repo.DeleteInscription(ctx, ins.ID))

	_, err := repo.FindTicketByID(ctx, ins.Tickets[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteInscription(ctx, ins.ID), ErrNotFound)
}

func TestListInscriptions_NewestFirst(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		ins := &models.Inscription{
			MainParticipant: models.Participant{Name: "Ana"},
			TicketType:      "vip",
			Quantity:        1,
			CreatedAt:       checkinAt.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.CreateInscription(ctx, ins))
		ids = append(ids, ins.ID)
	}

	page, total, err := repo.ListInscriptions(ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	page, _, err = repo.ListInscriptions(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)
}

func TestRegenerationListing(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	paid := createInscription(t, repo, "ana@example.com", models.PaymentPaid, "Ana Souza")
	createInscription(t, repo, "bruno@example.com", models.PaymentPending, "Bruno Lima")

	missing, err := repo.ListPaidWithoutQRCodes(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, paid.ID, missing[0].ID)

	ticketID := paid.Tickets[0].ID
	require.NoError(t, repo.StoreQRCodes(ctx, paid.ID, map[string]string{ticketID: "qr:new"}, ""))

	missing, err = repo.ListPaidWithoutQRCodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)
	ticket, err := repo.FindTicketByID(ctx, ticketID)
	require.NoError(t, err)
	assert.Equal(t, "qr:new", ticket.QRCodeDataURL)
	assert.Equal(t, models.TicketValid, ticket.Status)
}

func TestCheckinLogs_NewestFirst(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	for i, name := range []string{"Ana", "Bruno"} {
		require.NoError(t, repo.AppendCheckinLog(ctx, &models.CheckinLog{
			ParticipantName: name,
			TicketType:      "vip",
			CheckedInAt:     checkinAt.Add(time.Duration(i) * time.Minute),
		}))
	}

	logs, err := repo.ListCheckinLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Bruno", logs[0].ParticipantName)
	assert.Equal(t, "Ana", logs[1].ParticipantName)
}

func TestFindCoupon(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.db.Create(&models.Coupon{
		Code:  "PROMO10",
		Type:  models.DiscountPercentage,
		Value: decimal.NewFromInt(10),
	}).Error)

	coupon, err := repo.FindCoupon(ctx, " promo10 ")
	require.NoError(t, err)
	assert.Equal(t, models.DiscountPercentage, coupon.Type)
	assert.True(t, coupon.Value.Equal(decimal.NewFromInt(10)))

	_, err = repo.FindCoupon(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}
