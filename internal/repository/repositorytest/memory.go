// Package repositorytest provides an in-memory stand-in for the postgres
// repository. It mirrors the conditional-update semantics of the real one so
// concurrency properties can be tested without a database.
package repositorytest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/repository"
	"github.com/google/uuid"
)

type Memory struct {
	mu           sync.Mutex
	inscriptions map[string]*models.Inscription
	tickets      map[string]*models.Ticket
	coupons      map[string]*models.Coupon
	logs         []models.CheckinLog
	seq          int

	// FailAppendLog makes AppendCheckinLog fail, for audit failure tests.
	FailAppendLog error
	// Scans counts FindTicketByID calls.
	Scans int
}

func NewMemory() *Memory {
	return &Memory{
		inscriptions: map[string]*models.Inscription{},
		tickets:      map[string]*models.Ticket{},
		coupons:      map[string]*models.Coupon{},
	}
}

// next returns a strictly increasing timestamp so creation order survives
// sorting even when the test clock is frozen.
func (m *Memory) next() time.Time {
	m.seq++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

// AddInscription stores inscription and its tickets as given, keeping IDs
// that are already set.
func (m *Memory) AddInscription(inscription models.Inscription) *models.Inscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(&inscription)
	return m.copyInscriptionLocked(inscription.ID)
}

func (m *Memory) AddCoupon(coupon models.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coupon.Code = models.NormalizeCouponCode(coupon.Code)
	m.coupons[coupon.Code] = &coupon
}

func (m *Memory) insertLocked(inscription *models.Inscription) {
	if inscription.ID == "" {
		inscription.ID = uuid.New().String()
	}
	if inscription.CreatedAt.IsZero() {
		inscription.CreatedAt = m.next()
	}
	if inscription.PaymentStatus == "" {
		inscription.PaymentStatus = models.PaymentPending
	}
	stored := *inscription
	stored.Tickets = nil
	m.inscriptions[stored.ID] = &stored
	for i := range inscription.Tickets {
		ticket := inscription.Tickets[i]
		if ticket.ID == "" {
			ticket.ID = uuid.New().String()
		}
		ticket.InscriptionID = stored.ID
		ticket.Position = i
		if ticket.Status == "" {
			ticket.Status = models.TicketPending
		}
		inscription.Tickets[i] = ticket
		m.tickets[ticket.ID] = &ticket
	}
}

func (m *Memory) copyInscriptionLocked(id string) *models.Inscription {
	stored, ok := m.inscriptions[id]
	if !ok {
		return nil
	}
	inscription := *stored
	inscription.Tickets = m.ticketsOfLocked(id)
	return &inscription
}

func (m *Memory) ticketsOfLocked(inscriptionID string) []models.Ticket {
	var tickets []models.Ticket
	for _, t := range m.tickets {
		if t.InscriptionID == inscriptionID {
			tickets = append(tickets, *t)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].Position < tickets[j].Position })
	return tickets
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
}

func (m *Memory) CreateInscription(ctx context.Context, inscription *models.Inscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(inscription)
	return nil
}

func (m *Memory) FindInscription(ctx context.Context, id string) (*models.Inscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inscription := m.copyInscriptionLocked(id)
	if inscription == nil {
		return nil, notFound("find inscription " + id)
	}
	return inscription, nil
}

func (m *Memory) ListInscriptions(ctx context.Context, page, limit int) ([]models.Inscription, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]models.Inscription, 0, len(m.inscriptions))
	for id := range m.inscriptions {
		all = append(all, *m.copyInscriptionLocked(id))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	start := min((page-1)*limit, len(all))
	end := min(start+limit, len(all))
	return all[start:end], int64(len(all)), nil
}

func (m *Memory) DeleteInscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inscriptions[id]; !ok {
		return notFound("delete inscription " + id)
	}
	m.deleteLocked(id)
	return nil
}

func (m *Memory) deleteLocked(id string) {
	delete(m.inscriptions, id)
	for ticketID, t := range m.tickets {
		if t.InscriptionID == id {
			delete(m.tickets, ticketID)
		}
	}
}

func (m *Memory) DeletePendingByEmail(ctx context.Context, email, keepID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, ins := range m.inscriptions {
		if id != keepID && ins.MainParticipant.Email == email && ins.PaymentStatus == models.PaymentPending {
			m.deleteLocked(id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) MarkPaid(ctx context.Context, id string, update repository.PaidUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ins, ok := m.inscriptions[id]
	if !ok || ins.PaymentStatus == models.PaymentPaid {
		return false, nil
	}
	ins.PaymentStatus = models.PaymentPaid
	ins.QRCodeGenerated = true
	ins.UpdatedAt = update.At
	if update.ProviderReference != "" {
		ref := update.ProviderReference
		ins.ProviderReference = &ref
	}
	if update.LegacyQRCode != "" {
		ins.QRCodeDataURL = update.LegacyQRCode
	}
	m.applyQRCodesLocked(id, update.TicketQRCodes)
	return true, nil
}

func (m *Memory) StoreQRCodes(ctx context.Context, id string, ticketQRCodes map[string]string, legacyQRCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ins, ok := m.inscriptions[id]
	if !ok {
		return notFound("store qr codes for " + id)
	}
	m.applyQRCodesLocked(id, ticketQRCodes)
	ins.QRCodeGenerated = true
	if legacyQRCode != "" {
		ins.QRCodeDataURL = legacyQRCode
	}
	return nil
}

func (m *Memory) applyQRCodesLocked(inscriptionID string, codes map[string]string) {
	for ticketID, code := range codes {
		if t, ok := m.tickets[ticketID]; ok && t.InscriptionID == inscriptionID {
			t.QRCodeDataURL = code
			t.Status = models.TicketValid
		}
	}
}

func (m *Memory) ListPaidWithoutQRCodes(ctx context.Context) ([]models.Inscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Inscription
	for id, ins := range m.inscriptions {
		if ins.PaymentStatus == models.PaymentPaid && !ins.QRCodeGenerated {
			out = append(out, *m.copyInscriptionLocked(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) FindTicket(ctx context.Context, inscriptionID, ticketID string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok || t.InscriptionID != inscriptionID {
		return nil, notFound("find ticket " + inscriptionID + "/" + ticketID)
	}
	ticket := *t
	return &ticket, nil
}

func (m *Memory) FindTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scans++
	t, ok := m.tickets[ticketID]
	if !ok {
		return nil, notFound("find ticket " + ticketID)
	}
	ticket := *t
	return &ticket, nil
}

func (m *Memory) ListTickets(ctx context.Context, inscriptionID string) ([]models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticketsOfLocked(inscriptionID), nil
}

func (m *Memory) MarkTicketCheckedIn(ctx context.Context, ticketID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok || t.IsCheckedIn {
		return false, nil
	}
	t.IsCheckedIn = true
	t.CheckedInAt = &at
	return true, nil
}

func (m *Memory) MarkInscriptionCheckedIn(ctx context.Context, inscriptionID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ins, ok := m.inscriptions[inscriptionID]
	if !ok || ins.IsCheckedIn {
		return false, nil
	}
	ins.IsCheckedIn = true
	ins.CheckedInAt = &at
	return true, nil
}

func (m *Memory) AppendCheckinLog(ctx context.Context, entry *models.CheckinLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppendLog != nil {
		return m.FailAppendLog
	}
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *Memory) ListCheckinLogs(ctx context.Context) ([]models.CheckinLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.CheckinLog(nil), m.logs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckedInAt.After(out[j].CheckedInAt) })
	return out, nil
}

func (m *Memory) FindCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[models.NormalizeCouponCode(code)]
	if !ok {
		return nil, notFound("find coupon " + code)
	}
	coupon := *c
	return &coupon, nil
}

// Logs returns the audit entries in insertion order.
func (m *Memory) Logs() []models.CheckinLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CheckinLog(nil), m.logs...)
}

// ScanCount returns how many times FindTicketByID ran.
func (m *Memory) ScanCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Scans
}
