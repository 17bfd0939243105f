// Package repository persists inscriptions, their tickets, coupons and the
// check-in audit log in postgres through gorm.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farellandr/ticketgate/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// PaidUpdate carries everything written when an inscription becomes paid.
// TicketQRCodes is keyed by ticket ID; LegacyQRCode is used for inscriptions
// without nested tickets.
type PaidUpdate struct {
	ProviderReference string
	TicketQRCodes     map[string]string
	LegacyQRCode      string
	At                time.Time
}

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates every table the repository uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Inscription{}, &models.Ticket{}, &models.Coupon{}, &models.CheckinLog{})
}

// parseID canonicalizes a primary key. Keys are uuid columns, and postgres
// rejects any other literal outright, so a malformed ID is reported as not
// found instead of being sent to the database.
func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrNotFound
	}
	return parsed.String(), nil
}

func orderedTickets(db *gorm.DB) *gorm.DB {
	return db.Order("tickets.position ASC")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateInscription inserts the inscription and its tickets in one
// transaction.
func (r *Repository) CreateInscription(ctx context.Context, inscription *models.Inscription) error {
	for i := range inscription.Tickets {
		inscription.Tickets[i].Position = i
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(inscription).Error
	})
	if err != nil {
		return fmt.Errorf("create inscription: %w", err)
	}
	return nil
}

func (r *Repository) FindInscription(ctx context.Context, id string) (*models.Inscription, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, fmt.Errorf("find inscription %s: %w", id, err)
	}

	var inscription models.Inscription
	err = r.db.WithContext(ctx).
		Preload("Tickets", orderedTickets).
		Where("id = ?", key).
		First(&inscription).Error
	if err != nil {
		return nil, fmt.Errorf("find inscription %s: %w", id, notFound(err))
	}
	return &inscription, nil
}

func (r *Repository) ListInscriptions(ctx context.Context, page, limit int) ([]models.Inscription, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Inscription{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count inscriptions: %w", err)
	}

	var inscriptions []models.Inscription
	err := r.db.WithContext(ctx).
		Preload("Tickets", orderedTickets).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&inscriptions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list inscriptions: %w", err)
	}
	return inscriptions, total, nil
}

func (r *Repository) DeleteInscription(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return fmt.Errorf("delete inscription %s: %w", id, err)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("inscription_id = ?", key).Delete(&models.Ticket{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", key).Delete(&models.Inscription{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete inscription %s: %w", id, err)
	}
	return nil
}

// DeletePendingByEmail removes pending inscriptions of the same payer other
// than keepID. It runs after a sibling inscription was confirmed paid.
func (r *Repository) DeletePendingByEmail(ctx context.Context, email, keepID string) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		err := tx.Model(&models.Inscription{}).
			Where("main_email = ? AND payment_status = ? AND id <> ?", email, models.PaymentPending, keepID).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("inscription_id IN ?", ids).Delete(&models.Ticket{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&models.Inscription{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, fmt.Errorf("delete pending inscriptions for %s: %w", email, err)
	}
	return deleted, nil
}

// MarkPaid moves the inscription to paid and stores the QR codes in a single
// transaction. It reports false without writing anything when the
// inscription was already paid.
func (r *Repository) MarkPaid(ctx context.Context, id string, update PaidUpdate) (bool, error) {
	id, err := parseID(id)
	if err != nil {
		return false, fmt.Errorf("mark inscription paid: %w", err)
	}

	transitioned := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]any{
			"payment_status":    models.PaymentPaid,
			"qr_code_generated": true,
			"updated_at":        update.At,
		}
		if update.ProviderReference != "" {
			fields["provider_reference"] = update.ProviderReference
		}
		if update.LegacyQRCode != "" {
			fields["qr_code_data_url"] = update.LegacyQRCode
		}
		result := tx.Model(&models.Inscription{}).
			Where("id = ? AND payment_status <> ?", id, models.PaymentPaid).
			Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		if err := updateTicketQRCodes(tx, id, update.TicketQRCodes); err != nil {
			return err
		}
		transitioned = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("mark inscription %s paid: %w", id, err)
	}
	return transitioned, nil
}

// StoreQRCodes writes regenerated QR codes for an already paid inscription.
func (r *Repository) StoreQRCodes(ctx context.Context, id string, ticketQRCodes map[string]string, legacyQRCode string) error {
	id, err := parseID(id)
	if err != nil {
		return fmt.Errorf("store qr codes: %w", err)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateTicketQRCodes(tx, id, ticketQRCodes); err != nil {
			return err
		}
		fields := map[string]any{"qr_code_generated": true}
		if legacyQRCode != "" {
			fields["qr_code_data_url"] = legacyQRCode
		}
		return tx.Model(&models.Inscription{}).Where("id = ?", id).Updates(fields).Error
	})
	if err != nil {
		return fmt.Errorf("store qr codes for %s: %w", id, err)
	}
	return nil
}

func updateTicketQRCodes(tx *gorm.DB, inscriptionID string, codes map[string]string) error {
	for ticketID, code := range codes {
		err := tx.Model(&models.Ticket{}).
			Where("id = ? AND inscription_id = ?", ticketID, inscriptionID).
			Updates(map[string]any{
				"qr_code_data_url": code,
				"status":           models.TicketValid,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// ListPaidWithoutQRCodes returns paid inscriptions whose QR codes were never
// generated.
func (r *Repository) ListPaidWithoutQRCodes(ctx context.Context) ([]models.Inscription, error) {
	var inscriptions []models.Inscription
	err := r.db.WithContext(ctx).
		Preload("Tickets", orderedTickets).
		Where("payment_status = ? AND qr_code_generated = ?", models.PaymentPaid, false).
		Order("created_at ASC").
		Find(&inscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("list paid inscriptions without qr codes: %w", err)
	}
	return inscriptions, nil
}
