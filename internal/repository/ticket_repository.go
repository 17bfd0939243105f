package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/farellandr/ticketgate/internal/models"
)

func (r *Repository) FindTicket(ctx context.Context, inscriptionID, ticketID string) (*models.Ticket, error) {
	insKey, err := parseID(inscriptionID)
	if err != nil {
		return nil, fmt.Errorf("find ticket %s/%s: %w", inscriptionID, ticketID, err)
	}
	ticketKey, err := parseID(ticketID)
	if err != nil {
		return nil, fmt.Errorf("find ticket %s/%s: %w", inscriptionID, ticketID, err)
	}

	var ticket models.Ticket
	err = r.db.WithContext(ctx).
		Where("id = ? AND inscription_id = ?", ticketKey, insKey).
		First(&ticket).Error
	if err != nil {
		return nil, fmt.Errorf("find ticket %s/%s: %w", inscriptionID, ticketID, notFound(err))
	}
	return &ticket, nil
}

// FindTicketByID looks a ticket up under any inscription. The primary key
// index makes this the cheap equivalent of scanning every inscription's
// tickets.
func (r *Repository) FindTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	key, err := parseID(ticketID)
	if err != nil {
		return nil, fmt.Errorf("find ticket %s: %w", ticketID, err)
	}

	var ticket models.Ticket
	err = r.db.WithContext(ctx).Where("id = ?", key).First(&ticket).Error
	if err != nil {
		return nil, fmt.Errorf("find ticket %s: %w", ticketID, notFound(err))
	}
	return &ticket, nil
}

// ListTickets returns no tickets, not an error, for an unknown inscription.
func (r *Repository) ListTickets(ctx context.Context, inscriptionID string) ([]models.Ticket, error) {
	key, err := parseID(inscriptionID)
	if err != nil {
		return nil, nil
	}

	var tickets []models.Ticket
	err = r.db.WithContext(ctx).
		Where("inscription_id = ?", key).
		Order("position ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("list tickets of %s: %w", inscriptionID, err)
	}
	return tickets, nil
}

// MarkTicketCheckedIn sets the check-in flag only if it is still unset. It
// reports false when another scan got there first.
func (r *Repository) MarkTicketCheckedIn(ctx context.Context, ticketID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND is_checked_in = ?", ticketID, false).
		Updates(map[string]any{"is_checked_in": true, "checked_in_at": at})
	if result.Error != nil {
		return false, fmt.Errorf("check in ticket %s: %w", ticketID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkInscriptionCheckedIn is the legacy-schema counterpart of
// MarkTicketCheckedIn.
func (r *Repository) MarkInscriptionCheckedIn(ctx context.Context, inscriptionID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Inscription{}).
		Where("id = ? AND is_checked_in = ?", inscriptionID, false).
		Updates(map[string]any{"is_checked_in": true, "checked_in_at": at})
	if result.Error != nil {
		return false, fmt.Errorf("check in inscription %s: %w", inscriptionID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) AppendCheckinLog(ctx context.Context, entry *models.CheckinLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append check-in log: %w", err)
	}
	return nil
}

func (r *Repository) ListCheckinLogs(ctx context.Context) ([]models.CheckinLog, error) {
	var entries []models.CheckinLog
	if err := r.db.WithContext(ctx).Order("checked_in_at DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list check-in logs: %w", err)
	}
	return entries, nil
}

func (r *Repository) FindCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", models.NormalizeCouponCode(code)).First(&coupon).Error
	if err != nil {
		return nil, fmt.Errorf("find coupon %s: %w", code, notFound(err))
	}
	return &coupon, nil
}
