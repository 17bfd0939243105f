package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TicketStatus string

const (
	TicketPending          TicketStatus = "pending"
	TicketAwaitingApproval TicketStatus = "awaiting_approval"
	TicketValid            TicketStatus = "valid"
)

type Ticket struct {
	ID              string       `gorm:"type:uuid;primary_key" json:"id"`
	InscriptionID   string       `gorm:"type:uuid;not null;index" json:"inscriptionId"`
	Position        int          `gorm:"not null;default:0" json:"-"`
	ParticipantName string       `gorm:"not null" json:"participantName"`
	TicketType      string       `gorm:"not null" json:"ticketType"`
	Status          TicketStatus `gorm:"not null;default:'pending'" json:"status"`
	QRCodeDataURL   string       `json:"qrCodeDataURL,omitempty"`
	IsCheckedIn     bool         `gorm:"not null;default:false" json:"isCheckedIn"`
	CheckedInAt     *time.Time   `json:"checkedInAt,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == "" {
		ticket.ID = uuid.New().String()
	}
	return
}

// QRPayload is the string encoded into the ticket's QR image.
func (ticket *Ticket) QRPayload() string {
	return ticket.InscriptionID + "_" + ticket.ID
}
