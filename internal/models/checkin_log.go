package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckinLog is an append-only record of a successful check-in. It is never
// reconciled against the ticket it was written for.
type CheckinLog struct {
	ID              string    `gorm:"type:uuid;primary_key" json:"-"`
	ParticipantName string    `gorm:"not null" json:"name"`
	TicketType      string    `gorm:"not null" json:"type"`
	Contact         string    `json:"contact,omitempty"`
	CheckedInAt     time.Time `gorm:"not null;index" json:"time"`
}

func (log *CheckinLog) BeforeCreate(tx *gorm.DB) (err error) {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	return
}
