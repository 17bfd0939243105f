package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type PaymentStatus string

const (
	PaymentPending          PaymentStatus = "pending"
	PaymentAwaitingApproval PaymentStatus = "awaiting_approval"
	PaymentPaid             PaymentStatus = "paid"
)

type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	TaxID string `json:"cpf,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Participants is stored as a JSON column.
type Participants []Participant

func (p Participants) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Participants) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("participants: unsupported source type %T", src)
	}
	return json.Unmarshal(raw, p)
}

func (p Participants) Names() []string {
	names := make([]string, len(p))
	for i, participant := range p {
		names[i] = participant.Name
	}
	return names
}

func (Participants) GormDataType() string {
	return "jsonb"
}

type Inscription struct {
	ID                     string          `gorm:"type:uuid;primary_key" json:"id"`
	MainParticipant        Participant     `gorm:"embedded;embeddedPrefix:main_" json:"mainParticipant"`
	AdditionalParticipants Participants    `json:"additionalParticipants"`
	TicketType             string          `gorm:"not null" json:"ticketType"`
	Quantity               int             `gorm:"not null" json:"quantity"`
	UnitPrice              decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unitPrice"`
	TotalPrice             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"totalPrice"`
	AppliedCoupon          *string         `json:"appliedCoupon,omitempty"`
	DiscountAmount         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discountValue"`
	PaymentStatus          PaymentStatus   `gorm:"not null;default:'pending';index" json:"paymentStatus"`
	ProviderReference      *string         `json:"providerReference,omitempty"`
	QRCodeGenerated        bool            `gorm:"not null;default:false" json:"qrCodeGenerated"`
	// Legacy single-ticket inscriptions carry their own QR code and
	// check-in state.
	QRCodeDataURL string     `json:"qrCodeDataURL,omitempty"`
	IsCheckedIn   bool       `gorm:"not null;default:false" json:"isCheckedIn"`
	CheckedInAt   *time.Time `json:"checkedInAt,omitempty"`
	Tickets       []Ticket   `gorm:"constraint:OnDelete:CASCADE" json:"tickets,omitempty"`
	CreatedAt     time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (inscription *Inscription) BeforeCreate(tx *gorm.DB) (err error) {
	if inscription.ID == "" {
		inscription.ID = uuid.New().String()
	}
	return
}

// Legacy reports whether the inscription predates per-attendee tickets.
func (inscription *Inscription) Legacy() bool {
	return len(inscription.Tickets) == 0
}

func (inscription *Inscription) IsPaid() bool {
	return inscription.PaymentStatus == PaymentPaid
}
