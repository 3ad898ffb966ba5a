package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Appointment is owned by the booking engine. Deposit webhooks mutate
// only DepositPaid and DepositPaidAt; release of unpaid slots is the
// booking engine's timeout worker, not this service.
type Appointment struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProfessionalID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"professional_id"`
	BookingReference string          `gorm:"size:32;not null;uniqueIndex" json:"booking_reference"`
	DepositAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"deposit_amount"`
	DepositPaid      bool            `gorm:"not null;default:false" json:"deposit_paid"`
	DepositPaidAt    *time.Time      `json:"deposit_paid_at,omitempty"`
	CreatedAt        time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Appointment) TableName() string {
	return "appointments"
}
