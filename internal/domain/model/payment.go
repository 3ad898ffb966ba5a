package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType distinguishes subscription charges from appointment deposits
type PaymentType string

const (
	PaymentTypeSubscription PaymentType = "SUBSCRIPTION"
	PaymentTypeDeposit      PaymentType = "DEPOSIT"
)

// Scan implements sql.Scanner interface
func (p *PaymentType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*p = PaymentType(v)
	case []byte:
		*p = PaymentType(v)
	default:
		*p = PaymentTypeSubscription
	}
	return nil
}

// Value implements driver.Valuer interface
func (p PaymentType) Value() (driver.Value, error) {
	return string(p), nil
}

// PaymentStatus represents the local status of a payment row
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Scan implements sql.Scanner interface
func (p *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*p = PaymentStatus(v)
	case []byte:
		*p = PaymentStatus(v)
	default:
		*p = PaymentStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (p PaymentStatus) Value() (driver.Value, error) {
	return string(p), nil
}

// Payment is one row of the payment ledger. Rows are appended per
// processor event and never merged; the same MercadoPago payment id can
// appear more than once as its status evolves.
type Payment struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SubscriptionID       *uuid.UUID      `gorm:"type:uuid;index" json:"subscription_id,omitempty"`
	Type                 PaymentType     `gorm:"type:payment_type;not null" json:"type"`
	Status               PaymentStatus   `gorm:"type:payment_status;not null" json:"status"`
	Amount               decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency             string          `gorm:"size:3;not null;default:'ARS'" json:"currency"`
	MercadoPagoPaymentID string          `gorm:"size:100;not null;index" json:"mercado_pago_payment_id"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	CreatedAt            time.Time       `gorm:"default:now()" json:"created_at"`

	// Relations
	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}
