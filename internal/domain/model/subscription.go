package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue   SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = SubscriptionStatusCancelled
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// BillingPeriod is the billing cadence of a subscription
type BillingPeriod string

const (
	BillingPeriodMonthly BillingPeriod = "MONTHLY"
	BillingPeriodAnnual  BillingPeriod = "ANNUAL"
)

// Scan implements sql.Scanner interface
func (b *BillingPeriod) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*b = BillingPeriod(v)
	case []byte:
		*b = BillingPeriod(v)
	default:
		*b = BillingPeriodMonthly
	}
	return nil
}

// Value implements driver.Valuer interface
func (b BillingPeriod) Value() (driver.Value, error) {
	return string(b), nil
}

// NextDate returns the billing date one period after from
func (b BillingPeriod) NextDate(from time.Time) time.Time {
	if b == BillingPeriodAnnual {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// Subscription represents a professional's platform subscription.
// A professional has at most one subscription row; both the webhook
// dispatcher and the renewal worker mutate it, so every status change
// goes through a row-locking transaction in the repository.
type Subscription struct {
	ID                        uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	ProfessionalID            uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex" json:"professional_id"`
	PlanID                    uuid.UUID          `gorm:"type:uuid;not null;index" json:"plan_id"`
	BillingPeriod             BillingPeriod      `gorm:"type:billing_period;not null;default:'MONTHLY'" json:"billing_period"`
	Status                    SubscriptionStatus `gorm:"type:subscription_status;not null;default:'ACTIVE';index" json:"status"`
	StartDate                 time.Time          `gorm:"not null" json:"start_date"`
	NextBillingDate           *time.Time         `gorm:"index" json:"next_billing_date,omitempty"`
	EndDate                   *time.Time         `json:"end_date,omitempty"`
	MercadoPagoSubscriptionID *string            `gorm:"size:100;index" json:"mercado_pago_subscription_id,omitempty"`
	CreatedAt                 time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt                 time.Time          `gorm:"default:now()" json:"updated_at"`

	// Relations
	Plan *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// IsRecurring reports whether the subscription is charged automatically
// through a MercadoPago preapproval (as opposed to manual one-time payments).
func (s *Subscription) IsRecurring() bool {
	return s.MercadoPagoSubscriptionID != nil && *s.MercadoPagoSubscriptionID != ""
}

// JSONB represents a JSONB database type
type JSONB map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		*j = make(JSONB)
		return nil
	}
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
