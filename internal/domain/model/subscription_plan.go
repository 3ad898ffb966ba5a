package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionPlan is reference data managed by the admin backoffice;
// this service only reads it.
type SubscriptionPlan struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	Description  *string         `json:"description,omitempty"`
	MonthlyPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"monthly_price"`
	AnnualPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"annual_price"`
	IsActive     bool            `gorm:"not null;default:true" json:"is_active"`
	DisplayOrder int             `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"default:now()" json:"updated_at"`
}

// PriceFor returns the plan price for the given billing period.
func (p *SubscriptionPlan) PriceFor(period BillingPeriod) decimal.Decimal {
	if period == BillingPeriodAnnual {
		return p.AnnualPrice
	}
	return p.MonthlyPrice
}

// TableName specifies the table name for GORM
func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}
