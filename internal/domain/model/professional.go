package model

import (
	"time"

	"github.com/google/uuid"
)

// Professional is the owning aggregate of a subscription. This service
// only touches its booking visibility (IsActive) and its subscription
// reference; everything else belongs to the profile service.
type Professional struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string     `gorm:"size:64;not null;uniqueIndex" json:"user_id"`
	FirstName      string     `gorm:"size:100;not null" json:"first_name"`
	LastName       string     `gorm:"size:100;not null" json:"last_name"`
	Email          string     `gorm:"size:255;not null" json:"email"`
	IsActive       bool       `gorm:"not null;default:true;index" json:"is_active"`
	SubscriptionID *uuid.UUID `gorm:"type:uuid" json:"subscription_id,omitempty"`
	CreatedAt      time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Professional) TableName() string {
	return "professionals"
}
