package model

import (
	"database/sql/driver"
	"time"
)

// WebhookStatus represents the processing outcome of a webhook delivery
type WebhookStatus string

const (
	WebhookStatusReceived  WebhookStatus = "received"
	WebhookStatusProcessed WebhookStatus = "processed"
	WebhookStatusFailed    WebhookStatus = "failed"
)

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		*w = WebhookStatusReceived
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// WebhookEvent is the audit ledger of MercadoPago webhook deliveries.
// The composite unique index on (payment_id, request_id) is the
// idempotency gate: the storage layer, not application code, guarantees
// at most one row per delivery identity.
type WebhookEvent struct {
	ID             int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID      string        `gorm:"size:100;not null;uniqueIndex:idx_webhook_payment_request,priority:1" json:"payment_id"`
	RequestID      string        `gorm:"size:128;not null;uniqueIndex:idx_webhook_payment_request,priority:2" json:"request_id"`
	EventType      string        `gorm:"size:50;not null" json:"event_type"`
	Status         WebhookStatus `gorm:"type:webhook_status;not null;default:'received';index" json:"status"`
	RequestBody    JSONB         `gorm:"type:jsonb" json:"request_body,omitempty"`
	RequestHeaders JSONB         `gorm:"type:jsonb" json:"request_headers,omitempty"`
	ResponseBody   JSONB         `gorm:"type:jsonb" json:"response_body,omitempty"`
	ErrorMessage   *string       `json:"error_message,omitempty"`
	ProcessedAt    *time.Time    `json:"processed_at,omitempty"`
	CreatedAt      time.Time     `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
