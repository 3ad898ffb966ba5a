package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agendasalud/payment-service/internal/domain/model"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

type webhookEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WebhookEventRepository {
	return &webhookEventRepository{
		db:     db,
		logger: logger,
	}
}

// RecordIfNew inserts the event guarded by the composite unique index on
// (payment_id, request_id). Two concurrent deliveries of the same event
// race on the index, not on application state: the insert that loses the
// race affects zero rows and the stored row is returned instead.
func (r *webhookEventRepository) RecordIfNew(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, bool, error) {
	if event.Status == "" {
		event.Status = model.WebhookStatusReceived
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_id"}, {Name: "request_id"}},
			DoNothing: true,
		}).
		Create(event)

	if result.Error != nil {
		r.logger.Error("Failed to record webhook event",
			zap.String("payment_id", event.PaymentID),
			zap.String("request_id", event.RequestID),
			zap.Error(result.Error))
		return nil, false, fmt.Errorf("failed to record webhook event: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		return event, true, nil
	}

	// Conflict: somebody already recorded this delivery.
	var existing model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("payment_id = ? AND request_id = ?", event.PaymentID, event.RequestID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("webhook event vanished after conflict: %s/%s", event.PaymentID, event.RequestID)
		}
		r.logger.Error("Failed to load existing webhook event",
			zap.String("payment_id", event.PaymentID),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
		return nil, false, fmt.Errorf("failed to load existing webhook event: %w", err)
	}

	return &existing, false, nil
}

// MarkProcessed finalizes the event with a success outcome
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id int64, response model.JSONB) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.WebhookStatusProcessed,
			"response_body": response,
			"processed_at":  &now,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook event as processed",
			zap.Int64("event_id", id),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook event as processed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not found: %d", id)
	}

	return nil
}

// MarkFailed finalizes the event with a failure outcome
func (r *webhookEventRepository) MarkFailed(ctx context.Context, id int64, errorMessage string, response model.JSONB) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.WebhookStatusFailed,
			"error_message": &errorMessage,
			"response_body": response,
			"processed_at":  &now,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook event as failed",
			zap.Int64("event_id", id),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook event as failed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not found: %d", id)
	}

	return nil
}
