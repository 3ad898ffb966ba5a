package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agendasalud/payment-service/internal/domain/model"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

type professionalRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewProfessionalRepository creates a new professional repository
func NewProfessionalRepository(db *gorm.DB, logger *zap.Logger) domainRepo.ProfessionalRepository {
	return &professionalRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a professional, nil when absent
func (r *professionalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Professional, error) {
	var pro model.Professional

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&pro).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get professional",
			zap.String("professional_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get professional: %w", err)
	}

	return &pro, nil
}

// GetByUserID retrieves a professional by its platform user id, nil when absent
func (r *professionalRepository) GetByUserID(ctx context.Context, userID string) (*model.Professional, error) {
	var pro model.Professional

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&pro).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get professional by user ID",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get professional: %w", err)
	}

	return &pro, nil
}

// Deactivate turns off the professional's public booking page
func (r *professionalRepository) Deactivate(ctx context.Context, id uuid.UUID, clearSubscription bool) error {
	updates := map[string]interface{}{
		"is_active":  false,
		"updated_at": time.Now(),
	}
	if clearSubscription {
		updates["subscription_id"] = nil
	}

	result := r.db.WithContext(ctx).
		Model(&model.Professional{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("Failed to deactivate professional",
			zap.String("professional_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to deactivate professional: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("professional not found: %s", id)
	}

	r.logger.Info("Professional deactivated",
		zap.String("professional_id", id.String()),
		zap.Bool("subscription_cleared", clearSubscription))

	return nil
}

// LinkSubscription points the professional at its subscription row
func (r *professionalRepository) LinkSubscription(ctx context.Context, id uuid.UUID, subscriptionID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&model.Professional{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subscription_id": subscriptionID,
			"updated_at":      time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to link subscription",
			zap.String("professional_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to link subscription: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("professional not found: %s", id)
	}

	return nil
}
