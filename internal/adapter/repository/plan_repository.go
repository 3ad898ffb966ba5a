package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agendasalud/payment-service/internal/domain/model"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

type planRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PlanRepository {
	return &planRepository{
		db:     db,
		logger: logger,
	}
}

// GetActive returns the plan only when it exists and is active, nil otherwise
func (r *planRepository) GetActive(ctx context.Context, id uuid.UUID) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan

	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&plan).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get active plan",
			zap.String("plan_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return &plan, nil
}

// GetByID returns the plan regardless of its active flag, nil when absent
func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get plan",
			zap.String("plan_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return &plan, nil
}

// ListActive returns active plans in display order
func (r *planRepository) ListActive(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	var plans []*model.SubscriptionPlan

	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order ASC").
		Find(&plans).Error

	if err != nil {
		r.logger.Error("Failed to list active plans", zap.Error(err))
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	return plans, nil
}
