package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/agendasalud/payment-service/internal/domain/model"
)

// PlanRepository reads subscription plan reference data.
type PlanRepository interface {
	// GetActive returns the plan only when it exists and is active.
	GetActive(ctx context.Context, id uuid.UUID) (*model.SubscriptionPlan, error)

	GetByID(ctx context.Context, id uuid.UUID) (*model.SubscriptionPlan, error)

	ListActive(ctx context.Context) ([]*model.SubscriptionPlan, error)
}
