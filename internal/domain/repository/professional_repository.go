package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/agendasalud/payment-service/internal/domain/model"
)

// ProfessionalRepository mutates the slice of the professional aggregate
// this service owns: booking visibility and the subscription reference.
type ProfessionalRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Professional, error)
	GetByUserID(ctx context.Context, userID string) (*model.Professional, error)

	// Deactivate turns off the professional's public booking page;
	// clearSubscription additionally drops the subscription reference.
	Deactivate(ctx context.Context, id uuid.UUID, clearSubscription bool) error

	// LinkSubscription points the professional at its subscription row.
	LinkSubscription(ctx context.Context, id uuid.UUID, subscriptionID uuid.UUID) error
}
