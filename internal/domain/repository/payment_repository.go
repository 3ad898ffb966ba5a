package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/agendasalud/payment-service/internal/domain/model"
)

// PaymentRepository persists the append-mostly payment ledger.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error

	// CreateIfAbsent appends the payment only when no row exists yet for
	// its MercadoPago payment id. Returns true when a row was created.
	CreateIfAbsent(ctx context.Context, payment *model.Payment) (bool, error)

	ListBySubscriptionID(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]*model.Payment, error)
}
