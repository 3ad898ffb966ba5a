package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agendasalud/payment-service/internal/domain/model"
)

// ActivateParams carries everything needed to create or reactivate a
// subscription in one transaction. Payment, when set, is appended to the
// ledger inside the same transaction as the status change.
type ActivateParams struct {
	ProfessionalID            uuid.UUID
	PlanID                    uuid.UUID
	BillingPeriod             model.BillingPeriod
	StartDate                 time.Time
	NextBillingDate           time.Time
	MercadoPagoSubscriptionID string
	Payment                   *model.Payment
}

// SubscriptionRepository persists subscription state. Every mutating
// method runs a single transaction with a row lock on the subscription
// so webhook deliveries and sweep ticks cannot interleave.
type SubscriptionRepository interface {
	GetByProfessionalID(ctx context.Context, professionalID uuid.UUID) (*model.Subscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error)

	// Activate creates or updates the professional's subscription to ACTIVE.
	// Returns the subscription and whether a new row was created.
	Activate(ctx context.Context, params ActivateParams) (*model.Subscription, bool, error)

	// MarkPastDue transitions ACTIVE -> PAST_DUE. Returns false without
	// error when the subscription is not in a state that allows it.
	// Payment, when set, is appended to the ledger in the same
	// transaction, so the row and the transition commit or roll back
	// together.
	MarkPastDue(ctx context.Context, id uuid.UUID, payment *model.Payment) (bool, error)

	// Cancel transitions to CANCELLED, sets the end date and clears the
	// next billing date. Payment, when set, is appended in the same
	// transaction.
	Cancel(ctx context.Context, id uuid.UUID, endDate time.Time, payment *model.Payment) error

	UpdateNextBillingDate(ctx context.Context, id uuid.UUID, next time.Time) error

	// ListDueSoon returns ACTIVE subscriptions whose next billing date is
	// at or before the cutoff, oldest first, bounded by limit.
	ListDueSoon(ctx context.Context, cutoff time.Time, limit int) ([]*model.Subscription, error)

	// ListStalePastDue returns PAST_DUE subscriptions whose next billing
	// date is strictly before the cutoff, bounded by limit.
	ListStalePastDue(ctx context.Context, cutoff time.Time, limit int) ([]*model.Subscription, error)
}
