package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agendasalud/payment-service/internal/domain/model"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PaymentRepository {
	return &paymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a payment row to the ledger
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		r.logger.Error("Failed to create payment",
			zap.String("mercado_pago_payment_id", payment.MercadoPagoPaymentID),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// CreateIfAbsent appends the payment only when no row exists yet for its
// MercadoPago payment id. Used by the pending path so redelivered
// pending events do not pile up duplicate rows. The read filters the
// common case; two deliveries racing past it collapse on the partial
// unique index over PENDING rows.
func (r *paymentRepository) CreateIfAbsent(ctx context.Context, payment *model.Payment) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("mercado_pago_payment_id = ?", payment.MercadoPagoPaymentID).
		Count(&count).Error
	if err != nil {
		r.logger.Error("Failed to check existing payment",
			zap.String("mercado_pago_payment_id", payment.MercadoPagoPaymentID),
			zap.Error(err))
		return false, fmt.Errorf("failed to check existing payment: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "mercado_pago_payment_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Eq{Column: clause.Column{Name: "status"}, Value: string(model.PaymentStatusPending)},
			}},
			DoNothing: true,
		}).
		Create(payment)
	if result.Error != nil {
		r.logger.Error("Failed to create payment",
			zap.String("mercado_pago_payment_id", payment.MercadoPagoPaymentID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to create payment: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// ListBySubscriptionID returns the newest payment rows of a subscription
func (r *paymentRepository) ListBySubscriptionID(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]*model.Payment, error) {
	var payments []*model.Payment

	query := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&payments).Error; err != nil {
		r.logger.Error("Failed to list payments",
			zap.String("subscription_id", subscriptionID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, nil
}
