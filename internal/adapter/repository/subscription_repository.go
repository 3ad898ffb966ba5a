package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agendasalud/payment-service/internal/domain/model"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.SubscriptionRepository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
	}
}

// appendPayment records a payment row against the locked subscription
// inside its transaction. A nil payment is a no-op.
func appendPayment(tx *gorm.DB, sub *model.Subscription, payment *model.Payment) error {
	if payment == nil {
		return nil
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.SubscriptionID = &sub.ID
	if err := tx.Create(payment).Error; err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}

// GetByProfessionalID retrieves the professional's subscription, nil when absent
func (r *subscriptionRepository) GetByProfessionalID(ctx context.Context, professionalID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("professional_id = ?", professionalID).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by professional ID",
			zap.String("professional_id", professionalID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// GetByID retrieves a subscription by its id, nil when absent
func (r *subscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("id = ?", id).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by ID",
			zap.String("subscription_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// Activate creates or updates the professional's subscription to ACTIVE.
// The row lock serializes this against concurrent webhook deliveries and
// sweep ticks touching the same subscription; the optional payment row
// commits or rolls back together with the status change.
func (r *subscriptionRepository) Activate(ctx context.Context, params domainRepo.ActivateParams) (*model.Subscription, bool, error) {
	var sub *model.Subscription
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("professional_id = ?", params.ProfessionalID).
			First(&existing).Error

		switch {
		case err == nil:
			updates := map[string]interface{}{
				"plan_id":           params.PlanID,
				"billing_period":    params.BillingPeriod,
				"status":            model.SubscriptionStatusActive,
				"start_date":        params.StartDate,
				"next_billing_date": params.NextBillingDate,
				"end_date":          nil,
				"updated_at":        time.Now(),
			}
			if params.MercadoPagoSubscriptionID != "" {
				updates["mercado_pago_subscription_id"] = params.MercadoPagoSubscriptionID
			}
			if err := tx.Model(&model.Subscription{}).
				Where("id = ?", existing.ID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update subscription: %w", err)
			}
			existing.PlanID = params.PlanID
			existing.BillingPeriod = params.BillingPeriod
			existing.Status = model.SubscriptionStatusActive
			existing.StartDate = params.StartDate
			next := params.NextBillingDate
			existing.NextBillingDate = &next
			existing.EndDate = nil
			if params.MercadoPagoSubscriptionID != "" {
				mpID := params.MercadoPagoSubscriptionID
				existing.MercadoPagoSubscriptionID = &mpID
			}
			sub = &existing

		case errors.Is(err, gorm.ErrRecordNotFound):
			next := params.NextBillingDate
			fresh := model.Subscription{
				ID:              uuid.New(),
				ProfessionalID:  params.ProfessionalID,
				PlanID:          params.PlanID,
				BillingPeriod:   params.BillingPeriod,
				Status:          model.SubscriptionStatusActive,
				StartDate:       params.StartDate,
				NextBillingDate: &next,
			}
			if params.MercadoPagoSubscriptionID != "" {
				mpID := params.MercadoPagoSubscriptionID
				fresh.MercadoPagoSubscriptionID = &mpID
			}
			if err := tx.Create(&fresh).Error; err != nil {
				return fmt.Errorf("failed to create subscription: %w", err)
			}

			// The professional owns exactly one subscription; link it on creation.
			if err := tx.Model(&model.Professional{}).
				Where("id = ?", params.ProfessionalID).
				Update("subscription_id", fresh.ID).Error; err != nil {
				return fmt.Errorf("failed to link subscription to professional: %w", err)
			}

			sub = &fresh
			created = true

		default:
			return fmt.Errorf("failed to check subscription: %w", err)
		}

		if err := appendPayment(tx, sub, params.Payment); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		r.logger.Error("Failed to activate subscription",
			zap.String("professional_id", params.ProfessionalID.String()),
			zap.Error(err))
		return nil, false, err
	}

	r.logger.Info("Subscription activated",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("professional_id", params.ProfessionalID.String()),
		zap.Bool("created", created))

	return sub, created, nil
}

// MarkPastDue transitions ACTIVE -> PAST_DUE under a row lock. The
// optional payment row is appended even when the subscription is already
// out of ACTIVE, so a failed charge is recorded exactly once per
// delivery regardless of the transition outcome.
func (r *subscriptionRepository) MarkPastDue(ctx context.Context, id uuid.UUID, payment *model.Payment) (bool, error) {
	changed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to lock subscription: %w", err)
		}

		if err := appendPayment(tx, &sub, payment); err != nil {
			return err
		}

		if sub.Status != model.SubscriptionStatusActive {
			return nil
		}

		if err := tx.Model(&model.Subscription{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     model.SubscriptionStatusPastDue,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return fmt.Errorf("failed to mark subscription past due: %w", err)
		}

		changed = true
		return nil
	})

	if err != nil {
		r.logger.Error("Failed to mark subscription past due",
			zap.String("subscription_id", id.String()),
			zap.Error(err))
		return false, err
	}

	return changed, nil
}

// Cancel transitions to CANCELLED, sets the end date and clears the next billing date
func (r *subscriptionRepository) Cancel(ctx context.Context, id uuid.UUID, endDate time.Time, payment *model.Payment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("subscription not found: %s", id)
			}
			return fmt.Errorf("failed to lock subscription: %w", err)
		}

		if err := appendPayment(tx, &sub, payment); err != nil {
			return err
		}

		if err := tx.Model(&model.Subscription{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":            model.SubscriptionStatusCancelled,
				"end_date":          &endDate,
				"next_billing_date": nil,
				"updated_at":        time.Now(),
			}).Error; err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}

		return nil
	})

	if err != nil {
		r.logger.Error("Failed to cancel subscription",
			zap.String("subscription_id", id.String()),
			zap.Error(err))
		return err
	}

	r.logger.Info("Subscription cancelled",
		zap.String("subscription_id", id.String()),
		zap.Time("end_date", endDate))

	return nil
}

// UpdateNextBillingDate refreshes the next billing date only
func (r *subscriptionRepository) UpdateNextBillingDate(ctx context.Context, id uuid.UUID, next time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"next_billing_date": &next,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to update next billing date",
			zap.String("subscription_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update next billing date: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %s", id)
	}

	return nil
}

// ListDueSoon returns ACTIVE subscriptions due at or before cutoff
func (r *subscriptionRepository) ListDueSoon(ctx context.Context, cutoff time.Time, limit int) ([]*model.Subscription, error) {
	var subs []*model.Subscription

	query := r.db.WithContext(ctx).
		Preload("Plan").
		Where("status = ? AND next_billing_date IS NOT NULL AND next_billing_date <= ?",
			model.SubscriptionStatusActive, cutoff).
		Order("next_billing_date ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&subs).Error; err != nil {
		r.logger.Error("Failed to list due subscriptions", zap.Error(err))
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}

	return subs, nil
}

// ListStalePastDue returns PAST_DUE subscriptions overdue beyond cutoff
func (r *subscriptionRepository) ListStalePastDue(ctx context.Context, cutoff time.Time, limit int) ([]*model.Subscription, error) {
	var subs []*model.Subscription

	query := r.db.WithContext(ctx).
		Where("status = ? AND next_billing_date IS NOT NULL AND next_billing_date < ?",
			model.SubscriptionStatusPastDue, cutoff).
		Order("next_billing_date ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&subs).Error; err != nil {
		r.logger.Error("Failed to list stale past-due subscriptions", zap.Error(err))
		return nil, fmt.Errorf("failed to list stale past-due subscriptions: %w", err)
	}

	return subs, nil
}
