package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agendasalud/payment-service/internal/domain/model"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

func newSubscriptionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t)

	require.NoError(t, db.Exec(`CREATE TABLE subscriptions (
		id TEXT PRIMARY KEY,
		professional_id TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		billing_period TEXT NOT NULL DEFAULT 'MONTHLY',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		start_date DATETIME,
		next_billing_date DATETIME,
		end_date DATETIME,
		mercado_pago_subscription_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX idx_subscriptions_professional ON subscriptions (professional_id)`).Error)

	require.NoError(t, db.Exec(`CREATE TABLE subscription_plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		monthly_price NUMERIC NOT NULL DEFAULT 0,
		annual_price NUMERIC NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		display_order INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)

	require.NoError(t, db.Exec(`CREATE TABLE professionals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		subscription_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)

	return db
}

func seedProfessional(t *testing.T, db *gorm.DB) *model.Professional {
	t.Helper()
	pro := &model.Professional{
		ID:       uuid.New(),
		UserID:   uuid.NewString(),
		Email:    "pro@example.com",
		IsActive: true,
	}
	require.NoError(t, db.Create(pro).Error)
	return pro
}

func activateParams(professionalID uuid.UUID, mandateID string) domainRepo.ActivateParams {
	now := time.Now()
	return domainRepo.ActivateParams{
		ProfessionalID:            professionalID,
		PlanID:                    uuid.New(),
		BillingPeriod:             model.BillingPeriodMonthly,
		StartDate:                 now,
		NextBillingDate:           now.AddDate(0, 1, 0),
		MercadoPagoSubscriptionID: mandateID,
	}
}

func subscriptionRows(t *testing.T, db *gorm.DB, professionalID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.Subscription{}).
		Where("professional_id = ?", professionalID).
		Count(&count).Error)
	return count
}

func TestSubscriptionRepository_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the subscription and links the professional", func(t *testing.T) {
		db := newSubscriptionTestDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())
		pro := seedProfessional(t, db)

		sub, created, err := repo.Activate(ctx, activateParams(pro.ID, "pre-1"))

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, model.SubscriptionStatusActive, sub.Status)

		var stored model.Professional
		require.NoError(t, db.First(&stored, "id = ?", pro.ID).Error)
		require.NotNil(t, stored.SubscriptionID)
		assert.Equal(t, sub.ID, *stored.SubscriptionID)
	})

	t.Run("second activation for the same professional updates in place", func(t *testing.T) {
		db := newSubscriptionTestDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())
		pro := seedProfessional(t, db)

		first, created, err := repo.Activate(ctx, activateParams(pro.ID, "pre-1"))
		require.NoError(t, err)
		require.True(t, created)

		newPlan := activateParams(pro.ID, "")
		second, created, err := repo.Activate(ctx, newPlan)

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
		assert.EqualValues(t, 1, subscriptionRows(t, db, pro.ID))

		var stored model.Subscription
		require.NoError(t, db.First(&stored, "id = ?", first.ID).Error)
		assert.Equal(t, newPlan.PlanID, stored.PlanID)
		// empty mandate parameter keeps the stored mandate reference
		require.NotNil(t, stored.MercadoPagoSubscriptionID)
		assert.Equal(t, "pre-1", *stored.MercadoPagoSubscriptionID)
	})

	t.Run("payment row commits together with the activation", func(t *testing.T) {
		db := newSubscriptionTestDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())
		pro := seedProfessional(t, db)

		now := time.Now()
		params := activateParams(pro.ID, "pre-1")
		params.Payment = &model.Payment{
			Type:                 model.PaymentTypeSubscription,
			Status:               model.PaymentStatusCompleted,
			Amount:               decimal.NewFromInt(4999),
			Currency:             "ARS",
			MercadoPagoPaymentID: "mp-1",
			PaidAt:               &now,
		}

		sub, _, err := repo.Activate(ctx, params)
		require.NoError(t, err)

		var payment model.Payment
		require.NoError(t, db.First(&payment, "mercado_pago_payment_id = ?", "mp-1").Error)
		require.NotNil(t, payment.SubscriptionID)
		assert.Equal(t, sub.ID, *payment.SubscriptionID)
	})
}

func TestSubscriptionRepository_MarkPastDue(t *testing.T) {
	ctx := context.Background()

	failedPayment := func(mpID string) *model.Payment {
		return &model.Payment{
			Type:                 model.PaymentTypeSubscription,
			Status:               model.PaymentStatusFailed,
			Amount:               decimal.NewFromInt(4999),
			Currency:             "ARS",
			MercadoPagoPaymentID: mpID,
		}
	}

	t.Run("active subscription transitions with its payment row", func(t *testing.T) {
		db := newSubscriptionTestDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())
		pro := seedProfessional(t, db)

		sub, _, err := repo.Activate(ctx, activateParams(pro.ID, ""))
		require.NoError(t, err)

		changed, err := repo.MarkPastDue(ctx, sub.ID, failedPayment("mp-10"))
		require.NoError(t, err)
		assert.True(t, changed)

		var stored model.Subscription
		require.NoError(t, db.First(&stored, "id = ?", sub.ID).Error)
		assert.Equal(t, model.SubscriptionStatusPastDue, stored.Status)

		var payment model.Payment
		require.NoError(t, db.First(&payment, "mercado_pago_payment_id = ?", "mp-10").Error)
		require.NotNil(t, payment.SubscriptionID)
		assert.Equal(t, sub.ID, *payment.SubscriptionID)
	})

	t.Run("repeated failure records the payment without a second transition", func(t *testing.T) {
		db := newSubscriptionTestDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())
		pro := seedProfessional(t, db)

		sub, _, err := repo.Activate(ctx, activateParams(pro.ID, ""))
		require.NoError(t, err)

		_, err = repo.MarkPastDue(ctx, sub.ID, failedPayment("mp-11"))
		require.NoError(t, err)

		changed, err := repo.MarkPastDue(ctx, sub.ID, failedPayment("mp-12"))
		require.NoError(t, err)
		assert.False(t, changed)

		var count int64
		require.NoError(t, db.Model(&model.Payment{}).
			Where("subscription_id = ?", sub.ID).
			Count(&count).Error)
		assert.EqualValues(t, 2, count)
	})

	t.Run("missing subscription records nothing", func(t *testing.T) {
		db := newSubscriptionTestDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())

		changed, err := repo.MarkPastDue(ctx, uuid.New(), failedPayment("mp-13"))
		require.NoError(t, err)
		assert.False(t, changed)

		var count int64
		require.NoError(t, db.Model(&model.Payment{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestSubscriptionRepository_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("sets end date and clears the next billing date", func(t *testing.T) {
		db := newSubscriptionTestDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())
		pro := seedProfessional(t, db)

		sub, _, err := repo.Activate(ctx, activateParams(pro.ID, ""))
		require.NoError(t, err)

		endDate := time.Now()
		refund := &model.Payment{
			Type:                 model.PaymentTypeSubscription,
			Status:               model.PaymentStatusRefunded,
			Amount:               decimal.NewFromInt(4999),
			Currency:             "ARS",
			MercadoPagoPaymentID: "mp-20",
		}
		require.NoError(t, repo.Cancel(ctx, sub.ID, endDate, refund))

		var stored model.Subscription
		require.NoError(t, db.First(&stored, "id = ?", sub.ID).Error)
		assert.Equal(t, model.SubscriptionStatusCancelled, stored.Status)
		assert.NotNil(t, stored.EndDate)
		assert.Nil(t, stored.NextBillingDate)

		var payment model.Payment
		require.NoError(t, db.First(&payment, "mercado_pago_payment_id = ?", "mp-20").Error)
		require.NotNil(t, payment.SubscriptionID)
		assert.Equal(t, sub.ID, *payment.SubscriptionID)
	})

	t.Run("missing subscription fails without a payment row", func(t *testing.T) {
		db := newSubscriptionTestDB(t)
		repo := NewSubscriptionRepository(db, zap.NewNop())

		err := repo.Cancel(ctx, uuid.New(), time.Now(), &model.Payment{
			Type:                 model.PaymentTypeSubscription,
			Status:               model.PaymentStatusRefunded,
			Amount:               decimal.NewFromInt(4999),
			Currency:             "ARS",
			MercadoPagoPaymentID: "mp-21",
		})
		require.Error(t, err)

		var count int64
		require.NoError(t, db.Model(&model.Payment{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}
