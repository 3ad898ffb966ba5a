package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agendasalud/payment-service/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	// Create extensions first
	if err := createExtensions(db); err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	// Create custom types BEFORE auto-migrate
	if err := createCustomTypes(db); err != nil {
		logger.Error("Failed to create custom types", zap.Error(err))
		return err
	}

	// Auto-migrate all models
	err := db.AutoMigrate(
		&model.SubscriptionPlan{},
		&model.Professional{},
		&model.Subscription{},
		&model.Payment{},
		&model.Appointment{},
		&model.WebhookEvent{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	// Create custom indexes and constraints
	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func createExtensions(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error
}

// createCustomTypes creates PostgreSQL enum types used by the models
func createCustomTypes(db *gorm.DB) error {
	types := []struct {
		name   string
		values string
	}{
		{"subscription_status", "'ACTIVE', 'PAST_DUE', 'CANCELLED'"},
		{"billing_period", "'MONTHLY', 'ANNUAL'"},
		{"payment_type", "'SUBSCRIPTION', 'DEPOSIT'"},
		{"payment_status", "'PENDING', 'COMPLETED', 'FAILED', 'REFUNDED'"},
		{"webhook_status", "'received', 'processed', 'failed'"},
	}

	for _, t := range types {
		sql := `DO $$ BEGIN
			CREATE TYPE ` + t.name + ` AS ENUM (` + t.values + `);
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}

	return nil
}

// createCustomIndexes creates custom indexes that GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	// Partial index for the renewal sweep: only ACTIVE rows with a due date
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_subscriptions_due ON subscriptions (next_billing_date) WHERE status = 'ACTIVE' AND next_billing_date IS NOT NULL`).Error; err != nil {
		return err
	}

	// Partial index for unprocessed webhook events
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed ON webhook_events (created_at) WHERE status IN ('received', 'failed')`).Error; err != nil {
		return err
	}

	// One PENDING row per MercadoPago payment: concurrent pending
	// deliveries with distinct request ids collapse on insert
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_pending_mp ON payments (mercado_pago_payment_id) WHERE status = 'PENDING'`).Error; err != nil {
		return err
	}

	return nil
}
