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

type appointmentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *gorm.DB, logger *zap.Logger) domainRepo.AppointmentRepository {
	return &appointmentRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an appointment, nil when absent
func (r *appointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appt model.Appointment

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&appt).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get appointment",
			zap.String("appointment_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return &appt, nil
}

// SetDepositPaid flips the deposit flag and its timestamp
func (r *appointmentRepository) SetDepositPaid(ctx context.Context, id uuid.UUID, paid bool, paidAt *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deposit_paid":    paid,
			"deposit_paid_at": paidAt,
			"updated_at":      time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to update appointment deposit",
			zap.String("appointment_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update appointment deposit: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("appointment not found: %s", id)
	}

	r.logger.Info("Appointment deposit updated",
		zap.String("appointment_id", id.String()),
		zap.Bool("deposit_paid", paid))

	return nil
}
