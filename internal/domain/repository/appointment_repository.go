package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agendasalud/payment-service/internal/domain/model"
)

// AppointmentRepository mutates only the deposit fields of an
// appointment; the rest of the aggregate belongs to the booking engine.
type AppointmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)

	// SetDepositPaid flips the deposit flag; paidAt is nil when unmarking.
	SetDepositPaid(ctx context.Context, id uuid.UUID, paid bool, paidAt *time.Time) error
}
