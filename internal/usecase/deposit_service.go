package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendasalud/payment-service/internal/domain/billing"
	domainErrors "github.com/agendasalud/payment-service/internal/domain/errors"
	"github.com/agendasalud/payment-service/internal/domain/provider"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

// DepositService creates checkout preferences for appointment deposits.
// Deposit state itself is mutated only by the webhook dispatcher.
type DepositService struct {
	appointments domainRepo.AppointmentRepository
	pros         domainRepo.ProfessionalRepository
	provider     provider.PaymentProvider
	logger       *zap.Logger
}

// NewDepositService creates a new deposit service
func NewDepositService(
	appointments domainRepo.AppointmentRepository,
	pros domainRepo.ProfessionalRepository,
	p provider.PaymentProvider,
	logger *zap.Logger,
) *DepositService {
	return &DepositService{
		appointments: appointments,
		pros:         pros,
		provider:     p,
		logger:       logger,
	}
}

// CreatePreference builds a one-time checkout preference for the
// appointment's deposit amount.
func (s *DepositService) CreatePreference(ctx context.Context, appointmentID uuid.UUID, payerEmail string) (*provider.Preference, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, domainErrors.ErrAppointmentNotFound
	}

	pro, err := s.pros.GetByID(ctx, appt.ProfessionalID)
	if err != nil {
		return nil, err
	}
	if pro == nil {
		return nil, domainErrors.ErrProfessionalNotFound
	}

	ref, err := billing.DepositReference(
		appt.ID.String(),
		appt.ProfessionalID.String(),
		appt.BookingReference,
	).Encode()
	if err != nil {
		return nil, err
	}

	pref, err := s.provider.CreatePreference(ctx, &provider.PreferenceRequest{
		Items: []provider.PreferenceItem{{
			ID:         appt.ID.String(),
			Title:      "Appointment deposit - " + pro.FirstName + " " + pro.LastName,
			Quantity:   1,
			UnitPrice:  appt.DepositAmount,
			CurrencyID: "ARS",
		}},
		PayerEmail:        payerEmail,
		ExternalReference: ref,
	})
	if err != nil {
		s.logger.Error("Failed to create deposit preference",
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Deposit preference created",
		zap.String("appointment_id", appointmentID.String()),
		zap.String("preference_id", pref.ID))

	return pref, nil
}
