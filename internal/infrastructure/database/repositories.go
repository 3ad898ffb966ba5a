package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agendasalud/payment-service/internal/adapter/repository"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Subscription domainRepo.SubscriptionRepository
	Payment      domainRepo.PaymentRepository
	WebhookEvent domainRepo.WebhookEventRepository
	Plan         domainRepo.PlanRepository
	Professional domainRepo.ProfessionalRepository
	Appointment  domainRepo.AppointmentRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Subscription: repository.NewSubscriptionRepository(db, logger),
		Payment:      repository.NewPaymentRepository(db, logger),
		WebhookEvent: repository.NewWebhookEventRepository(db, logger),
		Plan:         repository.NewPlanRepository(db, logger),
		Professional: repository.NewProfessionalRepository(db, logger),
		Appointment:  repository.NewAppointmentRepository(db, logger),
	}
}
