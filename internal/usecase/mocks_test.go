package usecase_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/agendasalud/payment-service/internal/domain/model"
	"github.com/agendasalud/payment-service/internal/domain/provider"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

// MockPaymentProvider is a mock implementation of provider.PaymentProvider
type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) GetPayment(ctx context.Context, id string) (*provider.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Payment), args.Error(1)
}

func (m *MockPaymentProvider) GetPreapproval(ctx context.Context, id string) (*provider.Preapproval, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Preapproval), args.Error(1)
}

func (m *MockPaymentProvider) CreatePreference(ctx context.Context, req *provider.PreferenceRequest) (*provider.Preference, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Preference), args.Error(1)
}

func (m *MockPaymentProvider) CreatePreapproval(ctx context.Context, req *provider.PreapprovalRequest) (*provider.Preapproval, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Preapproval), args.Error(1)
}

func (m *MockPaymentProvider) CancelPreapproval(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockWebhookEventRepository is a mock implementation of WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) RecordIfNew(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, bool, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.WebhookEvent), args.Bool(1), args.Error(2)
}

func (m *MockWebhookEventRepository) MarkProcessed(ctx context.Context, id int64, response model.JSONB) error {
	args := m.Called(ctx, id, response)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) MarkFailed(ctx context.Context, id int64, errorMessage string, response model.JSONB) error {
	args := m.Called(ctx, id, errorMessage, response)
	return args.Error(0)
}

// MockSubscriptionRepository is a mock implementation of SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) GetByProfessionalID(ctx context.Context, professionalID uuid.UUID) (*model.Subscription, error) {
	args := m.Called(ctx, professionalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Activate(ctx context.Context, params domainRepo.ActivateParams) (*model.Subscription, bool, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Subscription), args.Bool(1), args.Error(2)
}

func (m *MockSubscriptionRepository) MarkPastDue(ctx context.Context, id uuid.UUID, payment *model.Payment) (bool, error) {
	args := m.Called(ctx, id, payment)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) Cancel(ctx context.Context, id uuid.UUID, endDate time.Time, payment *model.Payment) error {
	args := m.Called(ctx, id, endDate, payment)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) UpdateNextBillingDate(ctx context.Context, id uuid.UUID, next time.Time) error {
	args := m.Called(ctx, id, next)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ListDueSoon(ctx context.Context, cutoff time.Time, limit int) ([]*model.Subscription, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) ListStalePastDue(ctx context.Context, cutoff time.Time, limit int) ([]*model.Subscription, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Subscription), args.Error(1)
}

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) CreateIfAbsent(ctx context.Context, payment *model.Payment) (bool, error) {
	args := m.Called(ctx, payment)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) ListBySubscriptionID(ctx context.Context, subscriptionID uuid.UUID, limit int) ([]*model.Payment, error) {
	args := m.Called(ctx, subscriptionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

// MockPlanRepository is a mock implementation of PlanRepository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) GetActive(ctx context.Context, id uuid.UUID) (*model.SubscriptionPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SubscriptionPlan), args.Error(1)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SubscriptionPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SubscriptionPlan), args.Error(1)
}

func (m *MockPlanRepository) ListActive(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SubscriptionPlan), args.Error(1)
}

// MockProfessionalRepository is a mock implementation of ProfessionalRepository
type MockProfessionalRepository struct {
	mock.Mock
}

func (m *MockProfessionalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Professional, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Professional), args.Error(1)
}

func (m *MockProfessionalRepository) GetByUserID(ctx context.Context, userID string) (*model.Professional, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Professional), args.Error(1)
}

func (m *MockProfessionalRepository) Deactivate(ctx context.Context, id uuid.UUID, clearSubscription bool) error {
	args := m.Called(ctx, id, clearSubscription)
	return args.Error(0)
}

func (m *MockProfessionalRepository) LinkSubscription(ctx context.Context, id uuid.UUID, subscriptionID uuid.UUID) error {
	args := m.Called(ctx, id, subscriptionID)
	return args.Error(0)
}

// MockAppointmentRepository is a mock implementation of AppointmentRepository
type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) SetDepositPaid(ctx context.Context, id uuid.UUID, paid bool, paidAt *time.Time) error {
	args := m.Called(ctx, id, paid, paidAt)
	return args.Error(0)
}
