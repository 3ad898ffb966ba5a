package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendasalud/payment-service/internal/domain/billing"
	domainErrors "github.com/agendasalud/payment-service/internal/domain/errors"
	"github.com/agendasalud/payment-service/internal/domain/model"
	"github.com/agendasalud/payment-service/internal/domain/provider"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

// SubscriptionService exposes the checkout-facing subscription
// operations: creating mandates and preferences, reading status,
// changing plans and cancelling.
type SubscriptionService struct {
	subs        domainRepo.SubscriptionRepository
	plans       domainRepo.PlanRepository
	pros        domainRepo.ProfessionalRepository
	payments    domainRepo.PaymentRepository
	provider    provider.PaymentProvider
	lifecycle   *SubscriptionLifecycle
	backURL     string
	serviceName string
	logger      *zap.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	subs domainRepo.SubscriptionRepository,
	plans domainRepo.PlanRepository,
	pros domainRepo.ProfessionalRepository,
	payments domainRepo.PaymentRepository,
	p provider.PaymentProvider,
	lifecycle *SubscriptionLifecycle,
	backURL string,
	serviceName string,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subs:        subs,
		plans:       plans,
		pros:        pros,
		payments:    payments,
		provider:    p,
		lifecycle:   lifecycle,
		backURL:     backURL,
		serviceName: serviceName,
		logger:      logger,
	}
}

// SubscriptionStatusView is the aggregate returned by GetStatus
type SubscriptionStatusView struct {
	Subscription *model.Subscription     `json:"subscription"`
	Plan         *model.SubscriptionPlan `json:"plan,omitempty"`
	Payments     []*model.Payment        `json:"recent_payments"`
}

// CreateRecurring creates a MercadoPago preapproval for the professional
// and returns the checkout URL the payer must visit to authorize it. The
// subscription row itself is only created when the authorized webhook
// arrives.
func (s *SubscriptionService) CreateRecurring(ctx context.Context, professionalID, planID uuid.UUID, period model.BillingPeriod) (*provider.Preapproval, error) {
	plan, err := s.plans.GetActive(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domainErrors.ErrPlanNotFound
	}

	pro, err := s.pros.GetByID(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if pro == nil {
		return nil, domainErrors.ErrProfessionalNotFound
	}

	ref, err := billing.SubscriptionReference(professionalID.String(), planID.String(), period).Encode()
	if err != nil {
		return nil, err
	}

	frequency := 1
	if period == model.BillingPeriodAnnual {
		frequency = 12
	}

	// The first charge lands two days out at 15:00 UTC, giving the payer
	// time to authorize the mandate before it fires.
	start := time.Now().AddDate(0, 0, 2)
	start = time.Date(start.Year(), start.Month(), start.Day(), 15, 0, 0, 0, time.UTC)

	pre, err := s.provider.CreatePreapproval(ctx, &provider.PreapprovalRequest{
		Reason:            s.serviceName + " - " + plan.Name,
		PayerEmail:        pro.Email,
		BackURL:           s.backURL,
		FrequencyMonths:   frequency,
		TransactionAmount: plan.PriceFor(period),
		CurrencyID:        "ARS",
		StartDate:         start,
		ExternalReference: ref,
	})
	if err != nil {
		s.logger.Error("Failed to create preapproval",
			zap.String("professional_id", professionalID.String()),
			zap.String("plan_id", planID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Preapproval created",
		zap.String("preapproval_id", pre.ID),
		zap.String("professional_id", professionalID.String()))

	return pre, nil
}

// CreateManualPreference creates a one-time checkout preference for a
// single subscription period.
func (s *SubscriptionService) CreateManualPreference(ctx context.Context, professionalID, planID uuid.UUID, period model.BillingPeriod) (*provider.Preference, error) {
	plan, err := s.plans.GetActive(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domainErrors.ErrPlanNotFound
	}

	pro, err := s.pros.GetByID(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if pro == nil {
		return nil, domainErrors.ErrProfessionalNotFound
	}

	ref, err := billing.SubscriptionReference(professionalID.String(), planID.String(), period).Encode()
	if err != nil {
		return nil, err
	}

	pref, err := s.provider.CreatePreference(ctx, &provider.PreferenceRequest{
		Items: []provider.PreferenceItem{{
			ID:         planID.String(),
			Title:      plan.Name,
			Quantity:   1,
			UnitPrice:  plan.PriceFor(period),
			CurrencyID: "ARS",
		}},
		PayerEmail:        pro.Email,
		PayerName:         pro.FirstName + " " + pro.LastName,
		ExternalReference: ref,
	})
	if err != nil {
		s.logger.Error("Failed to create preference",
			zap.String("professional_id", professionalID.String()),
			zap.Error(err))
		return nil, err
	}

	return pref, nil
}

// GetStatus returns the professional's subscription with its plan and
// the five most recent ledger entries.
func (s *SubscriptionService) GetStatus(ctx context.Context, professionalID uuid.UUID) (*SubscriptionStatusView, error) {
	sub, err := s.subs.GetByProfessionalID(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domainErrors.ErrNoSubscription
	}

	view := &SubscriptionStatusView{Subscription: sub, Plan: sub.Plan}

	if view.Plan == nil {
		plan, err := s.plans.GetByID(ctx, sub.PlanID)
		if err != nil {
			return nil, err
		}
		view.Plan = plan
	}

	payments, err := s.payments.ListBySubscriptionID(ctx, sub.ID, 5)
	if err != nil {
		return nil, err
	}
	view.Payments = payments

	return view, nil
}

// Cancel stops the professional's subscription. Recurring mandates are
// cancelled at MercadoPago first so no further charges fire; access runs
// until the already-paid period ends.
func (s *SubscriptionService) Cancel(ctx context.Context, professionalID uuid.UUID) (*model.Subscription, error) {
	sub, err := s.subs.GetByProfessionalID(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domainErrors.ErrNoSubscription
	}
	if sub.Status == model.SubscriptionStatusCancelled {
		return sub, nil
	}

	if sub.IsRecurring() {
		if err := s.provider.CancelPreapproval(ctx, *sub.MercadoPagoSubscriptionID); err != nil {
			s.logger.Error("Failed to cancel preapproval at Mercado Pago",
				zap.String("preapproval_id", *sub.MercadoPagoSubscriptionID),
				zap.Error(err))
			return nil, err
		}
	}

	endDate := time.Now()
	if sub.NextBillingDate != nil && sub.NextBillingDate.After(endDate) {
		endDate = *sub.NextBillingDate
	}

	if err := s.lifecycle.Cancel(ctx, sub, endDate, false, false, nil); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription cancelled by professional",
		zap.String("subscription_id", sub.ID.String()),
		zap.Time("end_date", endDate))

	return s.subs.GetByID(ctx, sub.ID)
}

// ChangePlan moves the professional onto a different plan or billing
// period. The old mandate, if any, is cancelled best-effort; the new one
// replaces it once the payer authorizes.
func (s *SubscriptionService) ChangePlan(ctx context.Context, professionalID, planID uuid.UUID, period model.BillingPeriod) (*provider.Preapproval, error) {
	sub, err := s.subs.GetByProfessionalID(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domainErrors.ErrNoSubscription
	}

	if sub.IsRecurring() {
		if err := s.provider.CancelPreapproval(ctx, *sub.MercadoPagoSubscriptionID); err != nil {
			// The old mandate may already be cancelled upstream; the new
			// authorization supersedes it either way.
			s.logger.Warn("Failed to cancel previous preapproval during plan change",
				zap.String("preapproval_id", *sub.MercadoPagoSubscriptionID),
				zap.Error(err))
		}
	}

	return s.CreateRecurring(ctx, professionalID, planID, period)
}

// ListPlans returns the active plan catalog
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	return s.plans.ListActive(ctx)
}
