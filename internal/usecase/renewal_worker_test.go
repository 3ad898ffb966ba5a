package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/agendasalud/payment-service/internal/domain/model"
	"github.com/agendasalud/payment-service/internal/domain/provider"
	"github.com/agendasalud/payment-service/internal/usecase"
)

type workerFixture struct {
	subs     *MockSubscriptionRepository
	plans    *MockPlanRepository
	pros     *MockProfessionalRepository
	provider *MockPaymentProvider
	worker   *usecase.RenewalWorker
}

func newWorkerFixture() *workerFixture {
	logger := zap.NewNop()

	f := &workerFixture{
		subs:     new(MockSubscriptionRepository),
		plans:    new(MockPlanRepository),
		pros:     new(MockProfessionalRepository),
		provider: new(MockPaymentProvider),
	}

	lifecycle := usecase.NewSubscriptionLifecycle(f.subs, logger)
	lifecycle.OnTransition(usecase.ProfessionalCascadeHook(f.pros, logger))

	f.worker = usecase.NewRenewalWorker(
		f.subs, f.plans, f.pros, f.provider, lifecycle,
		usecase.DefaultRenewalWorkerConfig(), logger,
	)

	return f
}

func recurringSub(next time.Time) *model.Subscription {
	mandateID := "pre-" + uuid.NewString()
	return &model.Subscription{
		ID:                        uuid.New(),
		ProfessionalID:            uuid.New(),
		PlanID:                    uuid.New(),
		BillingPeriod:             model.BillingPeriodMonthly,
		Status:                    model.SubscriptionStatusActive,
		NextBillingDate:           &next,
		MercadoPagoSubscriptionID: &mandateID,
	}
}

func manualSub(next time.Time) *model.Subscription {
	return &model.Subscription{
		ID:              uuid.New(),
		ProfessionalID:  uuid.New(),
		PlanID:          uuid.New(),
		BillingPeriod:   model.BillingPeriodMonthly,
		Status:          model.SubscriptionStatusActive,
		NextBillingDate: &next,
	}
}

func TestRenewalWorker_RecurringSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("authorized mandate advances the next billing date", func(t *testing.T) {
		f := newWorkerFixture()
		sub := recurringSub(time.Now().Add(12 * time.Hour))
		nextCharge := time.Now().Add(30 * 24 * time.Hour)

		f.subs.On("ListDueSoon", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{sub}, nil)
		f.subs.On("ListStalePastDue", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{}, nil)
		f.provider.On("GetPreapproval", ctx, *sub.MercadoPagoSubscriptionID).Return(&provider.Preapproval{
			ID:              *sub.MercadoPagoSubscriptionID,
			Status:          provider.PreapprovalStatusAuthorized,
			NextPaymentDate: &nextCharge,
		}, nil)
		f.subs.On("UpdateNextBillingDate", ctx, sub.ID, nextCharge).Return(nil)

		f.worker.RunOnce(ctx)

		f.subs.AssertExpectations(t)
	})

	t.Run("scheduled charge date in the past is still mirrored", func(t *testing.T) {
		f := newWorkerFixture()
		sub := recurringSub(time.Now().Add(-2 * time.Hour))
		staleCharge := time.Now().Add(-time.Hour)

		f.subs.On("ListDueSoon", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{sub}, nil)
		f.subs.On("ListStalePastDue", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{}, nil)
		f.provider.On("GetPreapproval", ctx, *sub.MercadoPagoSubscriptionID).Return(&provider.Preapproval{
			ID:              *sub.MercadoPagoSubscriptionID,
			Status:          provider.PreapprovalStatusAuthorized,
			NextPaymentDate: &staleCharge,
		}, nil)
		f.subs.On("UpdateNextBillingDate", ctx, sub.ID, staleCharge).Return(nil)

		f.worker.RunOnce(ctx)

		f.subs.AssertExpectations(t)
	})

	t.Run("authorized mandate without a scheduled charge waits for the next pass", func(t *testing.T) {
		f := newWorkerFixture()
		sub := recurringSub(time.Now().Add(12 * time.Hour))

		f.subs.On("ListDueSoon", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{sub}, nil)
		f.subs.On("ListStalePastDue", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{}, nil)
		f.provider.On("GetPreapproval", ctx, *sub.MercadoPagoSubscriptionID).Return(&provider.Preapproval{
			ID:     *sub.MercadoPagoSubscriptionID,
			Status: provider.PreapprovalStatusAuthorized,
		}, nil)

		f.worker.RunOnce(ctx)

		f.subs.AssertNotCalled(t, "UpdateNextBillingDate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("paused mandate suspends and deactivates", func(t *testing.T) {
		f := newWorkerFixture()
		sub := recurringSub(time.Now().Add(12 * time.Hour))

		f.subs.On("ListDueSoon", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{sub}, nil)
		f.subs.On("ListStalePastDue", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{}, nil)
		f.provider.On("GetPreapproval", ctx, *sub.MercadoPagoSubscriptionID).Return(&provider.Preapproval{
			ID:     *sub.MercadoPagoSubscriptionID,
			Status: provider.PreapprovalStatusPaused,
		}, nil)
		f.subs.On("MarkPastDue", ctx, sub.ID, (*model.Payment)(nil)).Return(true, nil)
		f.pros.On("Deactivate", ctx, sub.ProfessionalID, false).Return(nil)

		f.worker.RunOnce(ctx)

		f.subs.AssertExpectations(t)
		f.pros.AssertExpectations(t)
	})

	t.Run("cancelled mandate cancels the subscription", func(t *testing.T) {
		f := newWorkerFixture()
		sub := recurringSub(time.Now().Add(12 * time.Hour))

		f.subs.On("ListDueSoon", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{sub}, nil)
		f.subs.On("ListStalePastDue", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{}, nil)
		f.provider.On("GetPreapproval", ctx, *sub.MercadoPagoSubscriptionID).Return(&provider.Preapproval{
			ID:     *sub.MercadoPagoSubscriptionID,
			Status: provider.PreapprovalStatusCancelled,
		}, nil)
		f.subs.On("Cancel", ctx, sub.ID, mock.AnythingOfType("time.Time"), (*model.Payment)(nil)).Return(nil)

		f.worker.RunOnce(ctx)

		f.subs.AssertExpectations(t)
	})

	t.Run("provider failure on one subscription does not stall the batch", func(t *testing.T) {
		f := newWorkerFixture()
		broken := recurringSub(time.Now().Add(6 * time.Hour))
		healthy := recurringSub(time.Now().Add(12 * time.Hour))
		nextCharge := time.Now().Add(30 * 24 * time.Hour)

		f.subs.On("ListDueSoon", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{broken, healthy}, nil)
		f.subs.On("ListStalePastDue", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{}, nil)
		f.provider.On("GetPreapproval", ctx, *broken.MercadoPagoSubscriptionID).
			Return(nil, errors.New("connection refused"))
		f.provider.On("GetPreapproval", ctx, *healthy.MercadoPagoSubscriptionID).Return(&provider.Preapproval{
			ID:              *healthy.MercadoPagoSubscriptionID,
			Status:          provider.PreapprovalStatusAuthorized,
			NextPaymentDate: &nextCharge,
		}, nil)
		f.subs.On("UpdateNextBillingDate", ctx, healthy.ID, nextCharge).Return(nil)

		f.worker.RunOnce(ctx)

		f.subs.AssertExpectations(t)
		// the broken row keeps its state for the next pass
		f.subs.AssertNotCalled(t, "MarkPastDue", mock.Anything, broken.ID, mock.Anything)
	})
}

func TestRenewalWorker_ManualSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("due manual subscription gets a renewal preference", func(t *testing.T) {
		f := newWorkerFixture()
		sub := manualSub(time.Now().Add(12 * time.Hour))

		f.subs.On("ListDueSoon", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{sub}, nil)
		f.subs.On("ListStalePastDue", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{}, nil)
		f.plans.On("GetByID", ctx, sub.PlanID).Return(&model.SubscriptionPlan{
			ID:           sub.PlanID,
			Name:         "Pro",
			MonthlyPrice: decimal.NewFromInt(4999),
		}, nil)
		f.pros.On("GetByID", ctx, sub.ProfessionalID).Return(&model.Professional{
			ID:    sub.ProfessionalID,
			Email: "pro@example.com",
		}, nil)
		f.provider.On("CreatePreference", ctx, mock.MatchedBy(func(req *provider.PreferenceRequest) bool {
			return len(req.Items) == 1 &&
				req.Items[0].UnitPrice.Equal(decimal.NewFromInt(4999)) &&
				req.PayerEmail == "pro@example.com"
		})).Return(&provider.Preference{ID: "pref-1", InitPoint: "https://mp.test/init"}, nil)

		f.worker.RunOnce(ctx)

		f.provider.AssertExpectations(t)
		f.subs.AssertNotCalled(t, "MarkPastDue", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("overdue manual subscription is suspended", func(t *testing.T) {
		f := newWorkerFixture()
		sub := manualSub(time.Now().Add(-time.Hour))

		f.subs.On("ListDueSoon", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{sub}, nil)
		f.subs.On("ListStalePastDue", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{}, nil)
		f.subs.On("MarkPastDue", ctx, sub.ID, (*model.Payment)(nil)).Return(true, nil)
		f.pros.On("Deactivate", ctx, sub.ProfessionalID, false).Return(nil)

		f.worker.RunOnce(ctx)

		f.subs.AssertExpectations(t)
		f.provider.AssertNotCalled(t, "CreatePreference", mock.Anything, mock.Anything)
	})

	t.Run("preference creation failure suspends without deactivation", func(t *testing.T) {
		f := newWorkerFixture()
		sub := manualSub(time.Now().Add(12 * time.Hour))

		f.subs.On("ListDueSoon", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{sub}, nil)
		f.subs.On("ListStalePastDue", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{}, nil)
		f.plans.On("GetByID", ctx, sub.PlanID).Return(&model.SubscriptionPlan{ID: sub.PlanID, Name: "Pro"}, nil)
		f.pros.On("GetByID", ctx, sub.ProfessionalID).Return(&model.Professional{ID: sub.ProfessionalID}, nil)
		f.provider.On("CreatePreference", ctx, mock.Anything).
			Return(nil, errors.New("mercadopago unavailable"))
		f.subs.On("MarkPastDue", ctx, sub.ID, (*model.Payment)(nil)).Return(true, nil)

		f.worker.RunOnce(ctx)

		f.subs.AssertExpectations(t)
		f.pros.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRenewalWorker_StaleSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("stale past-due subscriptions are cancelled and unlinked", func(t *testing.T) {
		f := newWorkerFixture()
		next := time.Now().Add(-10 * 24 * time.Hour)
		sub := &model.Subscription{
			ID:              uuid.New(),
			ProfessionalID:  uuid.New(),
			Status:          model.SubscriptionStatusPastDue,
			NextBillingDate: &next,
		}

		f.subs.On("ListDueSoon", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{}, nil)
		f.subs.On("ListStalePastDue", ctx, mock.AnythingOfType("time.Time"), 50).
			Return([]*model.Subscription{sub}, nil)
		f.subs.On("Cancel", ctx, sub.ID, mock.AnythingOfType("time.Time"), (*model.Payment)(nil)).Return(nil)
		f.pros.On("Deactivate", ctx, sub.ProfessionalID, true).Return(nil)

		f.worker.RunOnce(ctx)

		f.subs.AssertExpectations(t)
		f.pros.AssertExpectations(t)
	})
}

func TestRenewalWorker_StartStop(t *testing.T) {
	f := newWorkerFixture()

	f.subs.On("ListDueSoon", mock.Anything, mock.AnythingOfType("time.Time"), 50).
		Return([]*model.Subscription{}, nil)
	f.subs.On("ListStalePastDue", mock.Anything, mock.AnythingOfType("time.Time"), 50).
		Return([]*model.Subscription{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.worker.Start(ctx)
	// second Start is a no-op, not a second loop
	f.worker.Start(ctx)

	f.worker.Stop()
	// Stop after Stop must not panic or block
	f.worker.Stop()

	f.subs.AssertCalled(t, "ListDueSoon", mock.Anything, mock.AnythingOfType("time.Time"), 50)
}
