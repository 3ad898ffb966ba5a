package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agendasalud/payment-service/internal/domain/billing"
	domainErrors "github.com/agendasalud/payment-service/internal/domain/errors"
	"github.com/agendasalud/payment-service/internal/domain/model"
	"github.com/agendasalud/payment-service/internal/domain/provider"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

// RenewalWorkerConfig bounds one sweep pass.
type RenewalWorkerConfig struct {
	Interval    time.Duration
	DueWindow   time.Duration
	GracePeriod time.Duration
	BatchSize   int
}

// DefaultRenewalWorkerConfig returns the production sweep cadence
func DefaultRenewalWorkerConfig() RenewalWorkerConfig {
	return RenewalWorkerConfig{
		Interval:    6 * time.Hour,
		DueWindow:   24 * time.Hour,
		GracePeriod: 7 * 24 * time.Hour,
		BatchSize:   50,
	}
}

// RenewalWorker periodically reconciles subscriptions approaching or past
// their next billing date. Recurring subscriptions are checked against
// their mandate at MercadoPago; manual subscriptions get a fresh checkout
// preference; subscriptions stuck PAST_DUE beyond the grace period are
// cancelled.
type RenewalWorker struct {
	subs      domainRepo.SubscriptionRepository
	plans     domainRepo.PlanRepository
	pros      domainRepo.ProfessionalRepository
	provider  provider.PaymentProvider
	lifecycle *SubscriptionLifecycle
	cfg       RenewalWorkerConfig
	logger    *zap.Logger

	mu      sync.Mutex
	ticking bool
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewRenewalWorker creates a new renewal sweep worker
func NewRenewalWorker(
	subs domainRepo.SubscriptionRepository,
	plans domainRepo.PlanRepository,
	pros domainRepo.ProfessionalRepository,
	p provider.PaymentProvider,
	lifecycle *SubscriptionLifecycle,
	cfg RenewalWorkerConfig,
	logger *zap.Logger,
) *RenewalWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.DueWindow <= 0 {
		cfg.DueWindow = 24 * time.Hour
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 7 * 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	return &RenewalWorker{
		subs:      subs,
		plans:     plans,
		pros:      pros,
		provider:  p,
		lifecycle: lifecycle,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start launches the sweep loop. A first pass runs immediately; further
// passes run every Interval until Stop is called.
func (w *RenewalWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("Renewal worker started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Duration("due_window", w.cfg.DueWindow))

	go func() {
		defer close(w.done)

		w.RunOnce(ctx)

		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.RunOnce(ctx)
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweep loop and waits for any in-flight pass to finish
func (w *RenewalWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("Renewal worker stopped")
}

// RunOnce executes a single sweep pass. Overlapping passes are skipped,
// not queued.
func (w *RenewalWorker) RunOnce(ctx context.Context) {
	w.mu.Lock()
	if w.ticking {
		w.mu.Unlock()
		w.logger.Warn("Renewal pass already in progress, skipping tick")
		return
	}
	w.ticking = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.ticking = false
		w.mu.Unlock()
	}()

	now := time.Now()
	w.sweepDue(ctx, now)
	w.sweepStale(ctx, now)
}

// sweepDue reconciles subscriptions whose next billing date falls inside
// the due window.
func (w *RenewalWorker) sweepDue(ctx context.Context, now time.Time) {
	cutoff := now.Add(w.cfg.DueWindow)

	due, err := w.subs.ListDueSoon(ctx, cutoff, w.cfg.BatchSize)
	if err != nil {
		w.logger.Error("Failed to list due subscriptions", zap.Error(err))
		return
	}

	if len(due) == 0 {
		return
	}

	w.logger.Info("Sweeping due subscriptions", zap.Int("count", len(due)))

	for _, sub := range due {
		if ctx.Err() != nil {
			return
		}

		var subErr error
		if sub.IsRecurring() {
			subErr = w.reconcileRecurring(ctx, sub, now)
		} else {
			subErr = w.renewManual(ctx, sub, now)
		}

		// A single broken subscription must not stall the batch.
		if subErr != nil {
			w.logger.Error("Failed to process due subscription",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(subErr))
		}
	}
}

// reconcileRecurring checks the mandate state at MercadoPago and mirrors
// it locally.
func (w *RenewalWorker) reconcileRecurring(ctx context.Context, sub *model.Subscription, now time.Time) error {
	pre, err := w.provider.GetPreapproval(ctx, *sub.MercadoPagoSubscriptionID)
	if err != nil {
		// Transient failures leave the row in the window; the next pass
		// retries it.
		if !errors.Is(err, domainErrors.ErrPreapprovalNotFound) {
			return err
		}
		w.logger.Warn("Mandate no longer exists at Mercado Pago, suspending",
			zap.String("subscription_id", sub.ID.String()))
		_, err := w.lifecycle.Suspend(ctx, sub, true, nil)
		return err
	}

	switch pre.Status {
	case provider.PreapprovalStatusAuthorized:
		if pre.NextPaymentDate == nil {
			// MercadoPago has not scheduled the next charge yet; revisit
			// on a later pass.
			w.logger.Info("Mandate authorized but next charge not scheduled",
				zap.String("subscription_id", sub.ID.String()))
			return nil
		}
		return w.subs.UpdateNextBillingDate(ctx, sub.ID, *pre.NextPaymentDate)

	case provider.PreapprovalStatusPaused:
		_, err := w.lifecycle.Suspend(ctx, sub, true, nil)
		return err

	case provider.PreapprovalStatusCancelled:
		return w.lifecycle.Cancel(ctx, sub, now, false, false, nil)

	default:
		w.logger.Info("Mandate status left untouched",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("status", pre.Status))
		return nil
	}
}

// renewManual issues a fresh checkout preference for a manually renewed
// subscription, or suspends it once the billing date has passed without
// payment.
func (w *RenewalWorker) renewManual(ctx context.Context, sub *model.Subscription, now time.Time) error {
	if sub.NextBillingDate != nil && sub.NextBillingDate.Before(now) {
		_, err := w.lifecycle.Suspend(ctx, sub, true, nil)
		return err
	}

	plan, err := w.plans.GetByID(ctx, sub.PlanID)
	if err != nil {
		return err
	}
	if plan == nil {
		return domainErrors.ErrPlanNotFound
	}

	pro, err := w.pros.GetByID(ctx, sub.ProfessionalID)
	if err != nil {
		return err
	}
	if pro == nil {
		return domainErrors.ErrProfessionalNotFound
	}

	ref, err := billing.SubscriptionReference(
		sub.ProfessionalID.String(),
		sub.PlanID.String(),
		sub.BillingPeriod,
	).Encode()
	if err != nil {
		return err
	}

	_, err = w.provider.CreatePreference(ctx, &provider.PreferenceRequest{
		Items: []provider.PreferenceItem{{
			ID:         sub.PlanID.String(),
			Title:      plan.Name + " - renewal",
			Quantity:   1,
			UnitPrice:  plan.PriceFor(sub.BillingPeriod),
			CurrencyID: "ARS",
		}},
		PayerEmail:        pro.Email,
		ExternalReference: ref,
	})
	if err != nil {
		w.logger.Error("Failed to create renewal preference, suspending",
			zap.String("subscription_id", sub.ID.String()),
			zap.Error(err))
		_, suspendErr := w.lifecycle.Suspend(ctx, sub, false, nil)
		return suspendErr
	}

	w.logger.Info("Renewal preference created",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("professional_id", sub.ProfessionalID.String()))

	return nil
}

// sweepStale cancels subscriptions that have sat PAST_DUE beyond the
// grace period.
func (w *RenewalWorker) sweepStale(ctx context.Context, now time.Time) {
	cutoff := now.Add(-w.cfg.GracePeriod)

	stale, err := w.subs.ListStalePastDue(ctx, cutoff, w.cfg.BatchSize)
	if err != nil {
		w.logger.Error("Failed to list stale past-due subscriptions", zap.Error(err))
		return
	}

	if len(stale) == 0 {
		return
	}

	w.logger.Info("Cancelling stale past-due subscriptions", zap.Int("count", len(stale)))

	for _, sub := range stale {
		if ctx.Err() != nil {
			return
		}

		if err := w.lifecycle.Cancel(ctx, sub, now, true, true, nil); err != nil {
			w.logger.Error("Failed to cancel stale subscription",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err))
		}
	}
}
