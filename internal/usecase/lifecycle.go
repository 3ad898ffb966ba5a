package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendasalud/payment-service/internal/domain/model"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

// SubscriptionTransition describes a committed status change. Hooks
// receive it after the subscription transaction has committed, so
// cross-aggregate cascades never run inside the subscription's own
// transaction.
type SubscriptionTransition struct {
	SubscriptionID         uuid.UUID
	ProfessionalID         uuid.UUID
	To                     model.SubscriptionStatus
	DeactivateProfessional bool
	ClearSubscriptionLink  bool
}

// TransitionHook reacts to a committed subscription transition. Hook
// failures are the hook's own problem; they must not fail the transition.
type TransitionHook func(ctx context.Context, tr SubscriptionTransition)

// SubscriptionLifecycle owns every subscription status change made by
// the webhook dispatcher and the renewal worker, and fans committed
// transitions out to registered hooks.
type SubscriptionLifecycle struct {
	subs   domainRepo.SubscriptionRepository
	logger *zap.Logger
	hooks  []TransitionHook
}

// NewSubscriptionLifecycle creates a new subscription lifecycle service
func NewSubscriptionLifecycle(subs domainRepo.SubscriptionRepository, logger *zap.Logger) *SubscriptionLifecycle {
	return &SubscriptionLifecycle{
		subs:   subs,
		logger: logger,
	}
}

// OnTransition registers a hook invoked after each committed transition
func (l *SubscriptionLifecycle) OnTransition(hook TransitionHook) {
	l.hooks = append(l.hooks, hook)
}

func (l *SubscriptionLifecycle) notify(ctx context.Context, tr SubscriptionTransition) {
	for _, hook := range l.hooks {
		hook(ctx, tr)
	}
}

// Activate creates or reactivates the professional's subscription.
func (l *SubscriptionLifecycle) Activate(ctx context.Context, params domainRepo.ActivateParams) (*model.Subscription, bool, error) {
	sub, created, err := l.subs.Activate(ctx, params)
	if err != nil {
		return nil, false, err
	}

	l.notify(ctx, SubscriptionTransition{
		SubscriptionID: sub.ID,
		ProfessionalID: sub.ProfessionalID,
		To:             model.SubscriptionStatusActive,
	})

	return sub, created, nil
}

// Suspend transitions the subscription to PAST_DUE. Returns false when
// the subscription was not ACTIVE and nothing changed. The optional
// payment row commits together with the transition.
func (l *SubscriptionLifecycle) Suspend(ctx context.Context, sub *model.Subscription, deactivateProfessional bool, payment *model.Payment) (bool, error) {
	changed, err := l.subs.MarkPastDue(ctx, sub.ID, payment)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	l.notify(ctx, SubscriptionTransition{
		SubscriptionID:         sub.ID,
		ProfessionalID:         sub.ProfessionalID,
		To:                     model.SubscriptionStatusPastDue,
		DeactivateProfessional: deactivateProfessional,
	})

	return true, nil
}

// Cancel transitions the subscription to CANCELLED with the given end
// date. The optional payment row commits together with the transition.
func (l *SubscriptionLifecycle) Cancel(ctx context.Context, sub *model.Subscription, endDate time.Time, deactivateProfessional, clearLink bool, payment *model.Payment) error {
	if err := l.subs.Cancel(ctx, sub.ID, endDate, payment); err != nil {
		return err
	}

	l.notify(ctx, SubscriptionTransition{
		SubscriptionID:         sub.ID,
		ProfessionalID:         sub.ProfessionalID,
		To:                     model.SubscriptionStatusCancelled,
		DeactivateProfessional: deactivateProfessional,
		ClearSubscriptionLink:  clearLink,
	})

	return nil
}

// ProfessionalCascadeHook deactivates the professional's booking page
// when a transition asks for it. Registered as the default hook at wiring
// time; tests swap it for a recorder.
func ProfessionalCascadeHook(pros domainRepo.ProfessionalRepository, logger *zap.Logger) TransitionHook {
	return func(ctx context.Context, tr SubscriptionTransition) {
		if !tr.DeactivateProfessional {
			return
		}

		if err := pros.Deactivate(ctx, tr.ProfessionalID, tr.ClearSubscriptionLink); err != nil {
			logger.Error("Failed to deactivate professional after subscription transition",
				zap.String("professional_id", tr.ProfessionalID.String()),
				zap.String("subscription_id", tr.SubscriptionID.String()),
				zap.String("status", string(tr.To)),
				zap.Error(err))
		}
	}
}
