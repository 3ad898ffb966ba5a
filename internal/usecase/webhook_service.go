package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendasalud/payment-service/internal/domain/billing"
	domainErrors "github.com/agendasalud/payment-service/internal/domain/errors"
	"github.com/agendasalud/payment-service/internal/domain/model"
	"github.com/agendasalud/payment-service/internal/domain/provider"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

// WebhookEnvelope is the inbound MercadoPago notification body. The
// payload carries only ids; authoritative state is always fetched back
// from the processor.
type WebhookEnvelope struct {
	Action string      `json:"action"`
	Type   string      `json:"type"`
	Data   WebhookData `json:"data"`
}

// WebhookData is the data section of a webhook envelope
type WebhookData struct {
	ID string `json:"id"`
}

// Outcome is the structured result of one webhook delivery. It is what
// the HTTP caller answers with and, serialized, what lands in the audit
// ledger's response column.
type Outcome struct {
	Success     bool       `json:"success"`
	Message     string     `json:"message,omitempty"`
	Error       string     `json:"error,omitempty"`
	Duplicate   bool       `json:"duplicate,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func successOutcome(format string, args ...interface{}) Outcome {
	return Outcome{Success: true, Message: fmt.Sprintf(format, args...)}
}

func failureOutcome(format string, args ...interface{}) Outcome {
	return Outcome{Success: false, Error: fmt.Sprintf(format, args...)}
}

func (o Outcome) toJSONB() model.JSONB {
	out := model.JSONB{"success": o.Success}
	if o.Message != "" {
		out["message"] = o.Message
	}
	if o.Error != "" {
		out["error"] = o.Error
	}
	return out
}

// WebhookService is the webhook dispatcher: it deduplicates payment
// deliveries through the audit ledger, fetches authoritative state from
// MercadoPago, decodes the external reference and routes to the payment
// or preapproval mapper.
type WebhookService struct {
	provider     provider.PaymentProvider
	events       domainRepo.WebhookEventRepository
	payments     domainRepo.PaymentRepository
	plans        domainRepo.PlanRepository
	subs         domainRepo.SubscriptionRepository
	appointments domainRepo.AppointmentRepository
	lifecycle    *SubscriptionLifecycle
	logger       *zap.Logger
}

// NewWebhookService creates a new webhook dispatcher
func NewWebhookService(
	p provider.PaymentProvider,
	events domainRepo.WebhookEventRepository,
	payments domainRepo.PaymentRepository,
	plans domainRepo.PlanRepository,
	subs domainRepo.SubscriptionRepository,
	appointments domainRepo.AppointmentRepository,
	lifecycle *SubscriptionLifecycle,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		provider:     p,
		events:       events,
		payments:     payments,
		plans:        plans,
		subs:         subs,
		appointments: appointments,
		lifecycle:    lifecycle,
		logger:       logger,
	}
}

// Handle processes one webhook delivery. Every failure is recovered
// here: the caller always gets a structured outcome, never an error.
func (s *WebhookService) Handle(ctx context.Context, env WebhookEnvelope, headers map[string]string) Outcome {
	// Preapproval events live in their own id space and are not
	// deduplicated against payment ids.
	if env.Type == "subscription_preapproval" {
		return s.handlePreapprovalEvent(ctx, env)
	}

	if env.Type != "payment" {
		s.logger.Info("Ignoring non-payment webhook", zap.String("type", env.Type))
		return successOutcome("ignored non-payment webhook")
	}

	paymentID := env.Data.ID
	requestID := headers["x-request-id"]

	if paymentID == "" || requestID == "" {
		s.logger.Error("Webhook missing required identifiers",
			zap.Bool("has_payment_id", paymentID != ""),
			zap.Bool("has_request_id", requestID != ""))
		return failureOutcome("%s", domainErrors.ErrMissingIdentifiers)
	}

	event := &model.WebhookEvent{
		PaymentID:      paymentID,
		RequestID:      requestID,
		EventType:      env.Type,
		RequestBody:    envelopeToJSONB(env),
		RequestHeaders: headersToJSONB(headers),
	}

	recorded, isNew, err := s.events.RecordIfNew(ctx, event)
	if err != nil {
		s.logger.Error("Failed to record webhook event",
			zap.String("payment_id", paymentID),
			zap.String("request_id", requestID),
			zap.Error(err))
		return failureOutcome("webhook processing error")
	}

	if !isNew {
		s.logger.Info("Duplicate webhook delivery detected",
			zap.String("payment_id", paymentID),
			zap.String("request_id", requestID))
		return Outcome{
			Success:     true,
			Message:     "webhook already processed (idempotent)",
			Duplicate:   true,
			ProcessedAt: recorded.ProcessedAt,
		}
	}

	result := s.processPaymentEvent(ctx, paymentID)
	s.finalize(ctx, recorded.ID, result)
	return result
}

// processPaymentEvent runs steps 5-8 of the dispatch contract for a
// freshly recorded delivery.
func (s *WebhookService) processPaymentEvent(ctx context.Context, paymentID string) Outcome {
	payment, err := s.provider.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPaymentNotFound) {
			s.logger.Error("Payment not found in Mercado Pago", zap.String("payment_id", paymentID))
			return failureOutcome("%s", domainErrors.ErrPaymentNotFound)
		}
		s.logger.Error("Failed to fetch payment from Mercado Pago",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return failureOutcome("failed to fetch payment: %v", err)
	}

	if payment.ExternalReference == "" {
		s.logger.Error("Payment has no external reference", zap.String("payment_id", paymentID))
		return failureOutcome("%s", domainErrors.ErrMissingExternalReference)
	}

	ref, err := billing.DecodeReference(payment.ExternalReference)
	if err != nil {
		s.logger.Error("Failed to decode external reference",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return failureOutcome("%v", err)
	}

	switch ref.Type {
	case billing.ReferenceKindSubscription:
		return s.applySubscriptionPayment(ctx, payment, ref)
	case billing.ReferenceKindDeposit:
		return s.applyDepositPayment(ctx, payment, ref)
	default:
		return failureOutcome("%s: %q", billing.ErrUnknownReferenceKind, ref.Type)
	}
}

func (s *WebhookService) finalize(ctx context.Context, eventID int64, result Outcome) {
	var err error
	if result.Success {
		err = s.events.MarkProcessed(ctx, eventID, result.toJSONB())
	} else {
		err = s.events.MarkFailed(ctx, eventID, result.Error, result.toJSONB())
	}
	if err != nil {
		s.logger.Error("Failed to finalize webhook event",
			zap.Int64("event_id", eventID),
			zap.Error(err))
	}
}

// applySubscriptionPayment maps a MercadoPago payment status onto the
// local subscription state machine.
func (s *WebhookService) applySubscriptionPayment(ctx context.Context, payment *provider.Payment, ref billing.Reference) Outcome {
	professionalID, err := uuid.Parse(ref.ProfessionalID)
	if err != nil {
		return failureOutcome("%s: invalid professional id %q", billing.ErrMalformedReference, ref.ProfessionalID)
	}
	planID, err := uuid.Parse(ref.PlanID)
	if err != nil {
		return failureOutcome("%s: invalid plan id %q", billing.ErrMalformedReference, ref.PlanID)
	}

	s.logger.Info("Processing subscription payment",
		zap.String("payment_id", payment.ID),
		zap.String("status", payment.Status),
		zap.String("professional_id", ref.ProfessionalID))

	currency := payment.CurrencyID
	if currency == "" {
		currency = "ARS"
	}

	switch payment.Status {
	case provider.PaymentStatusApproved:
		plan, err := s.plans.GetByID(ctx, planID)
		if err != nil {
			return failureOutcome("failed to load plan: %v", err)
		}
		if plan == nil {
			return failureOutcome("%s", domainErrors.ErrPlanNotFound)
		}

		now := time.Now()
		params := domainRepo.ActivateParams{
			ProfessionalID:  professionalID,
			PlanID:          planID,
			BillingPeriod:   ref.BillingPeriod,
			StartDate:       now,
			NextBillingDate: ref.BillingPeriod.NextDate(now),
			Payment: &model.Payment{
				Type:                 model.PaymentTypeSubscription,
				Status:               model.PaymentStatusCompleted,
				Amount:               payment.TransactionAmount,
				Currency:             currency,
				MercadoPagoPaymentID: payment.ID,
				PaidAt:               &now,
			},
		}

		// A one-time charge doubles as the mandate reference only when
		// the subscription has none yet.
		existing, err := s.subs.GetByProfessionalID(ctx, professionalID)
		if err != nil {
			return failureOutcome("failed to load subscription: %v", err)
		}
		if existing == nil || !existing.IsRecurring() {
			params.MercadoPagoSubscriptionID = payment.ID
		}

		if _, _, err := s.lifecycle.Activate(ctx, params); err != nil {
			return failureOutcome("failed to activate subscription: %v", err)
		}

		return successOutcome("subscription activated")

	case provider.PaymentStatusPending, provider.PaymentStatusInProcess, provider.PaymentStatusAuthorized:
		created, err := s.payments.CreateIfAbsent(ctx, &model.Payment{
			Type:                 model.PaymentTypeSubscription,
			Status:               model.PaymentStatusPending,
			Amount:               payment.TransactionAmount,
			Currency:             currency,
			MercadoPagoPaymentID: payment.ID,
		})
		if err != nil {
			return failureOutcome("failed to record pending payment: %v", err)
		}
		if !created {
			s.logger.Info("Pending payment already recorded", zap.String("payment_id", payment.ID))
		}
		return successOutcome("payment %s - waiting for approval", payment.Status)

	case provider.PaymentStatusRejected, provider.PaymentStatusCancelled:
		sub, err := s.subs.GetByProfessionalID(ctx, professionalID)
		if err != nil {
			return failureOutcome("failed to load subscription: %v", err)
		}

		failed := &model.Payment{
			Type:                 model.PaymentTypeSubscription,
			Status:               model.PaymentStatusFailed,
			Amount:               payment.TransactionAmount,
			Currency:             currency,
			MercadoPagoPaymentID: payment.ID,
		}

		if sub == nil {
			if err := s.payments.Create(ctx, failed); err != nil {
				return failureOutcome("failed to record failed payment: %v", err)
			}
			return successOutcome("payment %s recorded - no subscription to suspend", payment.Status)
		}

		// The failed payment row and the PAST_DUE transition share one
		// transaction; a transition failure takes the row down with it.
		if _, err := s.lifecycle.Suspend(ctx, sub, false, failed); err != nil {
			return failureOutcome("failed to suspend subscription: %v", err)
		}

		return successOutcome("payment %s - subscription suspended", payment.Status)

	case provider.PaymentStatusRefunded, provider.PaymentStatusChargedBack:
		sub, err := s.subs.GetByProfessionalID(ctx, professionalID)
		if err != nil {
			return failureOutcome("failed to load subscription: %v", err)
		}

		refunded := &model.Payment{
			Type:                 model.PaymentTypeSubscription,
			Status:               model.PaymentStatusRefunded,
			Amount:               payment.TransactionAmount,
			Currency:             currency,
			MercadoPagoPaymentID: payment.ID,
		}

		if sub == nil || sub.Status == model.SubscriptionStatusCancelled {
			if sub != nil {
				refunded.SubscriptionID = &sub.ID
			}
			if err := s.payments.Create(ctx, refunded); err != nil {
				return failureOutcome("failed to record refunded payment: %v", err)
			}
			return successOutcome("payment %s recorded", payment.Status)
		}

		if err := s.lifecycle.Cancel(ctx, sub, time.Now(), false, false, refunded); err != nil {
			return failureOutcome("failed to cancel subscription: %v", err)
		}

		return successOutcome("payment %s - subscription cancelled", payment.Status)

	default:
		s.logger.Warn("Unknown payment status acknowledged",
			zap.String("payment_id", payment.ID),
			zap.String("status", payment.Status))
		return successOutcome("unknown payment status %q acknowledged", payment.Status)
	}
}

// applyDepositPayment maps a MercadoPago payment status onto an
// appointment's deposit fields. Rejected and cancelled deposits are left
// untouched: releasing the slot belongs to the booking engine's timeout
// worker.
func (s *WebhookService) applyDepositPayment(ctx context.Context, payment *provider.Payment, ref billing.Reference) Outcome {
	appointmentID, err := uuid.Parse(ref.AppointmentID)
	if err != nil {
		return failureOutcome("%s: invalid appointment id %q", billing.ErrMalformedReference, ref.AppointmentID)
	}

	s.logger.Info("Processing deposit payment",
		zap.String("payment_id", payment.ID),
		zap.String("status", payment.Status),
		zap.String("appointment_id", ref.AppointmentID))

	switch payment.Status {
	case provider.PaymentStatusApproved:
		now := time.Now()
		if err := s.appointments.SetDepositPaid(ctx, appointmentID, true, &now); err != nil {
			return failureOutcome("failed to mark deposit paid: %v", err)
		}
		return successOutcome("deposit paid - appointment confirmed")

	case provider.PaymentStatusPending, provider.PaymentStatusInProcess, provider.PaymentStatusAuthorized:
		return successOutcome("deposit payment %s - waiting for approval", payment.Status)

	case provider.PaymentStatusRejected, provider.PaymentStatusCancelled:
		return successOutcome("deposit payment %s - appointment release deferred to timeout worker", payment.Status)

	case provider.PaymentStatusRefunded, provider.PaymentStatusChargedBack:
		if err := s.appointments.SetDepositPaid(ctx, appointmentID, false, nil); err != nil {
			return failureOutcome("failed to unmark deposit: %v", err)
		}
		return successOutcome("deposit %s - appointment deposit unmarked", payment.Status)

	default:
		s.logger.Warn("Unknown deposit payment status acknowledged",
			zap.String("payment_id", payment.ID),
			zap.String("status", payment.Status))
		return successOutcome("unknown payment status %q acknowledged", payment.Status)
	}
}

// handlePreapprovalEvent maps a recurring mandate status onto the local
// subscription state machine.
func (s *WebhookService) handlePreapprovalEvent(ctx context.Context, env WebhookEnvelope) Outcome {
	preapprovalID := env.Data.ID
	if preapprovalID == "" {
		s.logger.Error("Preapproval webhook missing id")
		return failureOutcome("missing preapproval id")
	}

	if env.Action != "created" && env.Action != "updated" {
		s.logger.Info("Ignoring preapproval action",
			zap.String("action", env.Action),
			zap.String("preapproval_id", preapprovalID))
		return successOutcome("preapproval action %s acknowledged", env.Action)
	}

	pre, err := s.provider.GetPreapproval(ctx, preapprovalID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPreapprovalNotFound) {
			return failureOutcome("%s", domainErrors.ErrPreapprovalNotFound)
		}
		s.logger.Error("Failed to fetch preapproval from Mercado Pago",
			zap.String("preapproval_id", preapprovalID),
			zap.Error(err))
		return failureOutcome("failed to fetch preapproval: %v", err)
	}

	if pre.ExternalReference == "" {
		return failureOutcome("%s", domainErrors.ErrMissingExternalReference)
	}

	ref, err := billing.DecodeReference(pre.ExternalReference)
	if err != nil {
		return failureOutcome("%v", err)
	}
	if ref.Type != billing.ReferenceKindSubscription {
		return failureOutcome("preapproval carries non-subscription reference %q", ref.Type)
	}

	professionalID, err := uuid.Parse(ref.ProfessionalID)
	if err != nil {
		return failureOutcome("%s: invalid professional id %q", billing.ErrMalformedReference, ref.ProfessionalID)
	}
	planID, err := uuid.Parse(ref.PlanID)
	if err != nil {
		return failureOutcome("%s: invalid plan id %q", billing.ErrMalformedReference, ref.PlanID)
	}

	s.logger.Info("Processing preapproval event",
		zap.String("preapproval_id", preapprovalID),
		zap.String("status", pre.Status),
		zap.String("professional_id", ref.ProfessionalID))

	switch pre.Status {
	case provider.PreapprovalStatusAuthorized:
		plan, err := s.plans.GetByID(ctx, planID)
		if err != nil {
			return failureOutcome("failed to load plan: %v", err)
		}
		if plan == nil {
			return failureOutcome("%s", domainErrors.ErrPlanNotFound)
		}

		now := time.Now()
		_, _, err = s.lifecycle.Activate(ctx, domainRepo.ActivateParams{
			ProfessionalID:            professionalID,
			PlanID:                    planID,
			BillingPeriod:             ref.BillingPeriod,
			StartDate:                 now,
			NextBillingDate:           ref.BillingPeriod.NextDate(now),
			MercadoPagoSubscriptionID: preapprovalID,
		})
		if err != nil {
			return failureOutcome("failed to activate subscription: %v", err)
		}
		return successOutcome("subscription authorized and activated")

	case provider.PreapprovalStatusPaused:
		sub, err := s.subs.GetByProfessionalID(ctx, professionalID)
		if err != nil {
			return failureOutcome("failed to load subscription: %v", err)
		}
		if sub == nil {
			return failureOutcome("%s", domainErrors.ErrNoSubscription)
		}

		if _, err := s.lifecycle.Suspend(ctx, sub, true, nil); err != nil {
			return failureOutcome("failed to suspend subscription: %v", err)
		}
		return successOutcome("subscription paused - professional deactivated")

	case provider.PreapprovalStatusCancelled:
		sub, err := s.subs.GetByProfessionalID(ctx, professionalID)
		if err != nil {
			return failureOutcome("failed to load subscription: %v", err)
		}
		if sub == nil {
			return failureOutcome("%s", domainErrors.ErrNoSubscription)
		}

		if err := s.lifecycle.Cancel(ctx, sub, time.Now(), false, false, nil); err != nil {
			return failureOutcome("failed to cancel subscription: %v", err)
		}
		return successOutcome("subscription cancelled")

	default:
		s.logger.Info("Preapproval status acknowledged without mutation",
			zap.String("preapproval_id", preapprovalID),
			zap.String("status", pre.Status))
		return successOutcome("preapproval status %q acknowledged", pre.Status)
	}
}

func envelopeToJSONB(env WebhookEnvelope) model.JSONB {
	return model.JSONB{
		"action": env.Action,
		"type":   env.Type,
		"data":   map[string]interface{}{"id": env.Data.ID},
	}
}

func headersToJSONB(headers map[string]string) model.JSONB {
	out := make(model.JSONB, len(headers))
	for k, v := range headers {
		out[k] = v
	}
	return out
}
