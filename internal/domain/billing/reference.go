package billing

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agendasalud/payment-service/internal/domain/model"
)

// ReferenceKind discriminates what a MercadoPago payment was created for.
type ReferenceKind string

const (
	ReferenceKindSubscription ReferenceKind = "subscription"
	ReferenceKindDeposit      ReferenceKind = "deposit"
)

var (
	// ErrMalformedReference indicates the external_reference blob is not valid JSON
	ErrMalformedReference = errors.New("malformed external reference")

	// ErrUnknownReferenceKind indicates the type discriminant is not recognized
	ErrUnknownReferenceKind = errors.New("unknown external reference kind")
)

// Reference is the correlation token attached to every payment and
// preapproval at creation time and decoded again on webhook receipt.
// It travels through MercadoPago as an opaque JSON string.
type Reference struct {
	Type           ReferenceKind       `json:"type"`
	ProfessionalID string              `json:"professionalId,omitempty"`
	PlanID         string              `json:"planId,omitempty"`
	BillingPeriod  model.BillingPeriod `json:"billingPeriod,omitempty"`
	AppointmentID  string              `json:"appointmentId,omitempty"`
	BookingRef     string              `json:"bookingReference,omitempty"`
}

// SubscriptionReference builds the token for a subscription charge or mandate.
func SubscriptionReference(professionalID, planID string, period model.BillingPeriod) Reference {
	return Reference{
		Type:           ReferenceKindSubscription,
		ProfessionalID: professionalID,
		PlanID:         planID,
		BillingPeriod:  period,
	}
}

// DepositReference builds the token for an appointment deposit payment.
func DepositReference(appointmentID, professionalID, bookingRef string) Reference {
	return Reference{
		Type:           ReferenceKindDeposit,
		AppointmentID:  appointmentID,
		ProfessionalID: professionalID,
		BookingRef:     bookingRef,
	}
}

// Encode serializes the reference for the external_reference field.
func (r Reference) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode external reference: %w", err)
	}
	return string(data), nil
}

// DecodeReference parses an external_reference blob. It rejects blobs
// that are not JSON objects and blobs whose type discriminant is not a
// known kind; it never panics on untrusted input.
func DecodeReference(raw string) (Reference, error) {
	var ref Reference
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		return Reference{}, fmt.Errorf("%w: %v", ErrMalformedReference, err)
	}

	switch ref.Type {
	case ReferenceKindSubscription, ReferenceKindDeposit:
		return ref, nil
	default:
		return Reference{}, fmt.Errorf("%w: %q", ErrUnknownReferenceKind, ref.Type)
	}
}
