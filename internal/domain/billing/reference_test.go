package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agendasalud/payment-service/internal/domain/billing"
	"github.com/agendasalud/payment-service/internal/domain/model"
)

func TestReference_EncodeDecode(t *testing.T) {
	t.Run("subscription reference round-trips", func(t *testing.T) {
		ref := billing.SubscriptionReference("prof-1", "plan-1", model.BillingPeriodAnnual)

		encoded, err := ref.Encode()
		assert.NoError(t, err)

		decoded, err := billing.DecodeReference(encoded)
		assert.NoError(t, err)
		assert.Equal(t, billing.ReferenceKindSubscription, decoded.Type)
		assert.Equal(t, "prof-1", decoded.ProfessionalID)
		assert.Equal(t, "plan-1", decoded.PlanID)
		assert.Equal(t, model.BillingPeriodAnnual, decoded.BillingPeriod)
		assert.Empty(t, decoded.AppointmentID)
	})

	t.Run("deposit reference round-trips", func(t *testing.T) {
		ref := billing.DepositReference("appt-1", "prof-1", "BK-1234")

		encoded, err := ref.Encode()
		assert.NoError(t, err)

		decoded, err := billing.DecodeReference(encoded)
		assert.NoError(t, err)
		assert.Equal(t, billing.ReferenceKindDeposit, decoded.Type)
		assert.Equal(t, "appt-1", decoded.AppointmentID)
		assert.Equal(t, "BK-1234", decoded.BookingRef)
	})

	t.Run("encoded form uses the wire field names", func(t *testing.T) {
		encoded, err := billing.SubscriptionReference("prof-1", "plan-1", model.BillingPeriodMonthly).Encode()
		assert.NoError(t, err)
		assert.Contains(t, encoded, `"type":"subscription"`)
		assert.Contains(t, encoded, `"professionalId":"prof-1"`)
		assert.Contains(t, encoded, `"planId":"plan-1"`)
		assert.Contains(t, encoded, `"billingPeriod":"MONTHLY"`)
	})
}

func TestDecodeReference_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"not json", "ORDER-12345", billing.ErrMalformedReference},
		{"empty string", "", billing.ErrMalformedReference},
		{"json array", `["subscription"]`, billing.ErrMalformedReference},
		{"missing type", `{"professionalId":"prof-1"}`, billing.ErrUnknownReferenceKind},
		{"unknown type", `{"type":"giftcard"}`, billing.ErrUnknownReferenceKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := billing.DecodeReference(tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
