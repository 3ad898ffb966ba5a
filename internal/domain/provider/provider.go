package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Payment status vocabulary as reported by MercadoPago. Webhook payloads
// are never trusted; these values always come from an authoritative GET.
const (
	PaymentStatusApproved    = "approved"
	PaymentStatusPending     = "pending"
	PaymentStatusInProcess   = "in_process"
	PaymentStatusAuthorized  = "authorized"
	PaymentStatusRejected    = "rejected"
	PaymentStatusCancelled   = "cancelled"
	PaymentStatusRefunded    = "refunded"
	PaymentStatusChargedBack = "charged_back"
)

// Preapproval (recurring mandate) status vocabulary.
const (
	PreapprovalStatusPending    = "pending"
	PreapprovalStatusAuthorized = "authorized"
	PreapprovalStatusPaused     = "paused"
	PreapprovalStatusCancelled  = "cancelled"
)

// PaymentProvider is the boundary to the external payment processor.
type PaymentProvider interface {
	// GetPayment fetches the authoritative payment record by id
	GetPayment(ctx context.Context, id string) (*Payment, error)

	// GetPreapproval fetches the authoritative recurring mandate by id
	GetPreapproval(ctx context.Context, id string) (*Preapproval, error)

	// CreatePreference creates a one-time checkout preference
	CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error)

	// CreatePreapproval creates a recurring mandate
	CreatePreapproval(ctx context.Context, req *PreapprovalRequest) (*Preapproval, error)

	// CancelPreapproval cancels a recurring mandate, stopping automatic charges
	CancelPreapproval(ctx context.Context, id string) error
}

// Payment is the authoritative payment record fetched from the processor
type Payment struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
	ExternalReference string          `json:"external_reference"`
}

// Preapproval is the authoritative recurring mandate record
type Preapproval struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	Reason            string     `json:"reason"`
	NextPaymentDate   *time.Time `json:"next_payment_date,omitempty"`
	PayerEmail        string     `json:"payer_email"`
	ExternalReference string     `json:"external_reference"`
	InitPoint         string     `json:"init_point,omitempty"`
}

// PreferenceItem is a single line of a checkout preference
type PreferenceItem struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CurrencyID  string          `json:"currency_id"`
}

// PreferenceRequest creates a one-time checkout preference
type PreferenceRequest struct {
	Items               []PreferenceItem  `json:"items"`
	PayerEmail          string            `json:"-"`
	PayerName           string            `json:"-"`
	BackURLs            map[string]string `json:"back_urls,omitempty"`
	ExternalReference   string            `json:"external_reference"`
	NotificationURL     string            `json:"notification_url,omitempty"`
	StatementDescriptor string            `json:"statement_descriptor,omitempty"`
}

// Preference is the created checkout preference
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point,omitempty"`
}

// PreapprovalRequest creates a recurring mandate
type PreapprovalRequest struct {
	Reason            string          `json:"reason"`
	PayerEmail        string          `json:"payer_email"`
	BackURL           string          `json:"back_url"`
	FrequencyMonths   int             `json:"-"`
	TransactionAmount decimal.Decimal `json:"-"`
	CurrencyID        string          `json:"-"`
	StartDate         time.Time       `json:"-"`
	ExternalReference string          `json:"external_reference"`
}

// ProviderError is a transport or API level failure from the processor
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
