package errors

import "errors"

var (
	// ErrMissingIdentifiers indicates a payment webhook without a payment id
	// or x-request-id header; there is nothing to key the audit ledger by.
	ErrMissingIdentifiers = errors.New("missing required identifiers")

	// ErrPaymentNotFound indicates MercadoPago has no record of the payment id
	ErrPaymentNotFound = errors.New("payment not found in Mercado Pago")

	// ErrPreapprovalNotFound indicates MercadoPago has no record of the preapproval id
	ErrPreapprovalNotFound = errors.New("preapproval not found in Mercado Pago")

	// ErrMissingExternalReference indicates the payment carries no correlation token
	ErrMissingExternalReference = errors.New("payment has no external reference")
)
