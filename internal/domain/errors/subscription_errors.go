package errors

import "errors"

var (
	// ErrPlanNotFound indicates the referenced plan does not exist or is inactive
	ErrPlanNotFound = errors.New("subscription plan not found or not active")

	// ErrProfessionalNotFound indicates the referenced professional does not exist
	ErrProfessionalNotFound = errors.New("professional not found")

	// ErrNoSubscription indicates the professional has no subscription row
	ErrNoSubscription = errors.New("no subscription found")

	// ErrNoRecurringSubscription indicates the subscription has no MercadoPago mandate
	ErrNoRecurringSubscription = errors.New("no recurring subscription found")

	// ErrAppointmentNotFound indicates the referenced appointment does not exist
	ErrAppointmentNotFound = errors.New("appointment not found")
)
