package services

import (
	"errors"

	"reservation-engine/payments"
)

var (
	// ErrNoAvailability: no individual room satisfies the requested range.
	ErrNoAvailability = errors.New("no_availability")
	// ErrInvalidDateRange: checkout <= checkin, past dates, or a range
	// outside the booking horizon. Rejected before the allocator is touched.
	ErrInvalidDateRange = errors.New("invalid_date_range")
	// ErrTooManyGuests: guest count exceeds the room type's maximum.
	ErrTooManyGuests = errors.New("too_many_guests")
	// ErrPaymentVerificationFailed: the provider did not corroborate the
	// caller's claim. The booking stays pending_payment.
	ErrPaymentVerificationFailed = errors.New("payment_verification_failed")
	// ErrPaymentPending: the provider reports the payment as still open.
	ErrPaymentPending = errors.New("payment_pending")
	// ErrInvalidTransition: lifecycle action not permitted from the
	// booking's current status.
	ErrInvalidTransition = errors.New("invalid_transition")
	// ErrStaleAllocation: the atomic claim lost a race. Internal; the
	// allocator retries the next candidate and surfaces ErrNoAvailability
	// only when all candidates are exhausted.
	ErrStaleAllocation = errors.New("stale_allocation")

	ErrBookingNotFound  = errors.New("booking_not_found")
	ErrRoomTypeNotFound = errors.New("room_type_not_found")

	// ErrProviderUnavailable is re-exported so callers can match it without
	// importing the payments package.
	ErrProviderUnavailable = payments.ErrProviderUnavailable
)
