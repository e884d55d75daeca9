package models

import (
	"time"
)

// PaymentAttempt statuses.
const (
	AttemptCreated   = "created"
	AttemptSucceeded = "succeeded"
	AttemptFailed    = "failed"
)

// PaymentAttempt records one gateway round-trip. A booking may have many
// attempts (retries) but at most one succeeded.
type PaymentAttempt struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	BookingID uint `gorm:"index;column:booking_id" json:"bookingId"`

	Provider string `gorm:"column:provider;size:32" json:"provider"`
	// Provider-side session/charge id. Set at initiation for session flows,
	// at confirmation for charge flows.
	ProviderRef string `gorm:"column:provider_ref;size:200;index" json:"providerRef,omitempty"`
	// Our own reference sent to the provider, for correlation.
	MerchantRef string `gorm:"column:merchant_ref;size:64;uniqueIndex" json:"merchantRef"`

	Amount     float64 `gorm:"column:amount;type:decimal(10,2)" json:"amount"`
	Status     string  `gorm:"column:status;size:32;index" json:"status"`
	FailReason string  `gorm:"column:fail_reason;size:255" json:"failReason,omitempty"`

	Booking Booking `gorm:"foreignKey:BookingID" json:"-"`
}
