package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Booking statuses. A booking in one of BlockingStatuses holds its room
// for the [CheckInDate, CheckOutDate) interval.
const (
	StatusPendingPayment = "pending_payment"
	StatusConfirmed      = "confirmed"
	StatusCheckedIn      = "checked_in"
	StatusCheckedOut     = "checked_out"
	StatusExpired        = "expired"
	StatusCancelled      = "cancelled"
)

// BlockingStatuses are the statuses counted by the overlap check.
// Expired and cancelled bookings release their room.
func BlockingStatuses() []string {
	return []string{StatusPendingPayment, StatusConfirmed, StatusCheckedIn}
}

type Booking struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	BookingNumber string `gorm:"column:booking_number;size:32;uniqueIndex" json:"bookingNumber"`
	RoomTypeID    uint   `gorm:"index;column:room_type_id" json:"roomTypeId"`
	RoomID        *uint  `gorm:"index;column:room_id" json:"roomId,omitempty"`

	// Date-only, half-open: the stay covers [CheckInDate, CheckOutDate).
	CheckInDate  time.Time `gorm:"column:check_in_date" json:"checkInDate"`
	CheckOutDate time.Time `gorm:"column:check_out_date" json:"checkOutDate"`
	Nights       int       `gorm:"column:nights" json:"nights"`

	GuestName          string         `gorm:"column:guest_name;size:191" json:"guestName"`
	GuestEmail         string         `gorm:"column:guest_email;size:191" json:"guestEmail"`
	GuestCount         int            `gorm:"column:guest_count;default:1" json:"guestCount"`
	SpecialRequests    string         `gorm:"column:special_requests;type:text" json:"specialRequests,omitempty"`
	AccompanyingGuests datatypes.JSON `gorm:"column:accompanying_guests" json:"accompanyingGuests,omitempty"`

	// Frozen at allocation time; never recomputed afterwards.
	PromoCode  string  `gorm:"column:promo_code;size:64" json:"promoCode,omitempty"`
	TotalPrice float64 `gorm:"column:total_price;type:decimal(10,2)" json:"totalPrice"`

	Status string `gorm:"column:status;size:32;index" json:"status"`

	Provider    string `gorm:"column:provider;size:32" json:"provider,omitempty"`
	ProviderRef string `gorm:"column:provider_ref;size:200" json:"providerRef,omitempty"`

	// Unpaid holds past this instant are released by the expiry sweep.
	HoldExpiresAt *time.Time `gorm:"column:hold_expires_at;index" json:"holdExpiresAt,omitempty"`

	CheckedInAt  *time.Time `gorm:"column:checked_in_at" json:"checkedInAt,omitempty"`
	CheckedOutAt *time.Time `gorm:"column:checked_out_at" json:"checkedOutAt,omitempty"`

	RoomType RoomType `gorm:"foreignKey:RoomTypeID" json:"roomType,omitempty"`
	Room     *Room    `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}
