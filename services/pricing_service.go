package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"reservation-engine/models"

	"gorm.io/gorm"
)

// PricingService computes quotes. Deterministic, side-effect free; the
// quoted total is frozen into the booking at allocation time and never
// recomputed afterwards.
type PricingService struct {
	DB *gorm.DB
}

func NewPricingService(db *gorm.DB) *PricingService {
	return &PricingService{DB: db}
}

type QuoteBreakdown struct {
	RoomTypeID  uint    `json:"roomTypeId"`
	Nights      int     `json:"nights"`
	NightlyRate float64 `json:"nightlyRate"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
	PromoCode   string  `json:"promoCode,omitempty"`
}

// Quote prices a stay. Unknown, inactive or out-of-window promo codes are
// ignored rather than failing the quote.
func (s *PricingService) Quote(roomTypeID uint, checkIn, checkOut time.Time, promoCode string) (*QuoteBreakdown, error) {
	checkIn = DateOnly(checkIn)
	checkOut = DateOnly(checkOut)
	if !checkOut.After(checkIn) {
		return nil, fmt.Errorf("%w: check-out must be after check-in", ErrInvalidDateRange)
	}

	var roomType models.RoomType
	if err := s.DB.First(&roomType, roomTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomTypeNotFound
		}
		return nil, fmt.Errorf("failed to load room type: %w", err)
	}

	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	gross := roomType.NightlyRate * float64(nights)

	discount, applied := s.resolveDiscount(promoCode, gross)

	total := gross - discount
	if total < 0 {
		total = 0
	}

	return &QuoteBreakdown{
		RoomTypeID:  roomType.ID,
		Nights:      nights,
		NightlyRate: roomType.NightlyRate,
		Discount:    round2(discount),
		Total:       round2(total),
		PromoCode:   applied,
	}, nil
}

// resolveDiscount returns the discount amount and the code actually
// applied ("" when the code was unknown or expired — not a fatal error).
func (s *PricingService) resolveDiscount(code string, gross float64) (float64, string) {
	if code == "" {
		return 0, ""
	}

	var promo models.PromoCode
	err := s.DB.Where("code = ? AND active = ?", code, true).First(&promo).Error
	if err != nil {
		return 0, ""
	}

	now := time.Now().UTC()
	if promo.ValidFrom != nil && now.Before(*promo.ValidFrom) {
		return 0, ""
	}
	if promo.ValidThrough != nil && now.After(*promo.ValidThrough) {
		return 0, ""
	}

	if promo.PercentOff > 0 {
		return gross * promo.PercentOff / 100, promo.Code
	}
	if promo.AmountOff > 0 {
		return promo.AmountOff, promo.Code
	}
	return 0, ""
}

// DateOnly drops the time-of-day component; all stay boundaries are
// whole dates in UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
