package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"reservation-engine/models"
	"reservation-engine/utils"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultHoldMinutes = 15
	maxBookingHorizon  = 365 // days ahead a stay may start
	maxNights          = 90
	numberGenRetries   = 5
)

// BookingService owns allocation, lookup and the operational lifecycle
// actions. All writes that assign a room to an interval go through
// Allocate's claim-or-retry transaction; nothing else sets Booking.RoomID.
type BookingService struct {
	DB           *gorm.DB
	Availability *AvailabilityService
	Pricing      *PricingService
}

func NewBookingService(db *gorm.DB, availability *AvailabilityService, pricing *PricingService) *BookingService {
	return &BookingService{DB: db, Availability: availability, Pricing: pricing}
}

type AllocateInput struct {
	RoomTypeID         uint
	CheckIn            time.Time
	CheckOut           time.Time
	GuestName          string
	GuestEmail         string
	GuestCount         int
	SpecialRequests    string
	AccompanyingGuests []map[string]interface{}
	PromoCode          string
}

// HoldDuration is how long an unpaid booking keeps its room.
func HoldDuration() time.Duration {
	raw := utils.EnvOrDefault("HOLD_DURATION_MINUTES", "")
	if raw != "" {
		if mins, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && mins > 0 {
			return time.Duration(mins) * time.Minute
		}
	}
	return defaultHoldMinutes * time.Minute
}

// Allocate reserves one individual room for the range and creates the
// booking in pending_payment with the quoted total frozen in. Guarantee: at
// most one successful allocation per room per overlapping interval, even
// under concurrent calls — each candidate is claimed under a transaction
// that locks the room row and re-checks the overlap before committing.
// When a claim loses its race the next candidate is tried; exhaustion
// surfaces as ErrNoAvailability.
func (s *BookingService) Allocate(input AllocateInput) (*models.Booking, error) {
	checkIn := DateOnly(input.CheckIn)
	checkOut := DateOnly(input.CheckOut)

	if err := validateStayRange(checkIn, checkOut); err != nil {
		return nil, err
	}

	var roomType models.RoomType
	if err := s.DB.First(&roomType, input.RoomTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomTypeNotFound
		}
		return nil, fmt.Errorf("failed to load room type: %w", err)
	}

	if input.GuestCount <= 0 {
		input.GuestCount = 1
	}
	if roomType.MaxGuests > 0 && input.GuestCount > roomType.MaxGuests {
		return nil, fmt.Errorf("%w: %d guests, max %d", ErrTooManyGuests, input.GuestCount, roomType.MaxGuests)
	}

	quote, err := s.Pricing.Quote(roomType.ID, checkIn, checkOut, input.PromoCode)
	if err != nil {
		return nil, err
	}

	candidates, err := s.Availability.AvailableRooms(roomType.ID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	guestsJSON := normalizeGuestList(input.AccompanyingGuests)

	for _, candidate := range candidates {
		booking, err := s.claimRoom(candidate, checkIn, checkOut, input, quote, guestsJSON)
		if errors.Is(err, ErrStaleAllocation) {
			log.Printf("allocation race on room %s, trying next candidate", candidate.RoomNumber)
			continue
		}
		if err != nil {
			return nil, err
		}
		return booking, nil
	}

	return nil, ErrNoAvailability
}

// claimRoom is the atomic unit: lock the room row, re-check the interval,
// create the booking. Losing the race surfaces as ErrStaleAllocation.
func (s *BookingService) claimRoom(
	room models.Room,
	checkIn, checkOut time.Time,
	input AllocateInput,
	quote *QuoteBreakdown,
	guestsJSON datatypes.JSON,
) (*models.Booking, error) {

	var booking *models.Booking

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Room
		if err := forUpdate(tx).First(&locked, room.ID).Error; err != nil {
			return fmt.Errorf("failed to lock room %d: %w", room.ID, err)
		}
		if !locked.Active {
			return ErrStaleAllocation
		}

		conflicted, err := conflictingRoomIDs(tx, []uint{locked.ID}, checkIn, checkOut)
		if err != nil {
			return err
		}
		if conflicted[locked.ID] {
			return ErrStaleAllocation
		}

		roomID := locked.ID

		bk := models.Booking{
			RoomTypeID:         input.RoomTypeID,
			RoomID:             &roomID,
			CheckInDate:        checkIn,
			CheckOutDate:       checkOut,
			Nights:             quote.Nights,
			GuestName:          strings.TrimSpace(input.GuestName),
			GuestEmail:         strings.TrimSpace(input.GuestEmail),
			GuestCount:         input.GuestCount,
			SpecialRequests:    strings.TrimSpace(input.SpecialRequests),
			AccompanyingGuests: guestsJSON,
			PromoCode:          quote.PromoCode,
			TotalPrice:         quote.Total,
			Status:             models.StatusPendingPayment,
			HoldExpiresAt:      utils.PtrTime(time.Now().UTC().Add(HoldDuration())),
		}

		// booking number unique index may collide; regenerate and retry
		var createErr error
		for attempt := 0; attempt < numberGenRetries; attempt++ {
			number, gErr := utils.GenerateBookingNumber(time.Now())
			if gErr != nil {
				return fmt.Errorf("failed to generate booking number: %w", gErr)
			}
			bk.BookingNumber = number

			createErr = tx.Create(&bk).Error
			if createErr == nil {
				break
			}
			if isDuplicateErr(createErr) {
				log.Printf("booking number collision (attempt %d) - retrying", attempt+1)
				bk.ID = 0
				continue
			}
			return fmt.Errorf("failed to create booking: %w", createErr)
		}
		if createErr != nil {
			return fmt.Errorf("failed to create booking after retries: %w", createErr)
		}

		booking = &bk
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Room = &room
	return booking, nil
}

func validateStayRange(checkIn, checkOut time.Time) error {
	if !checkOut.After(checkIn) {
		return fmt.Errorf("%w: check-out must be after check-in", ErrInvalidDateRange)
	}

	today := DateOnly(time.Now())
	if checkIn.Before(today) {
		return fmt.Errorf("%w: check-in is in the past", ErrInvalidDateRange)
	}
	if checkIn.After(today.AddDate(0, 0, maxBookingHorizon)) {
		return fmt.Errorf("%w: check-in beyond %d-day horizon", ErrInvalidDateRange, maxBookingHorizon)
	}
	if nights := int(checkOut.Sub(checkIn).Hours() / 24); nights > maxNights {
		return fmt.Errorf("%w: %d nights exceeds maximum of %d", ErrInvalidDateRange, nights, maxNights)
	}
	return nil
}

// GetByNumber serves the guest-facing lookup: full snapshot or not found.
func (s *BookingService) GetByNumber(number string) (*models.Booking, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrBookingNotFound
	}

	var booking models.Booking
	err := s.DB.
		Preload("RoomType").
		Preload("Room").
		Where("booking_number = ?", number).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to retrieve booking: %w", err)
	}
	return &booking, nil
}

// CheckIn moves a confirmed booking to checked_in. Date-gated: not
// permitted before the stay's check-in date.
func (s *BookingService) CheckIn(number string) (*models.Booking, error) {
	return s.transition(number, func(b *models.Booking, now time.Time) (map[string]interface{}, error) {
		if b.Status != models.StatusConfirmed {
			return nil, transitionErr(b.Status, models.StatusCheckedIn)
		}
		if DateOnly(now).Before(b.CheckInDate) {
			return nil, fmt.Errorf("%w: check-in not permitted before %s",
				ErrInvalidTransition, b.CheckInDate.Format("2006-01-02"))
		}
		return map[string]interface{}{
			"status":        models.StatusCheckedIn,
			"checked_in_at": now,
		}, nil
	})
}

// CheckOut closes the stay.
func (s *BookingService) CheckOut(number string) (*models.Booking, error) {
	return s.transition(number, func(b *models.Booking, now time.Time) (map[string]interface{}, error) {
		if b.Status != models.StatusCheckedIn {
			return nil, transitionErr(b.Status, models.StatusCheckedOut)
		}
		return map[string]interface{}{
			"status":         models.StatusCheckedOut,
			"checked_out_at": now,
		}, nil
	})
}

// Cancel is always permitted before check-in and releases the held room
// (a cancelled booking no longer blocks the interval).
func (s *BookingService) Cancel(number string) (*models.Booking, error) {
	return s.transition(number, func(b *models.Booking, now time.Time) (map[string]interface{}, error) {
		if b.Status != models.StatusPendingPayment && b.Status != models.StatusConfirmed {
			return nil, transitionErr(b.Status, models.StatusCancelled)
		}
		return map[string]interface{}{"status": models.StatusCancelled}, nil
	})
}

// transition applies a guarded status change under the same row-lock
// discipline as the allocator, so lifecycle actions cannot race a confirm
// or the expiry sweep.
func (s *BookingService) transition(
	number string,
	guard func(b *models.Booking, now time.Time) (map[string]interface{}, error),
) (*models.Booking, error) {

	var result *models.Booking
	now := time.Now().UTC()

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := forUpdate(tx).Where("booking_number = ?", strings.TrimSpace(number)).First(&booking).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("failed to load booking: %w", err)
		}

		updates, err := guard(&booking, now)
		if err != nil {
			return err
		}

		if err := tx.Model(&booking).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}

		result = &booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("booking %s -> %s", result.BookingNumber, result.Status)
	return result, nil
}

func transitionErr(current, attempted string) error {
	return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, current, attempted)
}

// forUpdate adds a row-level lock on dialects that support it. SQLite has
// a single writer, so the bare transaction already serializes there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// isDuplicateErr recognizes unique-index violations: typed check for the
// mysql driver, string sniff for everything else.
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	lc := strings.ToLower(err.Error())
	return strings.Contains(lc, "duplicate") || strings.Contains(lc, "unique") || strings.Contains(lc, "constraint")
}

// normalizeGuestList keeps only the safe fields of the accompanying-guest
// draft payload.
func normalizeGuestList(guestList []map[string]interface{}) datatypes.JSON {
	out := make([]map[string]interface{}, 0, len(guestList))
	for _, g := range guestList {
		name := getStringFromMap(g, "name", "fullName", "full_name")
		typ := getStringFromMap(g, "type", "guestType", "guest_type")
		if name == "" {
			continue
		}
		if typ == "" {
			typ = "Adult"
		}
		out = append(out, map[string]interface{}{
			"fullName": name,
			"type":     typ,
		})
	}
	if len(out) == 0 {
		return nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func getStringFromMap(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s, ok2 := v.(string); ok2 {
				return strings.TrimSpace(s)
			}
			return strings.TrimSpace(fmt.Sprintf("%v", v))
		}
	}
	return ""
}
