package services

import (
	"fmt"
	"time"

	"reservation-engine/models"

	"gorm.io/gorm"
)

// AvailabilityService is the read side of allocation: it proposes candidate
// rooms but never mutates anything. The allocator re-checks its answer
// inside a transaction before committing.
type AvailabilityService struct {
	DB *gorm.DB
}

func NewAvailabilityService(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{DB: db}
}

// AvailableRooms returns the active rooms of a type with no blocking
// booking overlapping [checkIn, checkOut), ordered by room number so
// allocation is deterministic for a fixed candidate set.
//
// Overlap is half-open: a stay ending on a date and another starting the
// same date on the same room do not conflict.
func (s *AvailabilityService) AvailableRooms(roomTypeID uint, checkIn, checkOut time.Time) ([]models.Room, error) {
	return s.availableRoomsTx(s.DB, roomTypeID, checkIn, checkOut)
}

func (s *AvailabilityService) availableRoomsTx(tx *gorm.DB, roomTypeID uint, checkIn, checkOut time.Time) ([]models.Room, error) {
	checkIn = DateOnly(checkIn)
	checkOut = DateOnly(checkOut)

	var rooms []models.Room
	if err := tx.
		Where("room_type_id = ? AND active = ?", roomTypeID, true).
		Order("room_number ASC").
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil, nil
	}

	roomIDs := make([]uint, 0, len(rooms))
	for _, r := range rooms {
		roomIDs = append(roomIDs, r.ID)
	}

	conflicted, err := conflictingRoomIDs(tx, roomIDs, checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	available := make([]models.Room, 0, len(rooms))
	for _, r := range rooms {
		if !conflicted[r.ID] {
			available = append(available, r)
		}
	}
	return available, nil
}

// conflictingRoomIDs finds rooms with at least one blocking booking
// overlapping the half-open range (a.start < b.end && b.start < a.end).
func conflictingRoomIDs(tx *gorm.DB, roomIDs []uint, checkIn, checkOut time.Time) (map[uint]bool, error) {
	var bookings []models.Booking
	if err := tx.
		Select("room_id").
		Where("room_id IN ?", roomIDs).
		Where("status IN ?", models.BlockingStatuses()).
		Where("check_in_date < ? AND check_out_date > ?", checkOut, checkIn).
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to check booking conflicts: %w", err)
	}

	conflicted := make(map[uint]bool, len(bookings))
	for _, b := range bookings {
		if b.RoomID != nil {
			conflicted[*b.RoomID] = true
		}
	}
	return conflicted, nil
}
