package services

import (
	"testing"
	"time"

	"reservation-engine/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database. A single connection keeps
// sqlite's one-writer model from tripping concurrent tests.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.RoomType{},
		&models.Room{},
		&models.PromoCode{},
		&models.Booking{},
		&models.PaymentAttempt{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedRoomType creates a room type with the given rooms, returning the type.
func seedRoomType(t *testing.T, db *gorm.DB, name string, rate float64, maxGuests int, roomNumbers ...string) models.RoomType {
	t.Helper()

	rt := models.RoomType{
		TypeName:    name,
		NightlyRate: rate,
		MaxGuests:   maxGuests,
		TotalRooms:  len(roomNumbers),
	}
	if err := db.Create(&rt).Error; err != nil {
		t.Fatalf("seed room type: %v", err)
	}
	for _, num := range roomNumbers {
		room := models.Room{RoomTypeID: rt.ID, RoomNumber: num, Floor: num[:1], Active: true}
		if err := db.Create(&room).Error; err != nil {
			t.Fatalf("seed room %s: %v", num, err)
		}
	}
	return rt
}

func newBookingService(db *gorm.DB) *BookingService {
	pricing := NewPricingService(db)
	availability := NewAvailabilityService(db)
	return NewBookingService(db, availability, pricing)
}

// stay returns a future date-only range of the given length, offset days
// from now, so horizon validation always passes.
func stay(offsetDays, nights int) (time.Time, time.Time) {
	in := DateOnly(time.Now()).AddDate(0, 0, offsetDays)
	return in, in.AddDate(0, 0, nights)
}
