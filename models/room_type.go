package models

import (
	"time"

	"gorm.io/gorm"
)

// RoomType is a sellable category of room. It is owned by catalog
// management; the engine only reads it.
type RoomType struct {
	ID uint `gorm:"primaryKey" json:"id"`

	TypeName    string  `json:"typeName"`
	Description string  `gorm:"type:text" json:"description"`
	NightlyRate float64 `gorm:"column:nightly_rate;type:decimal(10,2)" json:"nightlyRate"`
	MonthlyRate float64 `gorm:"column:monthly_rate;type:decimal(10,2)" json:"monthlyRate"`
	MaxGuests   int     `gorm:"column:max_guests" json:"maxGuests"`
	TotalRooms  int     `gorm:"column:total_rooms" json:"totalRooms"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
