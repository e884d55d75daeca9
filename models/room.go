package models

import (
	"gorm.io/gorm"
)

// Room is one physical, separately assignable unit. Every active room
// belongs to exactly one RoomType.
type Room struct {
	gorm.Model

	RoomTypeID uint   `gorm:"index;column:room_type_id" json:"roomTypeId"`
	RoomNumber string `gorm:"column:room_number;uniqueIndex;type:varchar(50)" json:"roomNumber"`
	Floor      string `gorm:"type:varchar(10)" json:"floor"`
	Active     bool   `gorm:"default:true" json:"active"`

	RoomType RoomType `gorm:"foreignKey:RoomTypeID" json:"roomType,omitempty"`
}
