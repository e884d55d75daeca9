package services

import (
	"reservation-engine/config"
	"reservation-engine/models"
)

// RoomService is the engine's read-only view of the physical inventory.
// Mutation belongs to catalog management, an external collaborator.
type RoomService struct{}

func (s RoomService) GetAll() ([]models.Room, error) {
	var rooms []models.Room
	err := config.DB.Preload("RoomType").Order("room_number ASC").Find(&rooms).Error
	return rooms, err
}

func (s RoomService) GetByRoomType(roomTypeID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := config.DB.
		Where("room_type_id = ? AND active = ?", roomTypeID, true).
		Order("room_number ASC").
		Find(&rooms).Error
	return rooms, err
}

func (s RoomService) GetByID(id int) (models.Room, error) {
	var room models.Room
	err := config.DB.Preload("RoomType").First(&room, id).Error
	return room, err
}
