package services

import (
	"reservation-engine/config"
	"reservation-engine/models"
)

type RoomTypeService struct{}

func (s RoomTypeService) GetAll() ([]models.RoomType, error) {
	var types []models.RoomType
	err := config.DB.Find(&types).Error
	return types, err
}

func (s RoomTypeService) GetByID(id int) (models.RoomType, error) {
	var rt models.RoomType
	err := config.DB.First(&rt, id).Error
	return rt, err
}
