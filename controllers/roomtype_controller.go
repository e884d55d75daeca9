package controllers

import (
	"net/http"
	"strconv"

	"reservation-engine/services"
	"reservation-engine/utils"

	"github.com/gin-gonic/gin"
)

var roomTypeService services.RoomTypeService

func GetRoomTypes(c *gin.Context) {
	types, err := roomTypeService.GetAll()
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list room types")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, types)
}

func GetRoomTypeByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "id must be numeric")
		return
	}

	rt, err := roomTypeService.GetByID(id)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "room type not found")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, rt)
}
