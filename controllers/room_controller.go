package controllers

import (
	"net/http"
	"strconv"

	"reservation-engine/services"
	"reservation-engine/utils"

	"github.com/gin-gonic/gin"
)

var roomService services.RoomService

// GetRooms lists physical rooms (read-only; catalog management owns writes).
func GetRooms(c *gin.Context) {
	if raw := c.Query("room_type_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "room_type_id must be numeric")
			return
		}
		rooms, err := roomService.GetByRoomType(uint(id))
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "failed to list rooms")
			return
		}
		utils.JSONSuccess(c, http.StatusOK, rooms)
		return
	}

	rooms, err := roomService.GetAll()
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, rooms)
}

func GetRoomByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "id must be numeric")
		return
	}

	room, err := roomService.GetByID(id)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "room not found")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, room)
}
