package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/service/rooms"
)

// RoomHandlers provides HTTP handlers for room management endpoints.
type RoomHandlers struct {
	service *rooms.Service
	log     *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(svc *rooms.Service, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		service: svc,
		log:     logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=64"`
	MaxCapacity int    `json:"max_capacity"`
}

// CreateRoom handles room creation.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	uid, _ := currentUser(c)

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room, err := h.service.CreateRoom(c.Request.Context(), uid, req.Name, req.MaxCapacity)
	if err != nil {
		if errors.Is(err, rooms.ErrInvalidName) || errors.Is(err, rooms.ErrInvalidCapacity) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Str("room_name", req.Name).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, roomToResponse(room))
}

// ListRooms handles listing rooms, pinned first.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	list, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]RoomResponse, 0, len(list))
	for _, room := range list {
		response = append(response, roomToResponse(room))
	}
	c.JSON(http.StatusOK, response)
}

// GetRoom returns one room.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	room, err := h.service.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		h.writeError(c, err, roomID)
		return
	}
	c.JSON(http.StatusOK, roomToResponse(room))
}

// ListActivity returns the newest activity records of a room. Managers only.
// GET /api/rooms/:id/activity?limit=N
func (h *RoomHandlers) ListActivity(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	_, isManager := currentUser(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	records, err := h.service.ListActivity(c.Request.Context(), isManager, roomID, limit)
	if err != nil {
		h.writeError(c, err, roomID)
		return
	}

	response := make([]ActivityResponse, 0, len(records))
	for _, a := range records {
		response = append(response, activityToResponse(a))
	}
	c.JSON(http.StatusOK, response)
}

func (h *RoomHandlers) writeError(c *gin.Context, err error, roomID int64) {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
	case errors.Is(err, rooms.ErrNotManager):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "permission denied"})
	default:
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("room request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func roomIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return 0, false
	}
	return id, true
}
