package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/proto"
	"github.com/vovakirdan/wirechat-presence/internal/service/rooms"
)

// EventHandlers serves the room event RPCs called by tracking agents
// and admin commands. Domain failures are answered with HTTP 200 and an
// `error` field; only unexpected failures use an error status.
type EventHandlers struct {
	service *rooms.Service
	log     *zerolog.Logger
}

// NewEventHandlers creates a new event handlers instance.
func NewEventHandlers(svc *rooms.Service, logger *zerolog.Logger) *EventHandlers {
	return &EventHandlers{
		service: svc,
		log:     logger,
	}
}

// Join takes a seat in the room.
// POST /event/room/:id/join
func (h *EventHandlers) Join(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	uid, _ := currentUser(c)

	room, err := h.service.Join(c.Request.Context(), uid, roomID)
	if err != nil {
		h.fail(c, err, roomID, func(msg string) any { return proto.JoinResponse{Error: msg} })
		return
	}
	current := room.CurrentParticipants
	c.JSON(http.StatusOK, proto.JoinResponse{Success: true, CurrentParticipants: &current})
}

// Leave frees a seat in the room.
// POST /event/room/:id/leave
func (h *EventHandlers) Leave(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	uid, _ := currentUser(c)

	room, err := h.service.Leave(c.Request.Context(), uid, roomID)
	if err != nil {
		h.fail(c, err, roomID, func(msg string) any { return proto.JoinResponse{Error: msg} })
		return
	}
	current := room.CurrentParticipants
	c.JSON(http.StatusOK, proto.JoinResponse{Success: true, CurrentParticipants: &current})
}

// Activity appends one record to the room activity log.
// POST /event/room/:id/activity
func (h *EventHandlers) Activity(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	uid, _ := currentUser(c)

	var req proto.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid activity request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.service.RecordActivity(c.Request.Context(), uid, roomID, rooms.ActivityInput{
		Action:        req.Action,
		ParticipantID: req.ParticipantID,
		DisplayName:   req.DisplayName,
		Metadata:      req.Metadata,
	})
	if err != nil {
		h.fail(c, err, roomID, func(msg string) any { return proto.StatusResponse{Error: msg} })
		return
	}
	c.JSON(http.StatusOK, proto.StatusResponse{Success: true})
}

// Pin toggles the pinned flag. Managers only.
// POST /event/room/:id/pin
func (h *EventHandlers) Pin(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	_, isManager := currentUser(c)

	pinned, err := h.service.TogglePin(c.Request.Context(), isManager, roomID)
	if err != nil {
		h.fail(c, err, roomID, func(msg string) any { return proto.PinResponse{Error: msg} })
		return
	}
	c.JSON(http.StatusOK, proto.PinResponse{Success: true, IsPinned: pinned})
}

// Close toggles the closed flag. Managers only.
// POST /event/room/:id/close
func (h *EventHandlers) Close(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	_, isManager := currentUser(c)

	closed, err := h.service.ToggleClose(c.Request.Context(), isManager, roomID)
	if err != nil {
		h.fail(c, err, roomID, func(msg string) any { return proto.CloseResponse{IsClosed: closed, Error: msg} })
		return
	}
	c.JSON(http.StatusOK, proto.CloseResponse{Success: true, IsClosed: closed})
}

// Duplicate creates a fresh copy of the room. Managers only.
// POST /event/room/:id/duplicate
func (h *EventHandlers) Duplicate(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	uid, isManager := currentUser(c)

	room, err := h.service.DuplicateRoom(c.Request.Context(), isManager, uid, roomID)
	if err != nil {
		h.fail(c, err, roomID, func(msg string) any { return proto.DuplicateResponse{Error: msg} })
		return
	}
	c.JSON(http.StatusOK, proto.DuplicateResponse{Success: true, RoomID: room.ID, RoomToken: room.Token})
}

func (h *EventHandlers) fail(c *gin.Context, err error, roomID int64, body func(msg string) any) {
	if msg, ok := rpcErrorMessage(err); ok {
		h.log.Debug().Err(err).Int64("room_id", roomID).Str("path", c.FullPath()).Msg("room event refused")
		c.JSON(http.StatusOK, body(msg))
		return
	}
	h.log.Error().Err(err).Int64("room_id", roomID).Str("path", c.FullPath()).Msg("room event failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
