package http

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/vovakirdan/wirechat-presence/internal/service/rooms"
	"github.com/vovakirdan/wirechat-presence/internal/store"
	"github.com/vovakirdan/wirechat-presence/internal/utils"
)

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Token               string  `json:"room_token"`
	EngineRoomName      string  `json:"engine_room_name"`
	MaxCapacity         int     `json:"max_capacity"`
	CurrentParticipants int     `json:"current_participants"`
	TotalVisits         int     `json:"total_visits"`
	IsPinned            bool    `json:"is_pinned"`
	IsClosed            bool    `json:"is_closed"`
	IsFull              bool    `json:"is_full"`
	CreatedBy           *int64  `json:"created_by,omitempty"`
	LastActivityAt      *string `json:"last_activity_at,omitempty"`
	CreatedAt           string  `json:"created_at"`
}

// ActivityResponse represents an activity log record in API responses.
type ActivityResponse struct {
	ID            int64           `json:"id"`
	RoomID        int64           `json:"room_id"`
	UserID        *int64          `json:"user_id,omitempty"`
	ParticipantID *string         `json:"participant_id,omitempty"`
	DisplayName   *string         `json:"display_name,omitempty"`
	Action        string          `json:"action"`
	Metadata      json.RawMessage `json:"metadata"`
	CreatedAt     string          `json:"created_at"`
}

func roomToResponse(room *store.Room) RoomResponse {
	resp := RoomResponse{
		ID:                  room.ID,
		Name:                room.Name,
		Token:               room.Token,
		EngineRoomName:      utils.EngineRoomName(room.Name, room.Token),
		MaxCapacity:         room.MaxCapacity,
		CurrentParticipants: room.CurrentParticipants,
		TotalVisits:         room.TotalVisits,
		IsPinned:            room.IsPinned,
		IsClosed:            room.IsClosed,
		IsFull:              room.IsFull(),
		CreatedBy:           room.CreatedBy,
		CreatedAt:           room.CreatedAt.Format(time.RFC3339),
	}
	if room.LastActivityAt != nil {
		at := room.LastActivityAt.Format(time.RFC3339)
		resp.LastActivityAt = &at
	}
	return resp
}

func activityToResponse(a *store.Activity) ActivityResponse {
	metadata := json.RawMessage(a.MetadataJSON)
	if !json.Valid(metadata) {
		metadata = json.RawMessage("{}")
	}
	return ActivityResponse{
		ID:            a.ID,
		RoomID:        a.RoomID,
		UserID:        a.UserID,
		ParticipantID: a.ParticipantID,
		DisplayName:   a.DisplayName,
		Action:        a.Action,
		Metadata:      metadata,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
}

// rpcErrorMessage returns the message reported in the `error` field of
// an event RPC for a domain error. ok is false for unexpected failures.
func rpcErrorMessage(err error) (msg string, ok bool) {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		return "Room not found", true
	case errors.Is(err, rooms.ErrRoomClosed):
		return "Room is closed", true
	case errors.Is(err, rooms.ErrRoomFull):
		return "Room is full", true
	case errors.Is(err, rooms.ErrNotManager):
		return "Permission denied", true
	case errors.Is(err, rooms.ErrReopenFull):
		return "Room is full and cannot be reopened", true
	case errors.Is(err, rooms.ErrInvalidAction),
		errors.Is(err, rooms.ErrInvalidName),
		errors.Is(err, rooms.ErrInvalidCapacity):
		return err.Error(), true
	default:
		return "", false
	}
}
