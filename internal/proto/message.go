package proto

import "encoding/json"

// Inbound is the envelope for messages coming from an embedding page.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeAttach      = "attach"
	InboundTypeEngineEvent = "engine_event"
	InboundTypeLeave       = "leave"

	OutboundTypeEngineConfig = "engine_config"
	OutboundTypeCapacity     = "capacity"
	OutboundTypeError        = "error"
)

// AttachData announces the room element a page is showing.
type AttachData struct {
	RoomID          int64  `json:"room_id"`
	RoomName        string `json:"room_name"`
	UserName        string `json:"user_name,omitempty"`
	MaxParticipants int    `json:"max_participants,omitempty"`
	Protocol        int    `json:"protocol,omitempty"`
}

// EngineEventData carries one raw conferencing engine event.
type EngineEventData struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// LeaveData is an explicit leave from the page (button, error handler).
type LeaveData struct {
	Reason string `json:"reason,omitempty"`
}

// Outbound is the envelope for messages sent to a page.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EngineConfig tells the page how to build the call UI.
type EngineConfig struct {
	Engine      string         `json:"engine"`
	URL         string         `json:"url"`
	Token       string         `json:"token,omitempty"`
	RoomName    string         `json:"room_name"`
	Identity    string         `json:"identity"`
	DisplayName string         `json:"display_name"`
	Options     map[string]any `json:"options,omitempty"`
}

// CapacityData is the rendered participant count of a room.
type CapacityData struct {
	RoomID              int64   `json:"room_id"`
	CurrentParticipants int     `json:"current_participants"`
	MaxParticipants     int     `json:"max_participants"`
	Percentage          float64 `json:"percentage"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Backend RPC bodies.

// JoinResponse is returned by the join and leave RPCs.
type JoinResponse struct {
	Success             bool   `json:"success,omitempty"`
	CurrentParticipants *int   `json:"current_participants,omitempty"`
	Error               string `json:"error,omitempty"`
}

// ActivityRequest records one activity event.
type ActivityRequest struct {
	Action        string         `json:"action"`
	ParticipantID *string        `json:"participant_id,omitempty"`
	DisplayName   *string        `json:"display_name,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// StatusResponse is the generic `{success}` / `{error}` reply.
type StatusResponse struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PinResponse is returned by the pin toggle.
type PinResponse struct {
	Success  bool   `json:"success,omitempty"`
	IsPinned bool   `json:"is_pinned"`
	Error    string `json:"error,omitempty"`
}

// CloseResponse is returned by the close toggle.
type CloseResponse struct {
	Success  bool   `json:"success,omitempty"`
	IsClosed bool   `json:"is_closed"`
	Error    string `json:"error,omitempty"`
}

// DuplicateResponse is returned by the duplicate action.
type DuplicateResponse struct {
	Success   bool   `json:"success,omitempty"`
	RoomID    int64  `json:"room_id,omitempty"`
	RoomToken string `json:"room_token,omitempty"`
	Error     string `json:"error,omitempty"`
}
