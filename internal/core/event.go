package core

import "maps"

// Action is the canonical kind of an ActivityEvent.
type Action string

const (
	ActionJoin             Action = "join"
	ActionLeave            Action = "leave"
	ActionParticipantJoin  Action = "participant_join"
	ActionParticipantLeave Action = "participant_leave"
	ActionHandRaise        Action = "hand_raise"
	ActionHandLower        Action = "hand_lower"
	ActionMuteAudio        Action = "mute_audio"
	ActionUnmuteAudio      Action = "unmute_audio"
	ActionMuteVideo        Action = "mute_video"
	ActionUnmuteVideo      Action = "unmute_video"
)

var validActions = map[Action]struct{}{
	ActionJoin:             {},
	ActionLeave:            {},
	ActionParticipantJoin:  {},
	ActionParticipantLeave: {},
	ActionHandRaise:        {},
	ActionHandLower:        {},
	ActionMuteAudio:        {},
	ActionUnmuteAudio:      {},
	ActionMuteVideo:        {},
	ActionUnmuteVideo:      {},
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	_, ok := validActions[a]
	return ok
}

// Metadata keys used by the tracker.
const (
	MetaLocal  = "local"
	MetaReason = "reason"
)

// ReasonBeforeUnload is the leave reason recorded on page teardown.
const ReasonBeforeUnload = "beforeunload"

// ActivityEvent is one observed occurrence in a room. It is a value:
// the metadata map is copied in and out so nobody can mutate it later.
// There is no ordering id; ordering is emission order at best.
type ActivityEvent struct {
	RoomID        int64
	Action        Action
	ParticipantID *string // nil when the engine gave no id
	DisplayName   *string // nil when the engine gave no name
	Local         bool

	metadata map[string]any
}

// NewActivityEvent builds an event. Empty participant id or display
// name become nil.
func NewActivityEvent(roomID int64, action Action, participantID, displayName string, local bool, metadata map[string]any) ActivityEvent {
	meta := make(map[string]any, len(metadata)+1)
	maps.Copy(meta, metadata)
	meta[MetaLocal] = local

	return ActivityEvent{
		RoomID:        roomID,
		Action:        action,
		ParticipantID: optional(participantID),
		DisplayName:   optional(displayName),
		Local:         local,
		metadata:      meta,
	}
}

// Metadata returns a copy of the auxiliary attributes.
func (e ActivityEvent) Metadata() map[string]any {
	return maps.Clone(e.metadata)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
