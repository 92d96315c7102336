package core

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Engine event names understood by the normalizer.
const (
	EngineConferenceJoined  = "videoConferenceJoined"
	EngineConferenceLeft    = "videoConferenceLeft"
	EngineParticipantJoined = "participantJoined"
	EngineParticipantLeft   = "participantLeft"
	EngineRaiseHandUpdated  = "raiseHandUpdated"
	EngineAudioMuteChanged  = "audioMuteStatusChanged"
	EngineVideoMuteChanged  = "videoMuteStatusChanged"
)

// RawEvent is an event as delivered by the conferencing engine.
type RawEvent struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EngineEvent is the closed set of engine events the tracker cares about.
type EngineEvent interface {
	engineEvent()
}

// ConferenceJoined is emitted when the local user entered the call.
type ConferenceJoined struct {
	ParticipantID string
}

// ConferenceLeft is emitted when the local user left the call.
type ConferenceLeft struct {
	ParticipantID string
}

// ParticipantJoined is a remote participant entering the call.
type ParticipantJoined struct {
	ParticipantID string
	DisplayName   string
}

// ParticipantLeft is a remote participant leaving the call.
type ParticipantLeft struct {
	ParticipantID string
	DisplayName   string
}

// HandRaiseUpdated toggles a participant's raised hand.
type HandRaiseUpdated struct {
	ParticipantID string
	DisplayName   string
	Raised        bool
	Local         bool
}

// AudioMuteChanged toggles a participant's microphone.
type AudioMuteChanged struct {
	ParticipantID string
	DisplayName   string
	Muted         bool
	Local         bool
}

// VideoMuteChanged toggles a participant's camera.
type VideoMuteChanged struct {
	ParticipantID string
	DisplayName   string
	Muted         bool
	Local         bool
}

func (ConferenceJoined) engineEvent()  {}
func (ConferenceLeft) engineEvent()    {}
func (ParticipantJoined) engineEvent() {}
func (ParticipantLeft) engineEvent()   {}
func (HandRaiseUpdated) engineEvent()  {}
func (AudioMuteChanged) engineEvent()  {}
func (VideoMuteChanged) engineEvent()  {}

type rawPayload struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"displayName"`
	HandRaised  json.RawMessage `json:"handRaised"`
	Muted       bool            `json:"muted"`
	Local       bool            `json:"local"`
}

// ParseEngineEvent decodes a raw engine event into its variant.
// Unknown names and malformed payloads are dropped.
func ParseEngineEvent(raw RawEvent) (EngineEvent, bool) {
	var p rawPayload
	if len(raw.Payload) > 0 && !bytes.Equal(raw.Payload, []byte("null")) {
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return nil, false
		}
	}

	switch raw.Name {
	case EngineConferenceJoined:
		return ConferenceJoined{ParticipantID: p.ID}, true
	case EngineConferenceLeft:
		return ConferenceLeft{ParticipantID: p.ID}, true
	case EngineParticipantJoined:
		return ParticipantJoined{ParticipantID: p.ID, DisplayName: p.DisplayName}, true
	case EngineParticipantLeft:
		return ParticipantLeft{ParticipantID: p.ID, DisplayName: p.DisplayName}, true
	case EngineRaiseHandUpdated:
		return HandRaiseUpdated{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Raised:        truthy(p.HandRaised),
			Local:         p.Local,
		}, true
	case EngineAudioMuteChanged:
		return AudioMuteChanged{ParticipantID: p.ID, DisplayName: p.DisplayName, Muted: p.Muted, Local: p.Local}, true
	case EngineVideoMuteChanged:
		return VideoMuteChanged{ParticipantID: p.ID, DisplayName: p.DisplayName, Muted: p.Muted, Local: p.Local}, true
	default:
		return nil, false
	}
}

// truthy accepts a boolean or a number; engines report a raised hand
// as a timestamp and a lowered one as 0.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	n, err := strconv.ParseFloat(string(raw), 64)
	return err == nil && n != 0
}

// Normalizer turns engine events into ActivityEvents for one room.
type Normalizer struct {
	RoomID int64
	// DisplayName labels events of the local user.
	DisplayName string
}

// NewNormalizer returns a normalizer bound to the session's room.
func NewNormalizer(s *RoomSession) Normalizer {
	return Normalizer{RoomID: s.RoomID, DisplayName: s.DisplayName}
}

// Normalize maps a raw engine event to zero or one ActivityEvent.
func (n Normalizer) Normalize(raw RawEvent) (ActivityEvent, bool) {
	ev, ok := ParseEngineEvent(raw)
	if !ok {
		return ActivityEvent{}, false
	}
	return n.Activity(ev)
}

// Activity maps an already parsed engine event.
func (n Normalizer) Activity(ev EngineEvent) (ActivityEvent, bool) {
	switch e := ev.(type) {
	case ConferenceJoined:
		return NewActivityEvent(n.RoomID, ActionJoin, e.ParticipantID, n.DisplayName, true, nil), true
	case ConferenceLeft:
		return NewActivityEvent(n.RoomID, ActionLeave, e.ParticipantID, n.DisplayName, true, nil), true
	case ParticipantJoined:
		return NewActivityEvent(n.RoomID, ActionParticipantJoin, e.ParticipantID, e.DisplayName, false, nil), true
	case ParticipantLeft:
		return NewActivityEvent(n.RoomID, ActionParticipantLeave, e.ParticipantID, e.DisplayName, false, nil), true
	case HandRaiseUpdated:
		return NewActivityEvent(n.RoomID, pick(e.Raised, ActionHandRaise, ActionHandLower), e.ParticipantID, e.DisplayName, e.Local, nil), true
	case AudioMuteChanged:
		return NewActivityEvent(n.RoomID, pick(e.Muted, ActionMuteAudio, ActionUnmuteAudio), e.ParticipantID, e.DisplayName, e.Local, nil), true
	case VideoMuteChanged:
		return NewActivityEvent(n.RoomID, pick(e.Muted, ActionMuteVideo, ActionUnmuteVideo), e.ParticipantID, e.DisplayName, e.Local, nil), true
	}
	return ActivityEvent{}, false
}

func pick(cond bool, yes, no Action) Action {
	if cond {
		return yes
	}
	return no
}
