package livekit

import (
	"encoding/json"
	"net/http"

	"github.com/livekit/protocol/auth"
	lkproto "github.com/livekit/protocol/livekit"
	"github.com/livekit/protocol/webhook"
	"github.com/vovakirdan/wirechat-presence/internal/core"
)

// LiveKit webhook event names.
const (
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventTrackPublished    = "track_published"
	EventTrackUnpublished  = "track_unpublished"
)

// ReceiveWebhook verifies and decodes a LiveKit webhook request.
func ReceiveWebhook(r *http.Request, provider auth.KeyProvider) (*lkproto.WebhookEvent, error) {
	return webhook.ReceiveWebhookEvent(r, provider)
}

// RoomName returns the LiveKit room an event belongs to.
func RoomName(ev *lkproto.WebhookEvent) string {
	return ev.GetRoom().GetName()
}

type eventPayload struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Muted       *bool  `json:"muted,omitempty"`
	Local       bool   `json:"local,omitempty"`
}

// Translate maps a LiveKit webhook event to the raw engine event a page
// running the call UI would emit. localIdentity is the identity of the
// widget receiving the event.
func Translate(ev *lkproto.WebhookEvent, localIdentity string) (core.RawEvent, bool) {
	participant := ev.GetParticipant()
	if participant == nil {
		return core.RawEvent{}, false
	}
	local := participant.GetIdentity() == localIdentity
	payload := eventPayload{
		ID:          participant.GetIdentity(),
		DisplayName: participant.GetName(),
		Local:       local,
	}

	var name string
	switch ev.GetEvent() {
	case EventParticipantJoined:
		name = core.EngineParticipantJoined
		if local {
			name = core.EngineConferenceJoined
		}
	case EventParticipantLeft:
		name = core.EngineParticipantLeft
		if local {
			name = core.EngineConferenceLeft
		}
	case EventTrackPublished, EventTrackUnpublished:
		track := ev.GetTrack()
		if track == nil {
			return core.RawEvent{}, false
		}
		switch {
		case track.GetType() == lkproto.TrackType_AUDIO:
			name = core.EngineAudioMuteChanged
		case track.GetType() == lkproto.TrackType_VIDEO && track.GetSource() != lkproto.TrackSource_SCREEN_SHARE:
			name = core.EngineVideoMuteChanged
		default:
			return core.RawEvent{}, false
		}
		muted := ev.GetEvent() == EventTrackUnpublished || track.GetMuted()
		payload.Muted = &muted
	default:
		return core.RawEvent{}, false
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return core.RawEvent{}, false
	}
	return core.RawEvent{Name: name, Payload: raw}, true
}
