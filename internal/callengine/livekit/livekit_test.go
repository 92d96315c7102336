package livekit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	lkproto "github.com/livekit/protocol/livekit"
	"github.com/vovakirdan/wirechat-presence/internal/callengine"
	"github.com/vovakirdan/wirechat-presence/internal/core"
)

func TestPrepareUnconfigured(t *testing.T) {
	e := New("", "", "")
	_, err := e.Prepare(context.Background(), callengine.DefaultOptions("room", "alice", "alice-1"))
	if !errors.Is(err, callengine.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestPrepareIssuesToken(t *testing.T) {
	e := New("devkey", "devsecret-that-is-long-enough-123", "ws://localhost:7880")
	info, err := e.Prepare(context.Background(), callengine.DefaultOptions("standup", "alice", "alice-1"))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if info.Token == "" || info.URL != "ws://localhost:7880" || info.RoomName != "standup" {
		t.Fatalf("unexpected join info %+v", info)
	}
	if info.Config["audio"] != false || info.Config["video"] != true {
		t.Fatalf("unexpected media defaults %v", info.Config)
	}
}

func webhookEvent(event, identity string, track *lkproto.TrackInfo) *lkproto.WebhookEvent {
	return &lkproto.WebhookEvent{
		Event:       event,
		Room:        &lkproto.Room{Name: "standup"},
		Participant: &lkproto.ParticipantInfo{Identity: identity, Name: identity + " name"},
		Track:       track,
	}
}

func TestTranslate(t *testing.T) {
	audio := &lkproto.TrackInfo{Type: lkproto.TrackType_AUDIO}
	camera := &lkproto.TrackInfo{Type: lkproto.TrackType_VIDEO, Source: lkproto.TrackSource_CAMERA}
	screen := &lkproto.TrackInfo{Type: lkproto.TrackType_VIDEO, Source: lkproto.TrackSource_SCREEN_SHARE}

	tests := []struct {
		name   string
		ev     *lkproto.WebhookEvent
		wantOK bool
		want   string
		muted  *bool
	}{
		{name: "local join", ev: webhookEvent(EventParticipantJoined, "me", nil), wantOK: true, want: core.EngineConferenceJoined},
		{name: "remote join", ev: webhookEvent(EventParticipantJoined, "bob", nil), wantOK: true, want: core.EngineParticipantJoined},
		{name: "local leave", ev: webhookEvent(EventParticipantLeft, "me", nil), wantOK: true, want: core.EngineConferenceLeft},
		{name: "remote leave", ev: webhookEvent(EventParticipantLeft, "bob", nil), wantOK: true, want: core.EngineParticipantLeft},
		{name: "audio published", ev: webhookEvent(EventTrackPublished, "bob", audio), wantOK: true, want: core.EngineAudioMuteChanged, muted: new(bool)},
		{name: "camera unpublished", ev: webhookEvent(EventTrackUnpublished, "me", camera), wantOK: true, want: core.EngineVideoMuteChanged, muted: ptr(true)},
		{name: "screen share ignored", ev: webhookEvent(EventTrackPublished, "bob", screen)},
		{name: "room event ignored", ev: &lkproto.WebhookEvent{Event: "room_started", Room: &lkproto.Room{Name: "standup"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ok := Translate(tt.ev, "me")
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if raw.Name != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, raw.Name)
			}
			if tt.muted != nil {
				var p eventPayload
				if err := json.Unmarshal(raw.Payload, &p); err != nil {
					t.Fatalf("decode payload: %v", err)
				}
				if p.Muted == nil || *p.Muted != *tt.muted {
					t.Fatalf("expected muted=%v, got %v", *tt.muted, p.Muted)
				}
			}
		})
	}
}

func TestTranslatedEventsNormalize(t *testing.T) {
	n := core.Normalizer{RoomID: 1, DisplayName: "me"}

	raw, ok := Translate(webhookEvent(EventTrackPublished, "me", &lkproto.TrackInfo{Type: lkproto.TrackType_AUDIO}), "me")
	if !ok {
		t.Fatalf("translate failed")
	}
	ev, ok := n.Normalize(raw)
	if !ok {
		t.Fatalf("normalize failed")
	}
	if ev.Action != core.ActionUnmuteAudio || !ev.Local {
		t.Fatalf("unexpected activity %+v", ev)
	}
}

func ptr[T any](v T) *T { return &v }
