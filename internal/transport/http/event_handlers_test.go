package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/vovakirdan/wirechat-presence/internal/proto"
)

func TestJoinLeaveRPC(t *testing.T) {
	env := newTestEnv(t, 0)
	token := env.register(t, "alice")

	room, err := env.rooms.CreateRoom(context.Background(), 1, "standup", 1)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	base := "/event/room/" + itoa(room.ID)

	resp := env.do(t, http.MethodPost, base+"/join", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	joined := decode[proto.JoinResponse](t, resp)
	if !joined.Success || joined.CurrentParticipants == nil || *joined.CurrentParticipants != 1 {
		t.Fatalf("unexpected join response %+v", joined)
	}

	// Full room is a domain error: 200 with the message in the error field.
	resp = env.do(t, http.MethodPost, base+"/join", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if full := decode[proto.JoinResponse](t, resp); full.Success || full.Error != "Room is full" {
		t.Fatalf("expected Room is full, got %+v", full)
	}

	resp = env.do(t, http.MethodPost, base+"/leave", token, nil)
	left := decode[proto.JoinResponse](t, resp)
	if !left.Success || left.CurrentParticipants == nil || *left.CurrentParticipants != 0 {
		t.Fatalf("unexpected leave response %+v", left)
	}

	resp = env.do(t, http.MethodPost, "/event/room/404/join", token, nil)
	if missing := decode[proto.JoinResponse](t, resp); missing.Error != "Room not found" {
		t.Fatalf("expected Room not found, got %+v", missing)
	}

	if resp := env.do(t, http.MethodPost, base+"/join", "", nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", resp.Code)
	}
}

func TestJoinClosedRoomRPC(t *testing.T) {
	env := newTestEnv(t, 0)
	token := env.register(t, "alice")
	ctx := context.Background()

	room, err := env.rooms.CreateRoom(ctx, 1, "closed", 5)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := env.rooms.ToggleClose(ctx, true, room.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	resp := env.do(t, http.MethodPost, "/event/room/"+itoa(room.ID)+"/join", token, nil)
	if got := decode[proto.JoinResponse](t, resp); got.Error != "Room is closed" {
		t.Fatalf("expected Room is closed, got %+v", got)
	}
}

func TestActivityRPC(t *testing.T) {
	env := newTestEnv(t, 0)
	token := env.register(t, "alice")

	room, err := env.rooms.CreateRoom(context.Background(), 1, "log", 5)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	path := "/event/room/" + itoa(room.ID) + "/activity"

	resp := env.do(t, http.MethodPost, path, token, map[string]any{"action": "mute_audio", "participant_id": "p1"})
	if got := decode[proto.StatusResponse](t, resp); !got.Success {
		t.Fatalf("expected success, got %+v", got)
	}

	resp = env.do(t, http.MethodPost, path, token, map[string]any{"action": "dance"})
	if got := decode[proto.StatusResponse](t, resp); got.Success || got.Error == "" {
		t.Fatalf("expected unknown action to be refused, got %+v", got)
	}

	if resp := env.do(t, http.MethodPost, path, token, "{not json"); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for malformed body, got %d", resp.Code)
	}
}

func TestActivityRateLimit(t *testing.T) {
	env := newTestEnv(t, 2)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	room, err := env.rooms.CreateRoom(context.Background(), 1, "busy", 5)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	path := "/event/room/" + itoa(room.ID) + "/activity"
	body := map[string]any{"action": "hand_raise"}

	for i := range 2 {
		if resp := env.do(t, http.MethodPost, path, alice, body); resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, resp.Code)
		}
	}
	if resp := env.do(t, http.MethodPost, path, alice, body); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", resp.Code)
	}
	if resp := env.do(t, http.MethodPost, path, bob, body); resp.Code != http.StatusOK {
		t.Fatalf("limit must be per user, got %d for bob", resp.Code)
	}
}

func TestAdminRPCs(t *testing.T) {
	env := newTestEnv(t, 0)
	userToken := env.register(t, "alice")
	bossToken := env.register(t, "boss")

	room, err := env.rooms.CreateRoom(context.Background(), 1, "planning", 1)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	base := "/event/room/" + itoa(room.ID)

	resp := env.do(t, http.MethodPost, base+"/pin", userToken, nil)
	if got := decode[proto.PinResponse](t, resp); got.Error != "Permission denied" {
		t.Fatalf("expected Permission denied, got %+v", got)
	}

	resp = env.do(t, http.MethodPost, base+"/pin", bossToken, nil)
	if got := decode[proto.PinResponse](t, resp); !got.Success || !got.IsPinned {
		t.Fatalf("expected pinned, got %+v", got)
	}

	// Fill the room, close it, then try to reopen it.
	env.do(t, http.MethodPost, base+"/join", userToken, nil)
	resp = env.do(t, http.MethodPost, base+"/close", bossToken, nil)
	if got := decode[proto.CloseResponse](t, resp); !got.Success || !got.IsClosed {
		t.Fatalf("expected closed, got %+v", got)
	}
	resp = env.do(t, http.MethodPost, base+"/close", bossToken, nil)
	if got := decode[proto.CloseResponse](t, resp); got.Success || !got.IsClosed || got.Error == "" {
		t.Fatalf("expected reopen of full room to be refused, got %+v", got)
	}

	resp = env.do(t, http.MethodPost, base+"/duplicate", bossToken, nil)
	dup := decode[proto.DuplicateResponse](t, resp)
	if !dup.Success || dup.RoomID == room.ID || dup.RoomToken == "" || dup.RoomToken == room.Token {
		t.Fatalf("unexpected duplicate response %+v", dup)
	}
	resp = env.do(t, http.MethodPost, base+"/duplicate", userToken, nil)
	if got := decode[proto.DuplicateResponse](t, resp); got.Error != "Permission denied" {
		t.Fatalf("expected Permission denied, got %+v", got)
	}
}
