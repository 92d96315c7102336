package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/callengine"
	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/proto"
)

type fakeBackend struct {
	mu         sync.Mutex
	count      int
	joins      int
	leaves     int
	activities []core.ActivityEvent
}

func (f *fakeBackend) JoinRoom(context.Context, int64) (core.JoinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins++
	f.count++
	return core.JoinResult{CurrentParticipants: f.count}, nil
}

func (f *fakeBackend) LeaveRoom(context.Context, int64) (core.LeaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves++
	f.count--
	n := f.count
	return core.LeaveResult{CurrentParticipants: &n}, nil
}

func (f *fakeBackend) RecordActivity(_ context.Context, ev core.ActivityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, ev)
	return nil
}

func (f *fakeBackend) snapshot() (joins, leaves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joins, f.leaves
}

type fakeEngine struct {
	err error
}

func (e fakeEngine) Kind() string { return "fake" }

func (e fakeEngine) Prepare(_ context.Context, opts callengine.Options) (*callengine.JoinInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &callengine.JoinInfo{
		Engine:   "fake",
		URL:      "wss://media.test",
		Token:    "tok",
		RoomName: opts.RoomName,
		Identity: opts.Identity,
	}, nil
}

type testEnv struct {
	backend *fakeBackend
	hub     *Hub
	track   Tracking
	handler *Handler
	server  *httptest.Server
}

func newTestEnv(t *testing.T, engine callengine.Engine) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	backend := &fakeBackend{}
	hub := NewHub(&logger)
	capacity := core.NewCapacityReconciler(hub, &logger)
	tracker := core.NewPresenceTracker(backend, capacity, &logger)
	reporter := core.NewActivityReporter(backend, time.Second, &logger)
	guard := core.NewUnloadGuard(tracker, reporter, &logger)
	track := Tracking{Capacity: capacity, Tracker: tracker, Reporter: reporter, Guard: guard}

	handler := NewHandler(hub, engine, track, Options{MaxMessageBytes: 1 << 16}, &logger)
	srv := httptest.NewServer(NewMux(handler, nil))
	t.Cleanup(srv.Close)

	return &testEnv{backend: backend, hub: hub, track: track, handler: handler, server: srv}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

type outbound struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var msg outbound
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var errNoEngine = errors.New("no engine")
