package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeBackend records calls. When a gate is set, the matching call
// blocks until the gate is closed.
type fakeBackend struct {
	mu         sync.Mutex
	joins      int
	leaves     int
	activities []ActivityEvent

	joinStarted  chan struct{}
	joinGate     chan struct{}
	activityGate chan struct{}

	joinResult  JoinResult
	joinErr     error
	leaveResult LeaveResult
	leaveErr    error
	activityErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{joinStarted: make(chan struct{}, 16)}
}

func (f *fakeBackend) JoinRoom(ctx context.Context, _ int64) (JoinResult, error) {
	f.mu.Lock()
	f.joins++
	gate := f.joinGate
	res, err := f.joinResult, f.joinErr
	f.mu.Unlock()

	f.joinStarted <- struct{}{}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return JoinResult{}, ctx.Err()
		}
	}
	return res, err
}

func (f *fakeBackend) LeaveRoom(_ context.Context, _ int64) (LeaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves++
	return f.leaveResult, f.leaveErr
}

func (f *fakeBackend) RecordActivity(ctx context.Context, ev ActivityEvent) error {
	f.mu.Lock()
	gate := f.activityGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, ev)
	return f.activityErr
}

func (f *fakeBackend) counts() (joins, leaves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joins, f.leaves
}

func (f *fakeBackend) recorded() []ActivityEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ActivityEvent(nil), f.activities...)
}

func intPtr(v int) *int { return &v }

type renderSpy struct {
	mu       sync.Mutex
	readings []CapacityReading
}

func (r *renderSpy) RenderCapacity(_ int64, reading CapacityReading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, reading)
}

func (r *renderSpy) last() (CapacityReading, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.readings) == 0 {
		return CapacityReading{}, false
	}
	return r.readings[len(r.readings)-1], true
}

type harness struct {
	backend   *fakeBackend
	renderer  *renderSpy
	capacity  *CapacityReconciler
	tracker   *PresenceTracker
	reporter  *ActivityReporter
	guard     *UnloadGuard
	session   *RoomSession
	nopLogger *zerolog.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := zerolog.Nop()
	backend := newFakeBackend()
	renderer := &renderSpy{}
	capacity := NewCapacityReconciler(renderer, &logger)
	tracker := NewPresenceTracker(backend, capacity, &logger)
	reporter := NewActivityReporter(backend, time.Second, &logger)
	guard := NewUnloadGuard(tracker, reporter, &logger)

	session, err := NewSession(7, "alice")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	return &harness{
		backend:   backend,
		renderer:  renderer,
		capacity:  capacity,
		tracker:   tracker,
		reporter:  reporter,
		guard:     guard,
		session:   session,
		nopLogger: &logger,
	}
}

func (h *harness) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.reporter.Flush(ctx); err != nil {
		t.Fatalf("flush reporter: %v", err)
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for backend call")
	}
}
