package core

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
)

func TestJoinCommitsBeforeResponse(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.backend.joinGate = gate
	h.backend.joinResult = JoinResult{CurrentParticipants: 1}

	ctx := context.Background()
	first := make(chan Outcome, 1)
	go func() {
		out, _ := h.tracker.Join(ctx, h.session)
		first <- out
	}()
	waitSignal(t, h.backend.joinStarted)

	if got := h.session.State(); got != StateJoined {
		t.Fatalf("expected joined while request is in flight, got %s", got)
	}

	// Rapid repeated joins while the first is still waiting on the backend.
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.tracker.Join(ctx, h.session)
			if err != nil {
				t.Errorf("duplicate join returned error: %v", err)
			}
			if out.Requested {
				t.Errorf("duplicate join sent a request")
			}
		}()
	}
	wg.Wait()
	close(gate)

	if out := <-first; !out.Requested {
		t.Fatalf("first join should have sent the request")
	}
	if joins, _ := h.backend.counts(); joins != 1 {
		t.Fatalf("expected exactly one join request, got %d", joins)
	}
}

func TestJoinNoopReturnsLastOutcome(t *testing.T) {
	h := newHarness(t)
	h.capacity.SetMax(h.session.RoomID, 10)
	h.backend.joinResult = JoinResult{CurrentParticipants: 4}
	ctx := context.Background()

	if _, err := h.tracker.Join(ctx, h.session); err != nil {
		t.Fatalf("join: %v", err)
	}
	out, err := h.tracker.Join(ctx, h.session)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if out.Requested {
		t.Fatalf("second join should be a no-op")
	}
	if out.Reading == nil || out.Reading.CurrentParticipants != 4 {
		t.Fatalf("expected last known reading, got %+v", out.Reading)
	}
}

func TestLeftIsTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.tracker.Join(ctx, h.session); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := h.tracker.Leave(ctx, h.session, ""); err != nil {
		t.Fatalf("leave: %v", err)
	}

	for range 3 {
		if out, err := h.tracker.Join(ctx, h.session); err != nil || out.Requested {
			t.Fatalf("join after leave should be a no-op, got %+v %v", out, err)
		}
		if out, err := h.tracker.Leave(ctx, h.session, "again"); err != nil || out.Requested {
			t.Fatalf("leave after leave should be a no-op, got %+v %v", out, err)
		}
	}

	if got := h.session.State(); got != StateLeft {
		t.Fatalf("expected left, got %s", got)
	}
	if joins, leaves := h.backend.counts(); joins != 1 || leaves != 1 {
		t.Fatalf("expected 1 join and 1 leave request, got %d and %d", joins, leaves)
	}
}

func TestLeaveBeforeJoinIsNoop(t *testing.T) {
	h := newHarness(t)

	out, err := h.tracker.Leave(context.Background(), h.session, "")
	if err != nil || out.Requested {
		t.Fatalf("expected no-op, got %+v %v", out, err)
	}
	if got := h.session.State(); got != StateNotJoined {
		t.Fatalf("expected not joined, got %s", got)
	}
	if _, leaves := h.backend.counts(); leaves != 0 {
		t.Fatalf("expected no leave request, got %d", leaves)
	}
}

func TestJoinFailureKeepsJoined(t *testing.T) {
	tests := []struct {
		name    string
		result  JoinResult
		err     error
		refused bool
	}{
		{name: "transport error", err: errors.New("connection reset")},
		{name: "error field", result: JoinResult{Error: "Room is full"}, refused: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.backend.joinResult = tt.result
			h.backend.joinErr = tt.err

			out, err := h.tracker.Join(context.Background(), h.session)
			if !errors.Is(err, ErrJoinFailed) {
				t.Fatalf("expected ErrJoinFailed, got %v", err)
			}
			if errors.Is(err, ErrBackendRefused) != tt.refused {
				t.Fatalf("unexpected refusal classification: %v", err)
			}
			if !out.Requested || out.Reading != nil {
				t.Fatalf("unexpected outcome: %+v", out)
			}
			if got := h.session.State(); got != StateJoined {
				t.Fatalf("expected joined after failed join, got %s", got)
			}
			if _, ok := h.renderer.last(); ok {
				t.Fatalf("failed join must not render capacity")
			}

			// No retry: a later join is still a no-op.
			_, _ = h.tracker.Join(context.Background(), h.session)
			if joins, _ := h.backend.counts(); joins != 1 {
				t.Fatalf("expected a single join attempt, got %d", joins)
			}
		})
	}
}

func TestLeaveFailureStillLeft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.tracker.Join(ctx, h.session); err != nil {
		t.Fatalf("join: %v", err)
	}

	h.backend.leaveErr = errors.New("network down")
	_, err := h.tracker.Leave(ctx, h.session, "")
	if !errors.Is(err, ErrLeaveFailed) {
		t.Fatalf("expected ErrLeaveFailed, got %v", err)
	}
	if got := h.session.State(); got != StateLeft {
		t.Fatalf("expected left after failed leave, got %s", got)
	}
}

func TestJoinLeaveCapacityScenario(t *testing.T) {
	h := newHarness(t)
	h.capacity.SetMax(h.session.RoomID, 10)
	ctx := context.Background()

	h.backend.joinResult = JoinResult{CurrentParticipants: 3}
	if _, err := h.tracker.Join(ctx, h.session); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got, _ := h.renderer.last(); got.Percentage() != 30 {
		t.Fatalf("expected 30%%, got %v", got.Percentage())
	}

	h.backend.leaveResult = LeaveResult{CurrentParticipants: intPtr(2)}
	if _, err := h.tracker.Leave(ctx, h.session, ""); err != nil {
		t.Fatalf("leave: %v", err)
	}
	got, _ := h.renderer.last()
	if got.CurrentParticipants != 2 || got.Percentage() != 20 {
		t.Fatalf("expected 2 participants at 20%%, got %+v (%v%%)", got, got.Percentage())
	}
}

func TestSlowJoinResponseDoesNotOverwriteLeave(t *testing.T) {
	h := newHarness(t)
	h.capacity.SetMax(h.session.RoomID, 10)
	gate := make(chan struct{})
	h.backend.joinGate = gate
	h.backend.joinResult = JoinResult{CurrentParticipants: 3}
	h.backend.leaveResult = LeaveResult{CurrentParticipants: intPtr(2)}
	ctx := context.Background()

	joined := make(chan struct{})
	go func() {
		defer close(joined)
		_, _ = h.tracker.Join(ctx, h.session)
	}()
	waitSignal(t, h.backend.joinStarted)

	if _, err := h.tracker.Leave(ctx, h.session, ""); err != nil {
		t.Fatalf("leave: %v", err)
	}
	close(gate)
	<-joined

	if got := h.capacity.Reading(h.session.RoomID); got.CurrentParticipants != 2 {
		t.Fatalf("stale join response resurrected count: %+v", got)
	}
}

func TestLeaveWithoutCountKeepsReading(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.backend.joinResult = JoinResult{CurrentParticipants: 5}
	if _, err := h.tracker.Join(ctx, h.session); err != nil {
		t.Fatalf("join: %v", err)
	}
	out, err := h.tracker.Leave(ctx, h.session, "")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if out.Reading != nil {
		t.Fatalf("leave without count should not produce a reading")
	}
	if got := h.capacity.Reading(h.session.RoomID); got.CurrentParticipants != 5 {
		t.Fatalf("expected reading to stay at 5, got %+v", got)
	}
}

func TestNewSessionValidation(t *testing.T) {
	if _, err := NewSession(0, "bob"); !errors.Is(err, ErrInvalidRoom) {
		t.Fatalf("expected ErrInvalidRoom, got %v", err)
	}
	s, err := NewSession(3, "")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if s.DisplayName != DefaultDisplayName {
		t.Fatalf("expected default display name, got %q", s.DisplayName)
	}
	if s.State() != StateNotJoined {
		t.Fatalf("expected not joined, got %s", s.State())
	}
}

func TestSequenceDrawnWithTransition(t *testing.T) {
	s, err := NewSession(1, "")
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	var heldLock bool
	seq, ok := s.advance(StateNotJoined, StateJoined, func() uint64 {
		heldLock = !s.mu.TryLock()
		return 7
	})
	if !ok || seq != 7 {
		t.Fatalf("expected committed transition with seq 7, got %d %v", seq, ok)
	}
	if !heldLock {
		t.Fatalf("sequence number must be drawn under the session lock")
	}

	if _, ok := s.advance(StateNotJoined, StateJoined, func() uint64 {
		t.Fatalf("no sequence number may be drawn for a rejected transition")
		return 0
	}); ok {
		t.Fatalf("second join transition must be rejected")
	}
}

func TestConcurrentJoinLeaveKeepsLeaveCount(t *testing.T) {
	for i := 0; i < 200; i++ {
		h := newHarness(t)
		h.backend.joinResult = JoinResult{CurrentParticipants: 5}
		h.backend.leaveResult = LeaveResult{CurrentParticipants: intPtr(4)}
		ctx := context.Background()

		var wg sync.WaitGroup
		var left Outcome
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = h.tracker.Join(ctx, h.session)
		}()
		go func() {
			defer wg.Done()
			for h.session.State() == StateNotJoined {
				runtime.Gosched()
			}
			left, _ = h.tracker.Leave(ctx, h.session, "")
		}()
		wg.Wait()

		if !left.Requested {
			t.Fatalf("iteration %d: leave after join must be requested", i)
		}
		if got := h.capacity.Reading(h.session.RoomID); got.CurrentParticipants != 4 {
			t.Fatalf("iteration %d: join count overwrote the later leave: %+v", i, got)
		}
	}
}
