package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

type guardEntry struct {
	session *RoomSession
	fired   bool
}

// UnloadGuard makes sure a session that is being torn down leaves its
// room and records the leave, once. Each session has at most one handler.
type UnloadGuard struct {
	tracker  *PresenceTracker
	reporter *ActivityReporter
	log      *zerolog.Logger

	mu      sync.Mutex
	entries map[*RoomSession]*guardEntry
}

// NewUnloadGuard constructs a guard.
func NewUnloadGuard(tracker *PresenceTracker, reporter *ActivityReporter, logger *zerolog.Logger) *UnloadGuard {
	return &UnloadGuard{
		tracker:  tracker,
		reporter: reporter,
		log:      logger,
		entries:  make(map[*RoomSession]*guardEntry),
	}
}

// Register installs the teardown handler for s. It returns false when s
// already has one.
func (g *UnloadGuard) Register(s *RoomSession) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.entries[s]; ok {
		return false
	}
	g.entries[s] = &guardEntry{session: s}
	return true
}

// Registered reports whether s has a handler.
func (g *UnloadGuard) Registered(s *RoomSession) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.entries[s]
	return ok
}

// Fire runs the handler of one session. Unregistered sessions and
// handlers that already ran are ignored.
func (g *UnloadGuard) Fire(ctx context.Context, s *RoomSession) {
	g.mu.Lock()
	entry, ok := g.entries[s]
	if !ok || entry.fired {
		g.mu.Unlock()
		return
	}
	entry.fired = true
	g.mu.Unlock()

	g.run(ctx, entry.session)
}

// Teardown runs every handler that has not run yet.
func (g *UnloadGuard) Teardown(ctx context.Context) {
	g.mu.Lock()
	pending := make([]*RoomSession, 0, len(g.entries))
	for _, entry := range g.entries {
		if entry.fired {
			continue
		}
		entry.fired = true
		pending = append(pending, entry.session)
	}
	g.mu.Unlock()

	for _, s := range pending {
		g.run(ctx, s)
	}
}

// Forget drops the handler of s without running it.
func (g *UnloadGuard) Forget(s *RoomSession) {
	g.mu.Lock()
	delete(g.entries, s)
	g.mu.Unlock()
}

func (g *UnloadGuard) run(ctx context.Context, s *RoomSession) {
	out, err := g.tracker.Leave(ctx, s, ReasonBeforeUnload)
	if err != nil {
		// Already logged by the tracker; the leave record is still sent.
		g.log.Debug().Err(err).Int64("room_id", s.RoomID).Msg("teardown leave failed")
	}
	if !out.Requested {
		return
	}
	g.reporter.Report(NewActivityEvent(s.RoomID, ActionLeave, "", s.DisplayName, true, map[string]any{
		MetaReason: ReasonBeforeUnload,
	}))
}
