package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Outcome describes what a Join or Leave call did.
type Outcome struct {
	// Requested is true when this call committed the transition and sent
	// the backend request. No-op calls return the stored outcome with
	// Requested cleared.
	Requested bool
	// Reading is the capacity after the response, when one was accepted.
	Reading *CapacityReading
	// Err is the backend failure of the original request, if any.
	Err error
}

// PresenceTracker owns the join/leave state machine of room sessions.
type PresenceTracker struct {
	backend  Backend
	capacity *CapacityReconciler
	log      *zerolog.Logger
}

// NewPresenceTracker constructs a tracker.
func NewPresenceTracker(backend Backend, capacity *CapacityReconciler, logger *zerolog.Logger) *PresenceTracker {
	return &PresenceTracker{
		backend:  backend,
		capacity: capacity,
		log:      logger,
	}
}

func (t *PresenceTracker) issuer(s *RoomSession) func() uint64 {
	return func() uint64 { return t.capacity.Issue(s.RoomID) }
}

// Join moves the session to StateJoined and tells the backend.
// The transition is committed before the request is sent, so concurrent
// callers see StateJoined and return without sending a second request.
// A failed request leaves the session joined: the call has already
// started locally.
func (t *PresenceTracker) Join(ctx context.Context, s *RoomSession) (Outcome, error) {
	seq, ok := s.advance(StateNotJoined, StateJoined, t.issuer(s))
	if !ok {
		out := s.lastJoinOutcome()
		out.Requested = false
		return out, nil
	}

	out := Outcome{Requested: true}

	res, err := t.backend.JoinRoom(ctx, s.RoomID)
	switch {
	case err != nil:
		out.Err = fmt.Errorf("%w: %w", ErrJoinFailed, err)
	case res.Error != "":
		out.Err = fmt.Errorf("%w: %w: %s", ErrJoinFailed, ErrBackendRefused, res.Error)
	default:
		if reading, ok := t.capacity.Apply(s.RoomID, seq, res.CurrentParticipants); ok {
			out.Reading = &reading
		}
	}
	s.recordJoin(out)

	if out.Err != nil {
		t.log.Warn().Err(out.Err).Int64("room_id", s.RoomID).Msg("join not recorded by backend, staying joined")
		return out, out.Err
	}
	t.log.Debug().Int64("room_id", s.RoomID).Uint64("seq", seq).Msg("joined room")
	return out, nil
}

// Leave moves the session to StateLeft and tells the backend. It is a
// no-op unless the session is joined. The local transition stands even
// when the request fails.
func (t *PresenceTracker) Leave(ctx context.Context, s *RoomSession, reason string) (Outcome, error) {
	seq, ok := s.advance(StateJoined, StateLeft, t.issuer(s))
	if !ok {
		out := s.lastLeaveOutcome()
		out.Requested = false
		return out, nil
	}

	out := Outcome{Requested: true}

	res, err := t.backend.LeaveRoom(ctx, s.RoomID)
	switch {
	case err != nil:
		out.Err = fmt.Errorf("%w: %w", ErrLeaveFailed, err)
	case res.Error != "":
		out.Err = fmt.Errorf("%w: %w: %s", ErrLeaveFailed, ErrBackendRefused, res.Error)
	case res.CurrentParticipants != nil:
		if reading, ok := t.capacity.Apply(s.RoomID, seq, *res.CurrentParticipants); ok {
			out.Reading = &reading
		}
	}
	s.recordLeave(out)

	if out.Err != nil {
		t.log.Warn().Err(out.Err).Int64("room_id", s.RoomID).Str("reason", reason).Msg("leave not recorded by backend")
		return out, out.Err
	}
	t.log.Debug().Int64("room_id", s.RoomID).Str("reason", reason).Msg("left room")
	return out, nil
}
