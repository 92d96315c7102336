package core

import "sync"

// DefaultDisplayName is used when the room element carries no user name.
const DefaultDisplayName = "Guest"

// State is the membership state of a RoomSession.
type State int

const (
	// StateNotJoined is the initial state before the call has started.
	StateNotJoined State = iota
	// StateJoined means the join transition has been committed.
	StateJoined
	// StateLeft is terminal.
	StateLeft
)

func (s State) String() string {
	switch s {
	case StateNotJoined:
		return "not_joined"
	case StateJoined:
		return "joined"
	case StateLeft:
		return "left"
	default:
		return "unknown"
	}
}

// RoomSession is one page's membership in one room.
// State only moves NotJoined -> Joined -> Left and every transition is
// committed under mu before any backend call is made.
type RoomSession struct {
	RoomID      int64
	DisplayName string

	mu        sync.Mutex
	state     State
	lastJoin  Outcome
	lastLeave Outcome
}

// NewSession constructs a session in StateNotJoined.
func NewSession(roomID int64, displayName string) (*RoomSession, error) {
	if roomID <= 0 {
		return nil, ErrInvalidRoom
	}
	if displayName == "" {
		displayName = DefaultDisplayName
	}
	return &RoomSession{
		RoomID:      roomID,
		DisplayName: displayName,
	}, nil
}

// State returns the current state.
func (s *RoomSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// advance moves the session from one state to the next and draws the
// request sequence number in the same critical section, so transitions
// of one session are numbered in the order they commit. Returns false
// when the session is not in from.
func (s *RoomSession) advance(from, to State, issue func() uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return 0, false
	}
	s.state = to
	return issue(), true
}

func (s *RoomSession) recordJoin(out Outcome) {
	s.mu.Lock()
	s.lastJoin = out
	s.mu.Unlock()
}

func (s *RoomSession) recordLeave(out Outcome) {
	s.mu.Lock()
	s.lastLeave = out
	s.mu.Unlock()
}

func (s *RoomSession) lastJoinOutcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastJoin
}

func (s *RoomSession) lastLeaveOutcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLeave
}
