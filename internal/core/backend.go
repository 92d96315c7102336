package core

import "context"

// JoinResult is the backend answer to a join request.
type JoinResult struct {
	CurrentParticipants int
	// Error is set when the backend refused the join (room closed, full...).
	Error string
}

// LeaveResult is the backend answer to a leave request.
type LeaveResult struct {
	// CurrentParticipants is nil when the backend did not report a count.
	CurrentParticipants *int
	Error               string
}

// Backend is the request/response surface the tracking core consumes.
// Implementations must be safe for concurrent use.
type Backend interface {
	// JoinRoom increments the server-held participant count.
	JoinRoom(ctx context.Context, roomID int64) (JoinResult, error)

	// LeaveRoom decrements the server-held participant count.
	LeaveRoom(ctx context.Context, roomID int64) (LeaveResult, error)

	// RecordActivity stores one activity event. The result is ignored.
	RecordActivity(ctx context.Context, event ActivityEvent) error
}
