package store

import (
	"context"
	"errors"
	"time"
)

// Errors returned by stores. Implementations wrap them so callers can use errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrRoomClosed = errors.New("room is closed")
	ErrRoomFull   = errors.New("room is full")
)

// User represents a backend user.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsManager    bool // may pin/close rooms and read activity logs
	CreatedAt    time.Time
}

// Room is a meeting room with its participant counters.
type Room struct {
	ID                  int64
	Name                string
	Token               string
	MaxCapacity         int
	CurrentParticipants int
	TotalVisits         int
	IsPinned            bool
	IsClosed            bool
	IsArchived          bool
	CreatedBy           *int64
	LastActivityAt      *time.Time
	CreatedAt           time.Time
}

// IsFull reports whether the room has no free seat.
func (r *Room) IsFull() bool {
	return r.CurrentParticipants >= r.MaxCapacity
}

// Activity is one persisted activity log record.
type Activity struct {
	ID            int64
	RoomID        int64
	UserID        *int64
	ParticipantID *string
	DisplayName   *string
	Action        string
	MetadataJSON  string
	CreatedAt     time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string, isManager bool) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom inserts room and returns the stored row.
	CreateRoom(ctx context.Context, room *Room) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// ListRooms lists rooms that are not archived, pinned first.
	ListRooms(ctx context.Context) ([]*Room, error)

	// JoinRoom takes a seat: it increments the participant and visit
	// counters unless the room is closed or full. Archived rooms are
	// reported as not found.
	JoinRoom(ctx context.Context, roomID int64, at time.Time) (*Room, error)

	// LeaveRoom frees a seat. The participant counter never goes below zero.
	LeaveRoom(ctx context.Context, roomID int64, at time.Time) (*Room, error)

	// TogglePinned flips the pinned flag and returns the new value.
	TogglePinned(ctx context.Context, roomID int64) (bool, error)

	// ToggleClosed flips the closed flag and returns the new value.
	ToggleClosed(ctx context.Context, roomID int64) (bool, error)

	// ArchiveInactiveRooms archives unpinned rooms whose last activity
	// is older than cutoff and returns how many were archived.
	ArchiveInactiveRooms(ctx context.Context, cutoff time.Time) (int64, error)
}

// ActivityStore handles the room activity log.
type ActivityStore interface {
	// SaveActivity persists a record and fills its ID and CreatedAt.
	SaveActivity(ctx context.Context, a *Activity) error

	// ListActivity returns the newest records of a room first.
	ListActivity(ctx context.Context, roomID int64, limit int) ([]*Activity, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	ActivityStore

	// Close closes the underlying database connection.
	Close() error
}
