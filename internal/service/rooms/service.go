package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/store"
	"github.com/vovakirdan/wirechat-presence/internal/utils"
)

// Room limits.
const (
	DefaultCapacity = 50
	MinCapacity     = 1
	MaxCapacity     = 1000

	DefaultActivityLimit = 100
	maxActivityLimit     = 500
)

// Domain errors. Transports report them to users instead of failing the request.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomClosed      = errors.New("room is closed")
	ErrRoomFull        = errors.New("room is full")
	ErrNotManager      = errors.New("only managers can do this")
	ErrInvalidName     = errors.New("room name is required")
	ErrInvalidCapacity = fmt.Errorf("capacity must be between %d and %d", MinCapacity, MaxCapacity)
	ErrInvalidAction   = errors.New("unknown activity action")
	ErrReopenFull      = errors.New("cannot reopen a full room")
)

// Publisher is notified of capacity changes.
type Publisher interface {
	PublishCapacity(ctx context.Context, roomID int64, current, maxParticipants int) error
}

// ActivityInput is one activity record as submitted by a tracker.
type ActivityInput struct {
	Action        string
	ParticipantID *string
	DisplayName   *string
	Metadata      map[string]any
}

// Service provides room business logic.
type Service struct {
	store     store.Store
	publisher Publisher
	log       *zerolog.Logger
	now       func() time.Time
}

// New creates a room service. publisher may be nil.
func New(st store.Store, publisher Publisher, logger *zerolog.Logger) *Service {
	return &Service{
		store:     st,
		publisher: publisher,
		log:       logger,
		now:       time.Now,
	}
}

// CreateRoom creates a room owned by userID. A zero capacity uses the default.
func (s *Service) CreateRoom(ctx context.Context, userID int64, name string, capacity int) (*store.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity < MinCapacity || capacity > MaxCapacity {
		return nil, ErrInvalidCapacity
	}

	room, err := s.store.CreateRoom(ctx, &store.Room{
		Name:        name,
		Token:       utils.NewRoomToken(),
		MaxCapacity: capacity,
		CreatedBy:   &userID,
	})
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	s.log.Info().Int64("room_id", room.ID).Str("name", room.Name).Int("capacity", capacity).Msg("room created")
	return room, nil
}

// GetRoom returns a room by ID.
func (s *Service) GetRoom(ctx context.Context, roomID int64) (*store.Room, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return room, nil
}

// ListRooms returns all rooms, pinned first.
func (s *Service) ListRooms(ctx context.Context) ([]*store.Room, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// Join takes a seat in the room.
func (s *Service) Join(ctx context.Context, userID, roomID int64) (*store.Room, error) {
	room, err := s.store.JoinRoom(ctx, roomID, s.now())
	if err != nil {
		return nil, mapStoreError(err)
	}

	s.log.Debug().Int64("room_id", roomID).Int64("user_id", userID).Int("current", room.CurrentParticipants).Msg("participant joined")
	s.publish(ctx, room)
	return room, nil
}

// Leave frees a seat in the room.
func (s *Service) Leave(ctx context.Context, userID, roomID int64) (*store.Room, error) {
	room, err := s.store.LeaveRoom(ctx, roomID, s.now())
	if err != nil {
		return nil, mapStoreError(err)
	}

	s.log.Debug().Int64("room_id", roomID).Int64("user_id", userID).Int("current", room.CurrentParticipants).Msg("participant left")
	s.publish(ctx, room)
	return room, nil
}

// RecordActivity appends one record to the room activity log.
func (s *Service) RecordActivity(ctx context.Context, userID, roomID int64, in ActivityInput) error {
	if !core.Action(in.Action).Valid() {
		return ErrInvalidAction
	}
	if _, err := s.store.GetRoomByID(ctx, roomID); err != nil {
		return mapStoreError(err)
	}

	metadata := "{}"
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(raw)
	}

	err := s.store.SaveActivity(ctx, &store.Activity{
		RoomID:        roomID,
		UserID:        &userID,
		ParticipantID: in.ParticipantID,
		DisplayName:   in.DisplayName,
		Action:        in.Action,
		MetadataJSON:  metadata,
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("save activity: %w", err)
	}
	return nil
}

// ListActivity returns the newest activity records of a room. Managers only.
func (s *Service) ListActivity(ctx context.Context, isManager bool, roomID int64, limit int) ([]*store.Activity, error) {
	if !isManager {
		return nil, ErrNotManager
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)

	if _, err := s.store.GetRoomByID(ctx, roomID); err != nil {
		return nil, mapStoreError(err)
	}
	records, err := s.store.ListActivity(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return records, nil
}

// TogglePin flips the pinned flag of a room. Managers only.
func (s *Service) TogglePin(ctx context.Context, isManager bool, roomID int64) (bool, error) {
	if !isManager {
		return false, ErrNotManager
	}
	pinned, err := s.store.TogglePinned(ctx, roomID)
	if err != nil {
		return false, mapStoreError(err)
	}
	s.log.Info().Int64("room_id", roomID).Bool("is_pinned", pinned).Msg("room pin toggled")
	return pinned, nil
}

// ToggleClose flips the closed flag of a room. Managers only. A full
// room stays closed.
func (s *Service) ToggleClose(ctx context.Context, isManager bool, roomID int64) (bool, error) {
	if !isManager {
		return false, ErrNotManager
	}
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return false, mapStoreError(err)
	}
	if room.IsClosed && room.IsFull() {
		return true, ErrReopenFull
	}
	closed, err := s.store.ToggleClosed(ctx, roomID)
	if err != nil {
		return false, mapStoreError(err)
	}
	s.log.Info().Int64("room_id", roomID).Bool("is_closed", closed).Msg("room close toggled")
	return closed, nil
}

// DuplicateRoom creates a fresh copy of a room: same capacity, new
// token, counters and flags reset. Managers only.
func (s *Service) DuplicateRoom(ctx context.Context, isManager bool, userID, roomID int64) (*store.Room, error) {
	if !isManager {
		return nil, ErrNotManager
	}
	src, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	room, err := s.store.CreateRoom(ctx, &store.Room{
		Name:        src.Name + " (copy)",
		Token:       utils.NewRoomToken(),
		MaxCapacity: src.MaxCapacity,
		CreatedBy:   &userID,
	})
	if err != nil {
		return nil, fmt.Errorf("duplicate room: %w", err)
	}

	s.log.Info().Int64("room_id", room.ID).Int64("source_id", roomID).Msg("room duplicated")
	return room, nil
}

// ArchiveInactive archives unpinned rooms idle for longer than maxIdle.
func (s *Service) ArchiveInactive(ctx context.Context, maxIdle time.Duration) (int64, error) {
	n, err := s.store.ArchiveInactiveRooms(ctx, s.now().Add(-maxIdle))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("archived", n).Dur("max_idle", maxIdle).Msg("inactive rooms archived")
	}
	return n, nil
}

func (s *Service) publish(ctx context.Context, room *store.Room) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCapacity(ctx, room.ID, room.CurrentParticipants, room.MaxCapacity); err != nil {
		s.log.Warn().Err(err).Int64("room_id", room.ID).Msg("capacity publish failed")
	}
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrRoomNotFound
	case errors.Is(err, store.ErrRoomClosed):
		return ErrRoomClosed
	case errors.Is(err, store.ErrRoomFull):
		return ErrRoomFull
	default:
		return err
	}
}
