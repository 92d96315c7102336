package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/wirechat-presence/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:"
	// databases alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string, isManager bool) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, is_manager)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash, isManager)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, is_manager, created_at
		FROM users
		WHERE ` + where
	var user store.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsManager,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== RoomStore implementation ====

const roomColumns = `id, name, token, max_capacity, current_participants, total_visits,
		is_pinned, is_closed, is_archived, created_by, last_activity_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*store.Room, error) {
	var room store.Room
	var createdBy sql.NullInt64
	var lastActivity sql.NullTime
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Token,
		&room.MaxCapacity,
		&room.CurrentParticipants,
		&room.TotalVisits,
		&room.IsPinned,
		&room.IsClosed,
		&room.IsArchived,
		&createdBy,
		&lastActivity,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if createdBy.Valid {
		room.CreatedBy = &createdBy.Int64
	}
	if lastActivity.Valid {
		room.LastActivityAt = &lastActivity.Time
	}
	return &room, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getRoom loads a room. Archived rooms are reported as not found.
func getRoom(ctx context.Context, q queryRower, id int64) (*store.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ? AND is_archived = 0`
	room, err := scanRoom(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return room, nil
}

// CreateRoom inserts room and returns the stored row.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *store.Room) (*store.Room, error) {
	query := `
		INSERT INTO rooms (name, token, max_capacity, created_by)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, room.Name, room.Token, room.MaxCapacity, room.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetRoomByID(ctx, id)
}

// GetRoomByID retrieves a room by ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	return getRoom(ctx, s.db, id)
}

// ListRooms lists rooms that are not archived, pinned first.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]*store.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE is_archived = 0 ORDER BY is_pinned DESC, created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

// JoinRoom takes a seat unless the room is closed or full.
func (s *SQLiteStore) JoinRoom(ctx context.Context, roomID int64, at time.Time) (*store.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback is called on defer, error is not critical here
	}()

	room, err := getRoom(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsClosed {
		return nil, fmt.Errorf("room %d: %w", roomID, store.ErrRoomClosed)
	}
	if room.IsFull() {
		return nil, fmt.Errorf("room %d: %w", roomID, store.ErrRoomFull)
	}

	query := `
		UPDATE rooms
		SET current_participants = current_participants + 1,
		    total_visits = total_visits + 1,
		    last_activity_at = ?
		WHERE id = ?
	`
	if _, err := tx.ExecContext(ctx, query, at.UTC(), roomID); err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}

	room, err = getRoom(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return room, nil
}

// LeaveRoom frees a seat; the counter never goes below zero.
func (s *SQLiteStore) LeaveRoom(ctx context.Context, roomID int64, at time.Time) (*store.Room, error) {
	query := `
		UPDATE rooms
		SET current_participants = MAX(current_participants - 1, 0),
		    last_activity_at = ?
		WHERE id = ? AND is_archived = 0
	`
	result, err := s.db.ExecContext(ctx, query, at.UTC(), roomID)
	if err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("room %d: %w", roomID, store.ErrNotFound)
	}
	return s.GetRoomByID(ctx, roomID)
}

// TogglePinned flips the pinned flag and returns the new value.
func (s *SQLiteStore) TogglePinned(ctx context.Context, roomID int64) (bool, error) {
	return s.toggle(ctx, roomID, "is_pinned")
}

// ToggleClosed flips the closed flag and returns the new value.
func (s *SQLiteStore) ToggleClosed(ctx context.Context, roomID int64) (bool, error) {
	return s.toggle(ctx, roomID, "is_closed")
}

func (s *SQLiteStore) toggle(ctx context.Context, roomID int64, column string) (bool, error) {
	query := `UPDATE rooms SET ` + column + ` = NOT ` + column + ` WHERE id = ? AND is_archived = 0 RETURNING ` + column
	var value bool
	if err := s.db.QueryRowContext(ctx, query, roomID).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("room %d: %w", roomID, store.ErrNotFound)
		}
		return false, fmt.Errorf("toggle %s: %w", column, err)
	}
	return value, nil
}

// ArchiveInactiveRooms archives unpinned rooms idle since before cutoff.
func (s *SQLiteStore) ArchiveInactiveRooms(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE rooms
		SET is_archived = 1
		WHERE is_archived = 0
		  AND is_pinned = 0
		  AND last_activity_at IS NOT NULL
		  AND last_activity_at < ?
	`
	result, err := s.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("archive rooms: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ==== ActivityStore implementation ====

// SaveActivity persists a record and fills its ID and CreatedAt.
func (s *SQLiteStore) SaveActivity(ctx context.Context, a *store.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.MetadataJSON == "" {
		a.MetadataJSON = "{}"
	}

	query := `
		INSERT INTO room_activity (room_id, user_id, participant_id, display_name, action, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		a.RoomID, a.UserID, a.ParticipantID, a.DisplayName, a.Action, a.MetadataJSON, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// ListActivity returns the newest records of a room first.
func (s *SQLiteStore) ListActivity(ctx context.Context, roomID int64, limit int) ([]*store.Activity, error) {
	query := `
		SELECT id, room_id, user_id, participant_id, display_name, action, metadata_json, created_at
		FROM room_activity
		WHERE room_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var out []*store.Activity
	for rows.Next() {
		var a store.Activity
		var userID sql.NullInt64
		var participantID, displayName sql.NullString
		if err := rows.Scan(&a.ID, &a.RoomID, &userID, &participantID, &displayName, &a.Action, &a.MetadataJSON, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if userID.Valid {
			a.UserID = &userID.Int64
		}
		if participantID.Valid {
			a.ParticipantID = &participantID.String
		}
		if displayName.Valid {
			a.DisplayName = &displayName.String
		}
		out = append(out, &a)
	}

	return out, rows.Err()
}
