package sqlite

import (
	"database/sql"
	"fmt"
)

// schema is applied on every open; statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_manager    BOOLEAN NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rooms (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	name                 TEXT NOT NULL,
	token                TEXT NOT NULL UNIQUE,
	max_capacity         INTEGER NOT NULL DEFAULT 50 CHECK (max_capacity BETWEEN 1 AND 1000),
	current_participants INTEGER NOT NULL DEFAULT 0 CHECK (current_participants >= 0),
	total_visits         INTEGER NOT NULL DEFAULT 0,
	is_pinned            BOOLEAN NOT NULL DEFAULT 0,
	is_closed            BOOLEAN NOT NULL DEFAULT 0,
	is_archived          BOOLEAN NOT NULL DEFAULT 0,
	created_by           INTEGER REFERENCES users(id) ON DELETE SET NULL,
	last_activity_at     DATETIME,
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS room_activity (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id        INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id        INTEGER REFERENCES users(id) ON DELETE SET NULL,
	participant_id TEXT,
	display_name   TEXT,
	action         TEXT NOT NULL,
	metadata_json  TEXT NOT NULL DEFAULT '{}',
	created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_room_activity_room ON room_activity(room_id, created_at DESC);
`

// Migrate applies the schema to db.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
