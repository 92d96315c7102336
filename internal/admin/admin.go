// Package admin holds the explicit room admin actions: pin, close and
// duplicate. Each takes a room id and an injected backend client.
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled by user")
	// ErrInvalidRoom is returned for a non-positive room id.
	ErrInvalidRoom = errors.New("invalid room id")
)

// Client is the backend surface the admin actions need.
type Client interface {
	TogglePin(ctx context.Context, roomID int64) (bool, error)
	ToggleClose(ctx context.Context, roomID int64) (bool, error)
	DuplicateRoom(ctx context.Context, roomID int64) (int64, string, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer func(prompt string) bool

// Duplicate identifies the room created by DuplicateRoom.
type Duplicate struct {
	RoomID int64
	Token  string
}

// TogglePin flips the pinned flag of a room and returns the new value.
func TogglePin(ctx context.Context, c Client, roomID int64) (bool, error) {
	if roomID <= 0 {
		return false, ErrInvalidRoom
	}
	pinned, err := c.TogglePin(ctx, roomID)
	if err != nil {
		return false, fmt.Errorf("toggle pin on room %d: %w", roomID, err)
	}
	return pinned, nil
}

// CloseRoom asks for confirmation, then flips the closed flag of a room
// and returns the new value. Nothing is sent when the user declines.
func CloseRoom(ctx context.Context, c Client, roomID int64, confirm Confirmer) (bool, error) {
	if roomID <= 0 {
		return false, ErrInvalidRoom
	}
	if confirm != nil && !confirm(fmt.Sprintf("Are you sure you want to close room %d?", roomID)) {
		return false, ErrCancelled
	}
	closed, err := c.ToggleClose(ctx, roomID)
	if err != nil {
		return closed, fmt.Errorf("toggle close on room %d: %w", roomID, err)
	}
	return closed, nil
}

// DuplicateRoom creates a fresh copy of a room.
func DuplicateRoom(ctx context.Context, c Client, roomID int64) (Duplicate, error) {
	if roomID <= 0 {
		return Duplicate{}, ErrInvalidRoom
	}
	id, token, err := c.DuplicateRoom(ctx, roomID)
	if err != nil {
		return Duplicate{}, fmt.Errorf("duplicate room %d: %w", roomID, err)
	}
	return Duplicate{RoomID: id, Token: token}, nil
}

// PromptConfirmer writes the prompt to out and reads a y/yes answer from in.
func PromptConfirmer(in io.Reader, out io.Writer) Confirmer {
	reader := bufio.NewReader(in)
	return func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}
