package callengine

import (
	"context"
	"errors"
	"strings"
)

// Engine kinds.
const (
	KindLiveKit = "livekit"
	KindJitsi   = "jitsi"
)

// ErrEngineUnavailable means the conferencing engine cannot be used
// (not configured or its API is missing). It aborts only the widget
// that asked for it.
var ErrEngineUnavailable = errors.New("conferencing engine unavailable")

// DefaultToolbar is the set of toolbar buttons shown in the call UI.
var DefaultToolbar = []string{
	"microphone", "camera", "desktop", "fullscreen",
	"fodeviceselection", "hangup", "profile", "chat",
	"recording", "sharedvideo", "settings", "raisehand",
	"videoquality", "filmstrip", "stats", "shortcuts",
	"tileview", "videobackgroundblur", "help", "mute-everyone",
}

// Options is the construction call input: the room, who joins it and the
// fixed UI configuration.
type Options struct {
	RoomName    string
	DisplayName string
	Identity    string

	StartAudioMuted bool
	StartVideoMuted bool
	WelcomePage     bool
	Toolbar         []string
}

// DefaultOptions returns the standard configuration: audio muted, video
// on, no welcome page, the default toolbar.
func DefaultOptions(roomName, displayName, identity string) Options {
	return Options{
		RoomName:        roomName,
		DisplayName:     displayName,
		Identity:        identity,
		StartAudioMuted: true,
		Toolbar:         DefaultToolbar,
	}
}

// JoinInfo contains what the page needs to build the call UI.
type JoinInfo struct {
	Engine   string         `json:"engine"`
	URL      string         `json:"url"`
	Token    string         `json:"token,omitempty"`
	RoomName string         `json:"room_name"`
	Identity string         `json:"identity"`
	Config   map[string]any `json:"config,omitempty"`
}

// Engine abstracts the conferencing engine embedded in a room page.
type Engine interface {
	// Kind returns the engine kind.
	Kind() string

	// Prepare creates the join credentials and configuration for one
	// participant. It returns ErrEngineUnavailable when the engine
	// cannot be used.
	Prepare(ctx context.Context, opts Options) (*JoinInfo, error)
}

// Unavailable is the engine used when none is configured.
type Unavailable struct {
	Reason string
}

// Kind implements Engine.
func (u Unavailable) Kind() string { return "none" }

// Prepare always fails with ErrEngineUnavailable.
func (u Unavailable) Prepare(context.Context, Options) (*JoinInfo, error) {
	if u.Reason == "" {
		return nil, ErrEngineUnavailable
	}
	return nil, errors.Join(ErrEngineUnavailable, errors.New(u.Reason))
}

// ValidateOptions checks the fields every engine needs.
func ValidateOptions(opts Options) error {
	if strings.TrimSpace(opts.RoomName) == "" {
		return errors.New("room name is required")
	}
	if opts.Identity == "" {
		return errors.New("identity is required")
	}
	return nil
}
