package livekit

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/vovakirdan/wirechat-presence/internal/callengine"
)

const tokenTTL = time.Hour

// LiveKitEngine implements callengine.Engine using LiveKit as the media backend.
type LiveKitEngine struct {
	apiKey    string
	apiSecret string
	wsURL     string
}

// New creates a new LiveKitEngine.
func New(apiKey, apiSecret, wsURL string) *LiveKitEngine {
	return &LiveKitEngine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
	}
}

// Kind implements callengine.Engine.
func (e *LiveKitEngine) Kind() string { return callengine.KindLiveKit }

// Prepare creates a room join token. LiveKit creates rooms on demand
// when the first participant connects.
func (e *LiveKitEngine) Prepare(_ context.Context, opts callengine.Options) (*callengine.JoinInfo, error) {
	if e.apiKey == "" || e.apiSecret == "" || e.wsURL == "" {
		return nil, fmt.Errorf("%w: livekit is not configured", callengine.ErrEngineUnavailable)
	}
	if err := callengine.ValidateOptions(opts); err != nil {
		return nil, err
	}

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     opts.RoomName,
	}
	at.SetVideoGrant(grant).
		SetIdentity(opts.Identity).
		SetName(opts.DisplayName).
		SetValidFor(tokenTTL)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &callengine.JoinInfo{
		Engine:   callengine.KindLiveKit,
		URL:      e.wsURL,
		Token:    token,
		RoomName: opts.RoomName,
		Identity: opts.Identity,
		Config: map[string]any{
			"audio":   !opts.StartAudioMuted,
			"video":   !opts.StartVideoMuted,
			"toolbar": opts.Toolbar,
		},
	}, nil
}

// KeyProvider returns the provider used to verify webhooks signed with
// this engine's credentials.
func (e *LiveKitEngine) KeyProvider() auth.KeyProvider {
	return auth.NewSimpleKeyProvider(e.apiKey, e.apiSecret)
}

var _ callengine.Engine = (*LiveKitEngine)(nil)
