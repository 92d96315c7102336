package jitsi

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vovakirdan/wirechat-presence/internal/callengine"
)

const tokenTTL = 2 * time.Hour

// Config describes a Jitsi deployment. AppID and AppSecret are only set
// for deployments with token authentication.
type Config struct {
	Domain    string
	AppID     string
	AppSecret string
}

// Engine implements callengine.Engine for the Jitsi Meet external API.
type Engine struct {
	cfg Config
	now func() time.Time
}

// New creates a Jitsi engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// Kind implements callengine.Engine.
func (e *Engine) Kind() string { return callengine.KindJitsi }

// Prepare returns the external API location and the configuration the
// page passes to the JitsiMeetExternalAPI constructor.
func (e *Engine) Prepare(_ context.Context, opts callengine.Options) (*callengine.JoinInfo, error) {
	if e.cfg.Domain == "" {
		return nil, fmt.Errorf("%w: jitsi domain is not configured", callengine.ErrEngineUnavailable)
	}
	if err := callengine.ValidateOptions(opts); err != nil {
		return nil, err
	}

	info := &callengine.JoinInfo{
		Engine:   callengine.KindJitsi,
		URL:      "https://" + e.cfg.Domain + "/external_api.js",
		RoomName: opts.RoomName,
		Identity: opts.Identity,
		Config: map[string]any{
			"domain":   e.cfg.Domain,
			"userInfo": map[string]any{"displayName": opts.DisplayName},
			"configOverwrite": map[string]any{
				"startWithAudioMuted": opts.StartAudioMuted,
				"startWithVideoMuted": opts.StartVideoMuted,
				"enableWelcomePage":   opts.WelcomePage,
			},
			"interfaceConfigOverwrite": map[string]any{
				"SHOW_JITSI_WATERMARK":      false,
				"SHOW_WATERMARK_FOR_GUESTS": false,
				"TOOLBAR_BUTTONS":           opts.Toolbar,
			},
		},
	}

	if e.cfg.AppID != "" && e.cfg.AppSecret != "" {
		token, err := e.token(opts)
		if err != nil {
			return nil, err
		}
		info.Token = token
	}
	return info, nil
}

type userContext struct {
	User struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
}

type claims struct {
	Room    string      `json:"room"`
	Context userContext `json:"context"`
	jwt.RegisteredClaims
}

// token signs a room token in the format of the Jitsi token auth module.
func (e *Engine) token(opts callengine.Options) (string, error) {
	now := e.now()
	c := claims{
		Room: opts.RoomName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    e.cfg.AppID,
			Subject:   e.cfg.Domain,
			Audience:  jwt.ClaimStrings{"jitsi"},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	c.Context.User.ID = opts.Identity
	c.Context.User.Name = opts.DisplayName

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(e.cfg.AppSecret))
	if err != nil {
		return "", fmt.Errorf("sign jitsi token: %w", err)
	}
	return signed, nil
}

var _ callengine.Engine = (*Engine)(nil)
