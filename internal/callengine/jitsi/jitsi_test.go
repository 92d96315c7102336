package jitsi

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vovakirdan/wirechat-presence/internal/callengine"
)

func TestPrepareWithoutDomain(t *testing.T) {
	e := New(Config{})
	_, err := e.Prepare(context.Background(), callengine.DefaultOptions("room", "alice", "alice-1"))
	if !errors.Is(err, callengine.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestPrepareDefaultConfig(t *testing.T) {
	e := New(Config{Domain: "meet.example.org"})
	info, err := e.Prepare(context.Background(), callengine.DefaultOptions("weekly", "alice", "alice-1"))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if info.URL != "https://meet.example.org/external_api.js" {
		t.Fatalf("unexpected url %q", info.URL)
	}
	if info.Token != "" {
		t.Fatalf("expected no token without app credentials")
	}

	overwrite, ok := info.Config["configOverwrite"].(map[string]any)
	if !ok {
		t.Fatalf("missing configOverwrite")
	}
	if overwrite["startWithAudioMuted"] != true || overwrite["startWithVideoMuted"] != false || overwrite["enableWelcomePage"] != false {
		t.Fatalf("unexpected defaults %v", overwrite)
	}
}

func TestPrepareSignsToken(t *testing.T) {
	e := New(Config{Domain: "meet.example.org", AppID: "wirepresence", AppSecret: "s3cret"})
	info, err := e.Prepare(context.Background(), callengine.DefaultOptions("weekly", "alice", "alice-1"))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	parsed := &claims{}
	_, err = jwt.ParseWithClaims(info.Token, parsed, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	}, jwt.WithAudience("jitsi"), jwt.WithIssuer("wirepresence"))
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if parsed.Room != "weekly" || parsed.Context.User.Name != "alice" {
		t.Fatalf("unexpected claims %+v", parsed)
	}
}

func TestPrepareRequiresRoomName(t *testing.T) {
	e := New(Config{Domain: "meet.example.org"})
	if _, err := e.Prepare(context.Background(), callengine.DefaultOptions(" ", "alice", "alice-1")); err == nil {
		t.Fatalf("expected error for empty room name")
	}
}
