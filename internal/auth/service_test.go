package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-presence/internal/store/sqlite"
)

func newTestAuthService(t *testing.T, managers ...string) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig, managers)
}

func TestRegister_RejectsInvalidUsername(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ab", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}

	// Should be validated after trimming whitespace.
	if _, err := svc.Register(ctx, " ab ", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
}

func TestRegister_RejectsInvalidPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "abc", "12345"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_TrimsUsernameAndCreatesUser(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, " alice ", "password123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	// Should collide because the stored username is trimmed.
	if _, err := svc.Register(ctx, "alice", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestRegister_GrantsManagerRole(t *testing.T) {
	svc := newTestAuthService(t, "boss")
	ctx := context.Background()

	tests := []struct {
		username string
		manager  bool
	}{
		{username: "boss", manager: true},
		{username: "worker", manager: false},
	}
	for _, tt := range tests {
		token, err := svc.Register(ctx, tt.username, "password123")
		if err != nil {
			t.Fatalf("register %s: %v", tt.username, err)
		}
		claims, err := svc.ValidateToken(token)
		if err != nil {
			t.Fatalf("validate %s: %v", tt.username, err)
		}
		if claims.IsManager != tt.manager {
			t.Fatalf("%s: expected manager=%v, got %v", tt.username, tt.manager, claims.IsManager)
		}
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "carol", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, "carol", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	token, err := svc.Login(ctx, "carol", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Username != "carol" {
		t.Fatalf("expected carol, got %s", claims.Username)
	}
}

func TestValidateToken_RejectsWrongAudience(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("s"), Issuer: "a", Audience: "b", TTL: time.Minute}
	token, err := GenerateToken(cfg, 1, "dave", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := *cfg
	other.Audience = "c"
	if _, err := ValidateToken(&other, token); !errors.Is(err, ErrInvalidAudience) {
		t.Fatalf("expected ErrInvalidAudience, got %v", err)
	}
}
