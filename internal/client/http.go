package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/proto"
)

// ErrRefused wraps the message of a backend `{error}` reply.
var ErrRefused = errors.New("backend refused request")

// ErrMalformedResponse is returned when a reply has neither success nor error.
var ErrMalformedResponse = errors.New("malformed backend response")

const defaultTimeout = 10 * time.Second

var _ core.Backend = (*HTTPClient)(nil)

// HTTPClient makes RPC calls to the capacity backend. It implements
// core.Backend and the admin client.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL (e.g. "http://127.0.0.1:8080").
// A zero timeout uses the default.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of the client using token.
func (c *HTTPClient) WithToken(token string) *HTTPClient {
	cp := *c
	cp.token = token
	return &cp
}

// Login exchanges credentials for a bearer token.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.post(ctx, "/api/login", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// JoinRoom sends POST /event/room/{id}/join.
func (c *HTTPClient) JoinRoom(ctx context.Context, roomID int64) (core.JoinResult, error) {
	var out proto.JoinResponse
	if err := c.post(ctx, roomPath(roomID, "join"), nil, &out); err != nil {
		return core.JoinResult{}, err
	}
	if out.Error != "" {
		return core.JoinResult{Error: out.Error}, nil
	}
	if !out.Success || out.CurrentParticipants == nil {
		return core.JoinResult{}, ErrMalformedResponse
	}
	return core.JoinResult{CurrentParticipants: *out.CurrentParticipants}, nil
}

// LeaveRoom sends POST /event/room/{id}/leave.
func (c *HTTPClient) LeaveRoom(ctx context.Context, roomID int64) (core.LeaveResult, error) {
	var out proto.JoinResponse
	if err := c.post(ctx, roomPath(roomID, "leave"), nil, &out); err != nil {
		return core.LeaveResult{}, err
	}
	if out.Error != "" {
		return core.LeaveResult{Error: out.Error}, nil
	}
	if !out.Success {
		return core.LeaveResult{}, ErrMalformedResponse
	}
	return core.LeaveResult{CurrentParticipants: out.CurrentParticipants}, nil
}

// RecordActivity sends POST /event/room/{id}/activity.
func (c *HTTPClient) RecordActivity(ctx context.Context, ev core.ActivityEvent) error {
	body := proto.ActivityRequest{
		Action:        string(ev.Action),
		ParticipantID: ev.ParticipantID,
		DisplayName:   ev.DisplayName,
		Metadata:      ev.Metadata(),
	}
	var out proto.StatusResponse
	if err := c.post(ctx, roomPath(ev.RoomID, "activity"), body, &out); err != nil {
		return err
	}
	if out.Error != "" {
		return fmt.Errorf("%w: %s", ErrRefused, out.Error)
	}
	return nil
}

// TogglePin sends POST /event/room/{id}/pin and returns the new pinned state.
func (c *HTTPClient) TogglePin(ctx context.Context, roomID int64) (bool, error) {
	var out proto.PinResponse
	if err := c.post(ctx, roomPath(roomID, "pin"), nil, &out); err != nil {
		return false, err
	}
	if out.Error != "" {
		return out.IsPinned, fmt.Errorf("%w: %s", ErrRefused, out.Error)
	}
	return out.IsPinned, nil
}

// ToggleClose sends POST /event/room/{id}/close and returns the new closed state.
func (c *HTTPClient) ToggleClose(ctx context.Context, roomID int64) (bool, error) {
	var out proto.CloseResponse
	if err := c.post(ctx, roomPath(roomID, "close"), nil, &out); err != nil {
		return false, err
	}
	if out.Error != "" {
		return out.IsClosed, fmt.Errorf("%w: %s", ErrRefused, out.Error)
	}
	return out.IsClosed, nil
}

// DuplicateRoom sends POST /event/room/{id}/duplicate and returns the new room id and token.
func (c *HTTPClient) DuplicateRoom(ctx context.Context, roomID int64) (int64, string, error) {
	var out proto.DuplicateResponse
	if err := c.post(ctx, roomPath(roomID, "duplicate"), nil, &out); err != nil {
		return 0, "", err
	}
	if out.Error != "" {
		return 0, "", fmt.Errorf("%w: %s", ErrRefused, out.Error)
	}
	return out.RoomID, out.RoomToken, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("POST %s: %d %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("POST %s: decode: %w", path, err)
		}
	}
	return nil
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func roomPath(roomID int64, action string) string {
	return "/event/room/" + strconv.FormatInt(roomID, 10) + "/" + action
}
