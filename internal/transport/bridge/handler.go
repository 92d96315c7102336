// Package bridge connects embedding pages to the tracking core. Each page
// holds a websocket, announces the room it shows, forwards conferencing
// engine events and receives engine configuration and capacity updates.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/callengine"
	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/proto"
	"github.com/vovakirdan/wirechat-presence/internal/utils"
)

const (
	defaultTeardownTimeout = 3 * time.Second
	identityPrefix         = "participant"

	errCodeInvalidMessage     = "invalid_message"
	errCodeUnsupportedVersion = "unsupported_version"
)

// errWidgetAborted ends a connection whose widget could not be built.
var errWidgetAborted = errors.New("widget aborted")

// Tracking groups the tracking core components shared by all pages.
type Tracking struct {
	Capacity *core.CapacityReconciler
	Tracker  *core.PresenceTracker
	Reporter *core.ActivityReporter
	Guard    *core.UnloadGuard
}

// Options tunes the page bridge.
type Options struct {
	MaxMessageBytes int64
	TeardownTimeout time.Duration
	// OriginPatterns restricts page origins. Empty accepts any origin.
	OriginPatterns []string

	StartAudioMuted bool
	StartVideoMuted bool
}

// Handler upgrades page connections and drives one widget per page.
type Handler struct {
	hub      *Hub
	engine   callengine.Engine
	tracking Tracking
	opts     Options
	log      *zerolog.Logger
}

// NewHandler builds the page websocket handler.
func NewHandler(hub *Hub, engine callengine.Engine, tracking Tracking, opts Options, logger *zerolog.Logger) *Handler {
	if opts.TeardownTimeout <= 0 {
		opts.TeardownTimeout = defaultTeardownTimeout
	}
	return &Handler{
		hub:      hub,
		engine:   engine,
		tracking: tracking,
		opts:     opts,
		log:      logger,
	}
}

func (h *Handler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: len(h.opts.OriginPatterns) == 0,
		OriginPatterns:     h.opts.OriginPatterns,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}

	pc := newPageConn(utils.NewIdentity("conn"))
	h.hub.add(pc)
	defer h.hub.remove(pc)
	// A closed page is a torn down page.
	defer h.teardown(pc)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, pc)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, pc)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if errors.Is(err, errWidgetAborted) {
		conn.Close(websocket.StatusTryAgainLater, "engine unavailable")
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", pc.id).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, pc *pageConn) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", pc.id).Msg("read ws inbound")
			return err
		}

		protoErr, err := h.dispatch(ctx, pc, inbound)
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
		}
		if err != nil {
			return err
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, pc *pageConn) error {
	for {
		select {
		case msg := <-pc.out:
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				h.log.Error().Err(err).Str("conn_id", pc.id).Msg("write ws message")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, pc *pageConn, inbound proto.Inbound) (*proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeAttach:
		return h.attach(ctx, pc, inbound.Data)
	case proto.InboundTypeEngineEvent:
		return h.engineEvent(ctx, pc, inbound.Data), nil
	case proto.InboundTypeLeave:
		return h.leave(ctx, pc, inbound.Data), nil
	default:
		return &proto.Error{Code: errCodeInvalidMessage, Msg: "unknown message type"}, nil
	}
}

func (h *Handler) attach(ctx context.Context, pc *pageConn, raw json.RawMessage) (*proto.Error, error) {
	if w, _ := pc.attached(); w != nil {
		return &proto.Error{Code: core.ErrCodeAlreadyAttached, Msg: "page already attached to a room"}, nil
	}

	var data proto.AttachData
	if err := json.Unmarshal(raw, &data); err != nil {
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid attach payload"}, nil
	}
	if data.Protocol != 0 && data.Protocol != proto.ProtocolVersion {
		return &proto.Error{
			Code: errCodeUnsupportedVersion,
			Msg:  fmt.Sprintf("protocol %d not supported, expected %d", data.Protocol, proto.ProtocolVersion),
		}, nil
	}

	session, err := core.NewSession(data.RoomID, data.UserName)
	if err != nil {
		return &proto.Error{Code: core.ErrCodeInvalidRoom, Msg: err.Error()}, nil
	}

	engineRoom := data.RoomName
	if engineRoom == "" {
		engineRoom = fmt.Sprintf("room-%d", data.RoomID)
	}
	opts := callengine.DefaultOptions(engineRoom, session.DisplayName, utils.NewIdentity(identityPrefix))
	opts.StartAudioMuted = h.opts.StartAudioMuted
	opts.StartVideoMuted = h.opts.StartVideoMuted

	info, err := h.engine.Prepare(ctx, opts)
	if err != nil {
		h.log.Warn().Err(err).Int64("room_id", data.RoomID).Str("engine", h.engine.Kind()).Msg("engine unavailable, widget aborted")
		return &proto.Error{Code: core.ErrCodeEngineUnavailable, Msg: "conferencing engine unavailable"}, errWidgetAborted
	}

	if data.MaxParticipants > 0 {
		h.tracking.Capacity.SetMax(data.RoomID, data.MaxParticipants)
	}
	widget := core.NewWidget(session, h.tracking.Tracker, h.tracking.Reporter, h.tracking.Guard, h.log)

	pc.mu.Lock()
	pc.widget = widget
	pc.engineRoom = info.RoomName
	pc.identity = info.Identity
	pc.mu.Unlock()

	h.log.Info().
		Str("conn_id", pc.id).
		Int64("room_id", data.RoomID).
		Str("engine_room", info.RoomName).
		Str("display_name", session.DisplayName).
		Msg("widget attached")

	pc.send(proto.Outbound{
		Type: proto.OutboundTypeEngineConfig,
		Data: proto.EngineConfig{
			Engine:      info.Engine,
			URL:         info.URL,
			Token:       info.Token,
			RoomName:    info.RoomName,
			Identity:    info.Identity,
			DisplayName: session.DisplayName,
			Options:     info.Config,
		},
	})
	if reading := h.tracking.Capacity.Reading(data.RoomID); reading.MaxParticipants > 0 {
		pc.send(capacityMessage(data.RoomID, reading))
	}
	return nil, nil
}

func (h *Handler) engineEvent(ctx context.Context, pc *pageConn, raw json.RawMessage) *proto.Error {
	widget, _ := pc.attached()
	if widget == nil {
		return &proto.Error{Code: core.ErrCodeNotAttached, Msg: "attach before sending engine events"}
	}

	var data proto.EngineEventData
	if err := json.Unmarshal(raw, &data); err != nil || data.Name == "" {
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid engine event"}
	}

	// Tracking outlives the page connection.
	widget.HandleRaw(context.WithoutCancel(ctx), core.RawEvent{Name: data.Name, Payload: data.Payload})
	return nil
}

func (h *Handler) leave(ctx context.Context, pc *pageConn, raw json.RawMessage) *proto.Error {
	widget, _ := pc.attached()
	if widget == nil {
		return &proto.Error{Code: core.ErrCodeNotAttached, Msg: "attach before leaving"}
	}

	var data proto.LeaveData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid leave payload"}
		}
	}

	if _, err := widget.Leave(context.WithoutCancel(ctx), data.Reason); err != nil {
		h.log.Warn().Err(err).Str("conn_id", pc.id).Msg("explicit leave failed")
	}
	return nil
}

func (h *Handler) teardown(pc *pageConn) {
	widget, _ := pc.attached()
	if widget == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.TeardownTimeout)
	defer cancel()

	widget.Teardown(ctx)
	widget.Detach()
	h.log.Info().Str("conn_id", pc.id).Int64("room_id", widget.Session.RoomID).Msg("widget detached")
}
