package bridge

import (
	"context"
	stdhttp "net/http"

	lkauth "github.com/livekit/protocol/auth"
	lkproto "github.com/livekit/protocol/livekit"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/callengine/livekit"
)

// WebhookHandler receives LiveKit server webhooks and feeds them to the
// widgets showing the event's room.
type WebhookHandler struct {
	hub      *Hub
	provider lkauth.KeyProvider
	log      *zerolog.Logger
}

// NewWebhookHandler builds the LiveKit webhook endpoint.
func NewWebhookHandler(hub *Hub, provider lkauth.KeyProvider, logger *zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{hub: hub, provider: provider, log: logger}
}

func (h *WebhookHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if r.Method != stdhttp.MethodPost {
		w.Header().Set("Allow", stdhttp.MethodPost)
		stdhttp.Error(w, "method not allowed", stdhttp.StatusMethodNotAllowed)
		return
	}

	ev, err := livekit.ReceiveWebhook(r, h.provider)
	if err != nil {
		h.log.Warn().Err(err).Msg("rejected livekit webhook")
		stdhttp.Error(w, "invalid webhook", stdhttp.StatusUnauthorized)
		return
	}

	delivered := h.dispatch(r.Context(), ev)
	h.log.Debug().
		Str("event", ev.GetEvent()).
		Str("room", livekit.RoomName(ev)).
		Int("widgets", delivered).
		Msg("livekit webhook dispatched")
	w.WriteHeader(stdhttp.StatusOK)
}

// dispatch translates ev once per attached widget, since whether the
// participant is local depends on the widget's identity. It returns how
// many widgets consumed the event.
func (h *WebhookHandler) dispatch(ctx context.Context, ev *lkproto.WebhookEvent) int {
	delivered := 0
	for _, pc := range h.hub.byEngineRoom(livekit.RoomName(ev)) {
		widget, identity := pc.attached()
		if widget == nil {
			continue
		}
		raw, ok := livekit.Translate(ev, identity)
		if !ok {
			continue
		}
		if widget.HandleRaw(context.WithoutCancel(ctx), raw) {
			delivered++
		}
	}
	return delivered
}
