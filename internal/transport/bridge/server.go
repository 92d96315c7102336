package bridge

import (
	stdhttp "net/http"
	"time"
)

// NewServer builds the agent HTTP server: the page websocket at /ws, the
// LiveKit webhook when one is given, and a health probe.
func NewServer(addr string, handler *Handler, webhook *WebhookHandler, readHeaderTimeout time.Duration) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              addr,
		Handler:           NewMux(handler, webhook),
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// NewMux routes agent requests.
func NewMux(handler *Handler, webhook *WebhookHandler) *stdhttp.ServeMux {
	mux := stdhttp.NewServeMux()
	mux.HandleFunc("/health", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/ws", handler)
	if webhook != nil {
		mux.Handle("/webhook/livekit", webhook)
	}
	return mux
}
