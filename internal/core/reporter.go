package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultReportTimeout = 5 * time.Second

// ActivityReporter ships activity events to the backend without making
// callers wait. Each Report performs exactly one send; a failed send is
// logged and the event is dropped. Two events reported in sequence may
// reach the backend in either order.
type ActivityReporter struct {
	backend Backend
	timeout time.Duration
	log     *zerolog.Logger

	mu       sync.Mutex
	inflight int
	// drained is closed when inflight drops back to zero.
	drained chan struct{}
}

// NewActivityReporter constructs a reporter. A zero timeout uses the default.
func NewActivityReporter(backend Backend, timeout time.Duration, logger *zerolog.Logger) *ActivityReporter {
	if timeout <= 0 {
		timeout = defaultReportTimeout
	}
	return &ActivityReporter{
		backend: backend,
		timeout: timeout,
		log:     logger,
	}
}

// Report sends ev in the background.
func (r *ActivityReporter) Report(ev ActivityEvent) {
	r.begin()
	go func() {
		defer r.end()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.backend.RecordActivity(ctx, ev); err != nil {
			r.log.Warn().
				Err(err).
				Int64("room_id", ev.RoomID).
				Str("action", string(ev.Action)).
				Msg("activity record dropped")
			return
		}
		r.log.Debug().Int64("room_id", ev.RoomID).Str("action", string(ev.Action)).Msg("activity recorded")
	}()
}

func (r *ActivityReporter) begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight == 0 {
		r.drained = make(chan struct{})
	}
	r.inflight++
}

func (r *ActivityReporter) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight--
	if r.inflight == 0 {
		close(r.drained)
		r.drained = nil
	}
}

// Flush waits until no send is in flight or ctx is done. Reports made
// while Flush waits are waited for too. Nothing is retried.
func (r *ActivityReporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	drained := r.drained
	r.mu.Unlock()
	if drained == nil {
		return nil
	}

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
