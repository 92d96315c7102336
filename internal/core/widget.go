package core

import (
	"context"

	"github.com/rs/zerolog"
)

// Widget ties one RoomSession to the tracking components: join/leave
// engine events drive the PresenceTracker, every event goes to the
// ActivityReporter, and the UnloadGuard covers teardown.
type Widget struct {
	Session *RoomSession

	normalizer Normalizer
	tracker    *PresenceTracker
	reporter   *ActivityReporter
	guard      *UnloadGuard
	log        *zerolog.Logger
}

// NewWidget builds a widget and registers its teardown handler.
func NewWidget(s *RoomSession, tracker *PresenceTracker, reporter *ActivityReporter, guard *UnloadGuard, logger *zerolog.Logger) *Widget {
	l := logger.With().Int64("room_id", s.RoomID).Str("display_name", s.DisplayName).Logger()
	w := &Widget{
		Session:    s,
		normalizer: NewNormalizer(s),
		tracker:    tracker,
		reporter:   reporter,
		guard:      guard,
		log:        &l,
	}
	guard.Register(s)
	return w
}

// HandleRaw normalizes and dispatches a raw engine event. It returns
// false when the event is not one the tracker maps.
func (w *Widget) HandleRaw(ctx context.Context, raw RawEvent) bool {
	ev, ok := ParseEngineEvent(raw)
	if !ok {
		w.log.Debug().Str("event", raw.Name).Msg("engine event dropped")
		return false
	}
	w.Handle(ctx, ev)
	return true
}

// Handle dispatches a parsed engine event.
func (w *Widget) Handle(ctx context.Context, ev EngineEvent) {
	activity, ok := w.normalizer.Activity(ev)
	if !ok {
		return
	}

	switch ev.(type) {
	case ConferenceJoined:
		// Errors are logged by the tracker; the call goes on regardless.
		out, _ := w.tracker.Join(ctx, w.Session)
		if out.Requested {
			w.reporter.Report(activity)
		}
	case ConferenceLeft:
		out, _ := w.tracker.Leave(ctx, w.Session, "")
		if out.Requested {
			w.reporter.Report(activity)
		}
	default:
		w.reporter.Report(activity)
	}
}

// Join is the explicit join action.
func (w *Widget) Join(ctx context.Context) (Outcome, error) {
	out, err := w.tracker.Join(ctx, w.Session)
	if out.Requested {
		w.reporter.Report(NewActivityEvent(w.Session.RoomID, ActionJoin, "", w.Session.DisplayName, true, nil))
	}
	return out, err
}

// Leave is the explicit leave action (UI button, error handler).
func (w *Widget) Leave(ctx context.Context, reason string) (Outcome, error) {
	out, err := w.tracker.Leave(ctx, w.Session, reason)
	if out.Requested {
		var meta map[string]any
		if reason != "" {
			meta = map[string]any{MetaReason: reason}
		}
		w.reporter.Report(NewActivityEvent(w.Session.RoomID, ActionLeave, "", w.Session.DisplayName, true, meta))
	}
	return out, err
}

// Teardown fires the unload handler for this widget's session.
func (w *Widget) Teardown(ctx context.Context) {
	w.guard.Fire(ctx, w.Session)
}

// Detach drops the unload handler once the widget is gone.
func (w *Widget) Detach() {
	w.guard.Forget(w.Session)
}
