package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// CapacityReading is a participant count and limit for a room.
// MaxParticipants of 0 means the limit is unknown.
type CapacityReading struct {
	CurrentParticipants int
	MaxParticipants     int
}

// Percentage returns current/max*100, or 0 when max is unknown.
func (r CapacityReading) Percentage() float64 {
	if r.MaxParticipants <= 0 {
		return 0
	}
	return float64(r.CurrentParticipants) / float64(r.MaxParticipants) * 100
}

// Renderer draws the participant count and capacity indicator.
// It is called with the reconciler locked and must not call back into it.
type Renderer interface {
	RenderCapacity(roomID int64, reading CapacityReading)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(roomID int64, reading CapacityReading)

// RenderCapacity calls f.
func (f RendererFunc) RenderCapacity(roomID int64, reading CapacityReading) {
	f(roomID, reading)
}

type roomCapacity struct {
	issued  uint64
	applied uint64
	reading CapacityReading
}

// CapacityReconciler merges backend participant counts into the rendered
// reading. Each request is tagged with a per-room sequence number when
// issued; a response whose number is not above the highest applied one
// is stale and dropped.
type CapacityReconciler struct {
	mu       sync.Mutex
	rooms    map[int64]*roomCapacity
	renderer Renderer
	log      *zerolog.Logger
}

// NewCapacityReconciler constructs a reconciler. renderer may be nil.
func NewCapacityReconciler(renderer Renderer, logger *zerolog.Logger) *CapacityReconciler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CapacityReconciler{
		rooms:    make(map[int64]*roomCapacity),
		renderer: renderer,
		log:      logger,
	}
}

func (c *CapacityReconciler) room(roomID int64) *roomCapacity {
	rc, ok := c.rooms[roomID]
	if !ok {
		rc = &roomCapacity{}
		c.rooms[roomID] = rc
	}
	return rc
}

// SetMax records the room limit. Negative values mean unknown.
func (c *CapacityReconciler) SetMax(roomID int64, maxParticipants int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room(roomID).reading.MaxParticipants = max(maxParticipants, 0)
}

// Issue returns the sequence number for a request about to be sent.
func (c *CapacityReconciler) Issue(roomID int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	rc := c.room(roomID)
	rc.issued++
	return rc.issued
}

// Apply records the count returned by request seq. It returns the
// resulting reading and whether it was accepted.
func (c *CapacityReconciler) Apply(roomID int64, seq uint64, current int) (CapacityReading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rc := c.room(roomID)
	if seq <= rc.applied {
		c.log.Debug().
			Int64("room_id", roomID).
			Uint64("seq", seq).
			Uint64("applied", rc.applied).
			Msg("stale capacity response discarded")
		return rc.reading, false
	}
	rc.applied = seq
	rc.reading.CurrentParticipants = max(current, 0)

	// Rendered under the lock so two accepted readings cannot be drawn
	// out of order.
	if c.renderer != nil {
		c.renderer.RenderCapacity(roomID, rc.reading)
	}
	return rc.reading, true
}

// Reading returns the currently rendered reading for a room.
func (c *CapacityReconciler) Reading(roomID int64) CapacityReading {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rc, ok := c.rooms[roomID]; ok {
		return rc.reading
	}
	return CapacityReading{}
}
