package bridge

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/proto"
)

const outboundBuffer = 16

// pageConn is one attached page: its outbound queue and, once attached,
// its widget and engine identity.
type pageConn struct {
	id  string
	out chan proto.Outbound

	mu         sync.Mutex
	widget     *core.Widget
	engineRoom string
	identity   string
}

func newPageConn(id string) *pageConn {
	return &pageConn{id: id, out: make(chan proto.Outbound, outboundBuffer)}
}

func (c *pageConn) attached() (*core.Widget, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.widget, c.identity
}

// send queues msg without blocking. It reports false when the queue is full.
func (c *pageConn) send(msg proto.Outbound) bool {
	select {
	case c.out <- msg:
		return true
	default:
		return false
	}
}

// Hub tracks attached pages by room. It implements core.Renderer by
// pushing capacity readings to every page showing the room.
type Hub struct {
	mu    sync.RWMutex
	conns map[*pageConn]struct{}
	log   *zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		conns: make(map[*pageConn]struct{}),
		log:   logger,
	}
}

func (h *Hub) add(c *pageConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) remove(c *pageConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// Attached returns the number of pages with an attached widget.
func (h *Hub) Attached() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.conns {
		if w, _ := c.attached(); w != nil {
			n++
		}
	}
	return n
}

// byEngineRoom returns the attached pages showing an engine room.
func (h *Hub) byEngineRoom(name string) []*pageConn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*pageConn
	for c := range h.conns {
		c.mu.Lock()
		match := c.widget != nil && c.engineRoom == name
		c.mu.Unlock()
		if match {
			out = append(out, c)
		}
	}
	return out
}

// RenderCapacity implements core.Renderer. It runs with the capacity
// reconciler locked, so sends never block: a page whose queue is full
// misses the update.
func (h *Hub) RenderCapacity(roomID int64, reading core.CapacityReading) {
	msg := capacityMessage(roomID, reading)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		c.mu.Lock()
		match := c.widget != nil && c.widget.Session.RoomID == roomID
		c.mu.Unlock()
		if match && !c.send(msg) {
			h.log.Warn().Str("conn_id", c.id).Int64("room_id", roomID).Msg("capacity update dropped, page queue full")
		}
	}
}

func capacityMessage(roomID int64, reading core.CapacityReading) proto.Outbound {
	return proto.Outbound{
		Type: proto.OutboundTypeCapacity,
		Data: proto.CapacityData{
			RoomID:              roomID,
			CurrentParticipants: reading.CurrentParticipants,
			MaxParticipants:     reading.MaxParticipants,
			Percentage:          reading.Percentage(),
		},
	}
}
