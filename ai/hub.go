package ai

import (
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

// Point entries get a tiny box so the R-tree accepts them.
const pointHalfSize = 0.005

// agentEntry is one registered endpoint with its last known position.
type agentEntry struct {
	id       uuid.UUID
	endpoint *Endpoint
	pos      game.Vec3
	bounds   rtreego.Rect
}

func (e *agentEntry) Bounds() rtreego.Rect {
	return e.bounds
}

func pointBounds(pos game.Vec3) rtreego.Rect {
	bb, _ := rtreego.NewRect(
		rtreego.Point{pos.X - pointHalfSize, pos.Y - pointHalfSize, pos.Z - pointHalfSize},
		[]float64{pointHalfSize * 2, pointHalfSize * 2, pointHalfSize * 2},
	)
	return bb
}

func searchBounds(pos game.Vec3, r float64) rtreego.Rect {
	bb, _ := rtreego.NewRect(
		rtreego.Point{pos.X - r, pos.Y - r, pos.Z - r},
		[]float64{r * 2, r * 2, r * 2},
	)
	return bb
}

// Hub routes messages between registered agent endpoints. Broadcasts
// reach only endpoints within the configured range of the message
// origin; directed sends ignore range. The spatial index is rebuilt
// once per tick via Reindex, with a candidate box query followed by an
// exact distance check.
type Hub struct {
	mu     sync.Mutex
	rng    float64
	agents map[uuid.UUID]*agentEntry
	index  *rtreego.Rtree
	dirty  bool
}

func NewHub(broadcastRange float64) *Hub {
	return &Hub{
		rng:    broadcastRange,
		agents: make(map[uuid.UUID]*agentEntry),
		index:  rtreego.NewTree(3, 8, 16),
	}
}

// Range returns the broadcast radius.
func (h *Hub) Range() float64 {
	return h.rng
}

// Register adds an endpoint at pos. Re-registering an id replaces it.
func (h *Hub) Register(id uuid.UUID, ep *Endpoint, pos game.Vec3) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.agents[id] = &agentEntry{id: id, endpoint: ep, pos: pos, bounds: pointBounds(pos)}
	h.dirty = true
}

// Unregister removes an endpoint. Unknown ids are ignored.
func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.agents[id]; !ok {
		return
	}
	delete(h.agents, id)
	h.dirty = true
}

// UpdatePosition moves a registered endpoint. The index catches up on
// the next Reindex.
func (h *Hub) UpdatePosition(id uuid.UUID, pos game.Vec3) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.agents[id]
	if !ok {
		return
	}
	e.pos = pos
	e.bounds = pointBounds(pos)
	h.dirty = true
}

// Reindex rebuilds the spatial index from current positions. Call once
// per tick after positions are updated.
func (h *Hub) Reindex() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reindexLocked()
}

func (h *Hub) reindexLocked() {
	spatials := make([]rtreego.Spatial, 0, len(h.agents))
	for _, e := range h.agents {
		spatials = append(spatials, e)
	}
	h.index = rtreego.NewTree(3, 8, 16, spatials...)
	h.dirty = false
}

// Broadcast delivers msg to every endpoint within range of the message
// position, excluding the sender. Returns the number of endpoints that
// accepted it.
func (h *Hub) Broadcast(msg Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dirty {
		h.reindexLocked()
	}

	// Box query overshoots the sphere; check exact distance on each hit.
	candidates := h.index.SearchIntersect(searchBounds(msg.Position, h.rng))
	delivered := 0
	for _, s := range candidates {
		e := s.(*agentEntry)
		if e.id == msg.Sender {
			continue
		}
		if game.Distance(msg.Position, e.pos) > h.rng {
			continue
		}
		if e.endpoint.deliver(msg) {
			delivered++
		}
	}
	return delivered
}

// Send delivers msg to its target endpoint regardless of distance.
// Unknown targets are dropped without error.
func (h *Hub) Send(msg Message) bool {
	h.mu.Lock()
	e, ok := h.agents[msg.Target]
	h.mu.Unlock()
	if !ok {
		return false
	}
	return e.endpoint.deliver(msg)
}

// Route dispatches an outbound message by its broadcast flag.
func (h *Hub) Route(msg Message) int {
	if msg.Broadcast {
		return h.Broadcast(msg)
	}
	if h.Send(msg) {
		return 1
	}
	return 0
}

// Len returns the number of registered endpoints.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.agents)
}
