package ai

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lab1702/fleetmind/game"
)

// Handler consumes one inbound message during an endpoint drain.
type Handler func(msg Message)

// Endpoint is one agent's mailbox pair. Messages queue until the
// processing accumulator fills, then drain in arrival order. Full
// queues drop new messages rather than block the tick.
type Endpoint struct {
	agentID uuid.UUID
	hub     *Hub
	cfg     EndpointConfig
	clock   func() float64
	handler Handler

	inbound  chan Message
	outbound chan Message

	mu      sync.Mutex
	history []Message
	accum   float64
	dropped int
}

func NewEndpoint(agentID uuid.UUID, hub *Hub, cfg EndpointConfig, clock func() float64, handler Handler) *Endpoint {
	if clock == nil {
		clock = func() float64 { return 0 }
	}
	return &Endpoint{
		agentID:  agentID,
		hub:      hub,
		cfg:      cfg,
		clock:    clock,
		handler:  handler,
		inbound:  make(chan Message, cfg.QueueSize),
		outbound: make(chan Message, cfg.QueueSize),
	}
}

func (e *Endpoint) AgentID() uuid.UUID {
	return e.agentID
}

// Send queues an outbound message. The sender id and timestamp are
// stamped here. Returns false if the queue was full.
func (e *Endpoint) Send(msg Message) bool {
	msg.Sender = e.agentID
	msg.Timestamp = e.clock()
	select {
	case e.outbound <- msg:
		return true
	default:
		e.mu.Lock()
		e.dropped++
		e.mu.Unlock()
		return false
	}
}

// SendBroadcast queues a range-limited broadcast originating at pos.
func (e *Endpoint) SendBroadcast(t MessageType, pos game.Vec3, prio Priority, p Payload) bool {
	return e.Send(Message{
		Type:      t,
		Position:  pos,
		Payload:   p,
		Broadcast: true,
		Priority:  prio,
	})
}

// SendTo queues a directed message to one agent, range unlimited.
func (e *Endpoint) SendTo(target uuid.UUID, t MessageType, pos game.Vec3, prio Priority, p Payload) bool {
	return e.Send(Message{
		Type:     t,
		Target:   target,
		Position: pos,
		Payload:  p,
		Priority: prio,
	})
}

// deliver places an inbound message without blocking. Called by the hub.
func (e *Endpoint) deliver(msg Message) bool {
	select {
	case e.inbound <- msg:
		return true
	default:
		e.mu.Lock()
		e.dropped++
		e.mu.Unlock()
		return false
	}
}

// Update advances the processing accumulator and drains both queues
// each time it crosses the processing interval.
func (e *Endpoint) Update(dt float64) {
	e.accum += dt
	for e.accum >= e.cfg.ProcessingInterval {
		e.accum -= e.cfg.ProcessingInterval
		e.drainInbound()
		e.drainOutbound()
	}
}

func (e *Endpoint) drainInbound() {
	for {
		select {
		case msg := <-e.inbound:
			e.dispatch(msg)
			e.recordHistory(msg)
			postEvent(NotifyMessageReceived, MessageEvent{
				Type:      msg.Type.String(),
				Sender:    msg.Sender.String(),
				Target:    e.agentID.String(),
				Broadcast: msg.Broadcast,
			})
		default:
			return
		}
	}
}

func (e *Endpoint) drainOutbound() {
	for {
		select {
		case msg := <-e.outbound:
			e.hub.Route(msg)
			event := MessageEvent{
				Type:      msg.Type.String(),
				Sender:    msg.Sender.String(),
				Broadcast: msg.Broadcast,
			}
			if msg.Target != uuid.Nil {
				event.Target = msg.Target.String()
			}
			postEvent(NotifyMessageSent, event)
		default:
			return
		}
	}
}

// dispatch guards the handler so one bad message cannot take down the
// tick loop.
func (e *Endpoint) dispatch(msg Message) {
	if e.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warn("message handler panic", "agent", e.agentID, "type", msg.Type, "err", r)
		}
	}()
	e.handler(msg)
}

func (e *Endpoint) recordHistory(msg Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, msg)
	if len(e.history) > e.cfg.HistorySize {
		e.history = e.history[len(e.history)-e.cfg.HistorySize:]
	}
}

// History returns a copy of the processed-message history, oldest first.
func (e *Endpoint) History() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.history))
	copy(out, e.history)
	return out
}

// Pending returns the count of queued inbound messages.
func (e *Endpoint) Pending() int {
	return len(e.inbound)
}

// Dropped returns the count of messages lost to full queues.
func (e *Endpoint) Dropped() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}
