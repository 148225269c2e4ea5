package server

import (
	"sync"

	notify "github.com/bitly/go-notify"
	"github.com/charmbracelet/log"
	"github.com/lab1702/fleetmind/ai"
)

const eventBufferSize = 64

// eventChannels maps engine notification channels to the event types
// streamed to monitoring clients.
var eventChannels = map[string]string{
	ai.NotifyMessageSent:     "message_sent",
	ai.NotifyMessageReceived: "message_received",
	ai.NotifyAgentSpawned:    "agent_spawned",
	ai.NotifyAgentDestroyed:  "agent_destroyed",
	ai.NotifyTierChanged:     "tier_changed",
}

// eventRelay subscribes to the engine's notification channels and
// forwards everything to connected clients. Slow clients drop events
// rather than stall the engine.
type eventRelay struct {
	server *Server
	mu     sync.Mutex
	chans  map[string]chan interface{}
	done   chan struct{}
}

func newEventRelay(s *Server) *eventRelay {
	return &eventRelay{
		server: s,
		chans:  make(map[string]chan interface{}),
		done:   make(chan struct{}),
	}
}

// Start subscribes to every engine channel and begins forwarding.
func (r *eventRelay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel, eventType := range eventChannels {
		ch := make(chan interface{}, eventBufferSize)
		notify.Start(channel, ch)
		r.chans[channel] = ch
		go r.pump(eventType, ch)
	}
}

func (r *eventRelay) pump(eventType string, ch chan interface{}) {
	for {
		select {
		case event := <-ch:
			r.server.publish(ServerMessage{
				Type: "event",
				Data: map[string]interface{}{
					"event":   eventType,
					"payload": event,
				},
			})
		case <-r.done:
			return
		}
	}
}

// Stop unsubscribes from every channel and halts the pumps.
func (r *eventRelay) Stop() {
	close(r.done)

	r.mu.Lock()
	defer r.mu.Unlock()
	for channel, ch := range r.chans {
		if err := notify.Stop(channel, ch); err != nil {
			log.Debug("event unsubscribe failed", "channel", channel, "err", err)
		}
	}
	r.chans = make(map[string]chan interface{})
}
