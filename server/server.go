package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/lab1702/fleetmind/ai"
	"github.com/lab1702/fleetmind/game"
)

// isValidOrigin checks if the origin is allowed to connect
func isValidOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// No origin header - could be a non-browser client
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		log.Warn("invalid origin URL", "origin", origin)
		return false
	}

	// Allow same-origin connections
	if r.Host == originURL.Host {
		return true
	}

	// Allow localhost connections for development
	if strings.HasPrefix(originURL.Host, "localhost:") ||
		strings.HasPrefix(originURL.Host, "127.0.0.1:") ||
		originURL.Host == "localhost" ||
		originURL.Host == "127.0.0.1" {
		return true
	}

	log.Warn("rejected websocket connection", "origin", origin)
	return false
}

var upgrader = websocket.Upgrader{
	CheckOrigin:       isValidOrigin,
	EnableCompression: true,
}

// Message types
const (
	MsgTypeState         = "state"
	MsgTypeError         = "error"
	MsgTypeSetDifficulty = "set_difficulty"
	MsgTypeManeuver      = "maneuver"
	MsgTypeFormation     = "formation"
)

// Tick cadence of the hosted simulation.
const (
	tickInterval = 100 * time.Millisecond
	tickSeconds  = 0.1
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Server hosts the engine and streams its state to monitoring clients
type Server struct {
	mu         sync.RWMutex
	clients    map[int]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan ServerMessage
	nextID     int

	director *ai.Director
	world    *World
	events   *eventRelay

	done     chan struct{}
	stopOnce sync.Once
}

// NewServer builds the engine, the demo world around it, and the
// client hub.
func NewServer(cfg ai.Config) (*Server, error) {
	director, err := ai.NewDirector(cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{
		clients:    make(map[int]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan ServerMessage, 256),
		director:   director,
		done:       make(chan struct{}),
	}
	s.world = NewWorld(cfg, director)
	s.events = newEventRelay(s)
	return s, nil
}

// Director returns the hosted engine.
func (s *Server) Director() *ai.Director {
	return s.director
}

// World returns the hosted simulation.
func (s *Server) World() *World {
	return s.world
}

// Run starts the server main loop
func (s *Server) Run() {
	s.events.Start()
	go s.tickLoop()

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			log.Info("client connected", "id", client.ID)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				close(client.send)
			}
			s.mu.Unlock()
			log.Info("client disconnected", "id", client.ID)

		case message := <-s.broadcast:
			s.mu.RLock()
			for _, client := range s.clients {
				select {
				case client.send <- message:
				default:
					// Client send channel is full, skip this message
				}
			}
			s.mu.RUnlock()

		case <-s.done:
			return
		}
	}
}

// tickLoop drives the simulation and streams the state snapshot.
func (s *Server) tickLoop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.world.Step(tickSeconds)
			s.sendState()
		case <-s.done:
			return
		}
	}
}

// sendState broadcasts the current simulation state to all clients.
func (s *Server) sendState() {
	update := struct {
		Player PlayerStatus      `json:"player"`
		Engine ai.DirectorStatus `json:"engine"`
	}{
		Player: s.world.Player(),
		Engine: s.director.Snapshot(),
	}
	s.publish(ServerMessage{Type: MsgTypeState, Data: update})
}

// publish queues a message for broadcast without blocking the caller.
func (s *Server) publish(msg ServerMessage) {
	select {
	case s.broadcast <- msg:
	default:
	}
}

// Shutdown stops the background loops and drops all clients.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.events.Stop()

		s.mu.Lock()
		for _, client := range s.clients {
			client.conn.Close()
		}
		s.mu.Unlock()
	})
}

// Router mounts the HTTP surface.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/difficulty", s.HandleDifficulty).Methods(http.MethodPost)
	r.HandleFunc("/api/maneuver", s.HandleManeuver).Methods(http.MethodPost)
	r.HandleFunc("/api/formation", s.HandleFormation).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.HandleWebSocket)
	return r
}

// HandleHealth is the liveness probe.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleStatus returns the full monitoring snapshot.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	// Enable CORS for cross-origin requests
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	response := struct {
		Player PlayerStatus      `json:"player"`
		Engine ai.DirectorStatus `json:"engine"`
	}{
		Player: s.world.Player(),
		Engine: s.director.Snapshot(),
	}
	json.NewEncoder(w).Encode(response)
}

// HandleDifficulty forces a difficulty tier by name.
func (s *Server) HandleDifficulty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level string `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	level, err := ai.ParseLevel(req.Level)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.director.Controller().SetDifficulty(level)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"level": level.String(),
		"score": s.director.Controller().Score(),
	})
}

// HandleManeuver broadcasts a tactical order to every agent.
func (s *Server) HandleManeuver(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Maneuver string    `json:"maneuver"`
		Position game.Vec3 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m, err := ai.ParseManeuver(req.Maneuver)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.director.OrderManeuver(m, req.Position)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"maneuver": m.String(),
		"agents":   s.director.Count(),
	})
}

// HandleFormation orders every agent into a new formation.
func (s *Server) HandleFormation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type        string    `json:"type"`
		Destination game.Vec3 `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ft, err := ai.ParseFormationType(req.Type)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fid := s.director.OrderFormation(ft, req.Destination)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"formationId": fid.String(),
		"type":        ft.String(),
	})
}

// HandleWebSocket handles WebSocket connections
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}

	s.mu.Lock()
	clientID := s.nextID
	s.nextID++
	s.mu.Unlock()

	client := &Client{
		ID:     clientID,
		conn:   conn,
		send:   make(chan ServerMessage, 256),
		server: s,
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
