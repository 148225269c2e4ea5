package server

import (
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lab1702/fleetmind/ai"
	"github.com/lab1702/fleetmind/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	maxMessageSize = 4096
)

// Client represents a connected monitoring session
type Client struct {
	ID     int
	conn   *websocket.Conn
	send   chan ServerMessage
	server *Server
}

// readPump handles incoming messages from the client
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("websocket read failed", "client", c.ID, "err", err)
			}
			break
		}

		c.handleMessage(msg)
	}
}

// writePump sends messages to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes a message from the client
func (c *Client) handleMessage(msg ClientMessage) {
	// Recover from any panic to prevent disconnection
	defer func() {
		if r := recover(); r != nil {
			log.Warn("panic in client message handler", "client", c.ID, "type", msg.Type, "recovered", r)
		}
	}()

	switch msg.Type {
	case MsgTypeSetDifficulty:
		c.handleSetDifficulty(msg.Data)
	case MsgTypeManeuver:
		c.handleManeuver(msg.Data)
	case MsgTypeFormation:
		c.handleFormation(msg.Data)
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

func (c *Client) handleSetDifficulty(data json.RawMessage) {
	var req struct {
		Level string `json:"level"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("invalid difficulty request")
		return
	}
	level, err := ai.ParseLevel(req.Level)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.server.director.Controller().SetDifficulty(level)
}

func (c *Client) handleManeuver(data json.RawMessage) {
	var req struct {
		Maneuver string    `json:"maneuver"`
		Position game.Vec3 `json:"position"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("invalid maneuver request")
		return
	}
	m, err := ai.ParseManeuver(req.Maneuver)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.server.director.OrderManeuver(m, req.Position)
}

func (c *Client) handleFormation(data json.RawMessage) {
	var req struct {
		Type        string    `json:"type"`
		Destination game.Vec3 `json:"destination"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("invalid formation request")
		return
	}
	ft, err := ai.ParseFormationType(req.Type)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.server.director.OrderFormation(ft, req.Destination)
}

// sendError pushes an error message without blocking the caller.
func (c *Client) sendError(text string) {
	select {
	case c.send <- ServerMessage{Type: MsgTypeError, Data: map[string]string{"message": text}}:
	default:
	}
}
