// Package stream pushes completed analysis reports to websocket subscribers.
// Every client receives every report; there is no per-section subscription,
// a report is one atomic snapshot.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO(origin): restrict once the deployment origin is known
		return true
	},
}

// Message is the wire envelope for hub-to-client traffic
type Message struct {
	Type  string                 `json:"type"`
	Data  *models.AnalysisReport `json:"data,omitempty"`
	Error string                 `json:"error,omitempty"`
	ID    string                 `json:"id,omitempty"`
}

// clientRequest is the wire envelope for client-to-hub traffic
type clientRequest struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Hub fans completed reports out to connected clients. It keeps the most
// recent report so a freshly connected client can ask for it without waiting
// for the next run.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	latest     atomic.Pointer[models.AnalysisReport]
	nextID     atomic.Uint64
	log        *logger.Logger
}

// NewHub creates a hub; call Run before Publish or HandleWebSocket
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        logger.GetLogger("stream.hub"),
	}
}

// Run owns the client set until ctx is canceled
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("report stream hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("report stream hub shutting down")
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			// Unblocks clients still trying to register or unregister.
			close(h.done)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.log.Infof("client %s connected", c.id)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Infof("client %s disconnected", c.id)
			}

		case payload := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- payload:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients, c)
					close(c.send)
					h.log.Warnf("client %s dropped, send buffer full", c.id)
				}
			}
		}
	}
}

// Publish broadcasts a completed report to every connected client
func (h *Hub) Publish(report *models.AnalysisReport) error {
	h.latest.Store(report)
	payload, err := json.Marshal(Message{Type: "report", Data: report})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn("broadcast queue full, report dropped from stream")
	}
	return nil
}

// Latest returns the most recently published report, or nil
func (h *Hub) Latest() *models.AnalysisReport {
	return h.latest.Load()
}

// HandleWebSocket upgrades the connection and registers the client
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade failed: %v", err)
		return
	}
	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 16),
		id:   fmt.Sprintf("client-%d", h.nextID.Add(1)),
	}
	if !h.add(c) {
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// add registers c, reporting false when the hub has already shut down
func (h *Hub) add(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// drop unregisters c; safe to call after the hub has shut down
func (h *Hub) drop(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("client %s read error: %v", c.id, err)
			}
			return
		}
		c.handleRequest(data)
	}
}

func (c *client) handleRequest(data []byte) {
	var req clientRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(Message{Type: "error", Error: "invalid message format"})
		return
	}
	switch req.Type {
	case "latest":
		if report := c.hub.Latest(); report != nil {
			c.reply(Message{Type: "report", Data: report, ID: req.ID})
		} else {
			c.reply(Message{Type: "error", Error: "no report available yet", ID: req.ID})
		}
	case "ping":
		c.reply(Message{Type: "pong", ID: req.ID})
	default:
		c.reply(Message{Type: "error", Error: "unknown message type", ID: req.ID})
	}
}

func (c *client) reply(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
