package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vigilops/vigil-core/internal/metrics"
	"github.com/vigilops/vigil-core/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Hub fans engine events out to connected dashboard clients. It implements
// the services.StreamPublisher interface; a client that cannot keep up is
// dropped, never waited on.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	logger     logger.Logger
	mu         sync.RWMutex
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewHub(logger logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.ActiveStreamClients.Inc()
			h.logger.Info("Stream client connected", "remote", client.conn.RemoteAddr().String())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.ActiveStreamClients.Dec()
			}
			h.mu.Unlock()
			h.logger.Info("Stream client disconnected", "remote", client.conn.RemoteAddr().String())

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Publish broadcasts one engine event to every connected client. Satisfies
// services.StreamPublisher.
func (h *Hub) Publish(eventType string, data interface{}) {
	message := Message{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal stream message", "type", eventType, "error", err)
		return
	}

	h.mu.Lock()
	for client := range h.clients {
		select {
		case client.send <- messageBytes:
		default:
			// Client send buffer is full, disconnect
			delete(h.clients, client)
			close(client.send)
			metrics.ActiveStreamClients.Dec()
		}
	}
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin filtering is the CORS middleware's job upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades one HTTP request into a stream connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// The stream is one-way; reads only service control frames.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
