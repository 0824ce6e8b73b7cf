package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tahcohcat/gamify-web/internal/auth"
	"github.com/tahcohcat/gamify-web/internal/logger"
	"github.com/tahcohcat/gamify-web/internal/progression"
)

// TypeProgression tags messages carrying a progression.Result.
const TypeProgression = "progression"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message is the envelope for every server push.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outbound struct {
	userID int
	data   []byte
}

// Hub fans progression results out to every open connection of the user
// who produced them.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[int]map[*Client]bool
	publish    chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu     sync.Mutex
	counts map[int]int
}

type Client struct {
	hub    *Hub
	userID int
	conn   *websocket.Conn
	send   chan []byte
}

// NewHub creates a hub accepting upgrades from allowedOrigins. An empty list
// or "*" accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		publish:    make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[int]map[*Client]bool),
		counts:     make(map[int]int),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin.
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// Run owns the client registry until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	log := logger.New()
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.send)
				}
			}
			h.clients = make(map[int]map[*Client]bool)
			h.setCount(0, 0)
			return

		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.userID] = set
			}
			set[client] = true
			h.setCount(client.userID, len(set))
			log.With("user_id", client.userID).Debug("Client connected")

		case client := <-h.unregister:
			h.remove(client)
			log.With("user_id", client.userID).Debug("Client disconnected")

		case msg := <-h.publish:
			for client := range h.clients[msg.userID] {
				select {
				case client.send <- msg.data:
				default:
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	set := h.clients[client.userID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	h.setCount(client.userID, len(set))
}

func (h *Hub) setCount(userID, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if userID == 0 {
		h.counts = make(map[int]int)
		return
	}
	if n == 0 {
		delete(h.counts, userID)
		return
	}
	h.counts[userID] = n
}

// Connections returns how many sockets userID has open.
func (h *Hub) Connections(userID int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[userID]
}

// Publish queues result for the user's connections. It never blocks the
// caller; when the queue is full the push is dropped and clients pick up
// the state on their next request.
func (h *Hub) Publish(userID int, result progression.Result) {
	payload, err := json.Marshal(result)
	if err != nil {
		logger.New().WithError(err).Error("Failed to encode progression result")
		return
	}
	data, err := json.Marshal(Message{Type: TypeProgression, Payload: payload})
	if err != nil {
		logger.New().WithError(err).Error("Failed to encode push message")
		return
	}

	select {
	case h.publish <- outbound{userID: userID, data: data}:
	default:
		logger.New().With("user_id", userID).Warn("Push queue full, dropping progression update")
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.New().WithError(err).Warn("WebSocket read error")
			}
			break
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
				logger.New().WithError(err).Warn("WebSocket write error")
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

// ServeHTTP upgrades an authenticated request. The user must already be
// resolved into the request context.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.New().WithError(err).Warn("WebSocket upgrade error")
		return
	}

	client := &Client{hub: h, userID: userID, conn: conn, send: make(chan []byte, 256)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
