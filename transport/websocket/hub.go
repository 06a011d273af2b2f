// Package websocket implements the connection registry: the mapping between
// authenticated identities and live connections, and the group ("room")
// memberships used to scope broadcasts.
package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/memorymatch/server/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound buffer per client.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// Envelope is the wire frame for every message in both directions. Inbound
// frames may carry an ack id; the matching reply echoes it back.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   int64           `json:"ack,omitempty"`
}

// Handler consumes decoded client traffic. Both callbacks run on the
// client's read goroutine; implementations hand the work to their own loop.
type Handler interface {
	OnMessage(c *Client, event string, data json.RawMessage, ackID int64)
	OnDisconnect(c *Client)
}

// Client is one live connection.
type Client struct {
	// ID is the transport-level connection id, unique per connection.
	ID string

	hub  *Hub
	conn *websocket.Conn

	// sendMu orders enqueues against the channel close on teardown.
	sendMu sync.Mutex
	closed bool
	send   chan []byte

	// identity and groups are guarded by hub.mu.
	identity *engine.Identity
	groups   map[string]bool
}

// Hub maintains the set of active clients, their identities, and their
// group memberships.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[*Client]bool

	handler Handler
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[*Client]bool),
	}
}

// SetHandler wires the inbound traffic consumer. Must be called before the
// hub serves its first connection.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// ServeWS upgrades an HTTP request and runs the connection's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		groups: make(map[string]bool),
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("Client %s connected (total clients: %d)", c.ID, total)
}

// unregister removes the client from every group and from the registry,
// then notifies the handler so lobby and session cleanup can run. The
// identity stays readable on the client struct during the callback.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	for group := range c.groups {
		h.removeFromGroupLocked(c, group)
	}
	remaining := len(h.clients)
	h.mu.Unlock()

	c.sendMu.Lock()
	c.closed = true
	close(c.send)
	c.sendMu.Unlock()

	log.Printf("Client %s disconnected (remaining clients: %d)", c.ID, remaining)

	if h.handler != nil {
		h.handler.OnDisconnect(c)
	}
}

// ClientByID looks up a live connection.
func (h *Hub) ClientByID(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// ClientCount reports the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Connected reports whether the connection id is still registered.
func (h *Hub) Connected(id string) bool {
	_, ok := h.ClientByID(id)
	return ok
}

// AttachIdentity binds an authenticated identity to a connection.
func (h *Hub) AttachIdentity(c *Client, identity engine.Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.identity = &identity
}

// DetachIdentity clears the connection's identity.
func (h *Hub) DetachIdentity(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.identity = nil
}

// Identity returns the identity attached to the connection, or nil before
// login and after logout.
func (c *Client) Identity() *engine.Identity {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.identity
}

// IsOnline reports whether any live connection carries the given user id.
func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.identity != nil && c.identity.ID == userID {
			return true
		}
	}
	return false
}

// JoinGroup adds the connection to a broadcast group. Membership changes
// are visible to the next broadcast immediately.
func (h *Hub) JoinGroup(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]bool)
	}
	h.groups[group][c] = true
	c.groups[group] = true
}

// LeaveGroup removes the connection from a group. Unknown memberships are
// a no-op.
func (h *Hub) LeaveGroup(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromGroupLocked(c, group)
}

func (h *Hub) removeFromGroupLocked(c *Client, group string) {
	delete(c.groups, group)
	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// GroupSize returns the number of connections in a group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Broadcast sends an event to every member of a group.
func (h *Hub) Broadcast(group, event string, payload any) {
	data, err := marshalEnvelope(event, payload, 0)
	if err != nil {
		log.Printf("Failed to marshal broadcast %q: %v", event, err)
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.groups[group]))
	for c := range h.groups[group] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.enqueue(data, event)
	}
}

// BroadcastAll sends an event to every connected client.
func (h *Hub) BroadcastAll(event string, payload any) {
	data, err := marshalEnvelope(event, payload, 0)
	if err != nil {
		log.Printf("Failed to marshal broadcast %q: %v", event, err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.enqueue(data, event)
	}
}

// Emit sends an event to a single connection.
func (h *Hub) Emit(c *Client, event string, payload any) {
	data, err := marshalEnvelope(event, payload, 0)
	if err != nil {
		log.Printf("Failed to marshal emit %q: %v", event, err)
		return
	}
	c.enqueue(data, event)
}

// Ack replies to a request that carried an ack id.
func (h *Hub) Ack(c *Client, ackID int64, payload any) {
	if ackID == 0 {
		return
	}
	data, err := marshalEnvelope("ack", payload, ackID)
	if err != nil {
		log.Printf("Failed to marshal ack %d: %v", ackID, err)
		return
	}
	c.enqueue(data, "ack")
}

func marshalEnvelope(event string, payload any, ackID int64) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return json.Marshal(Envelope{Event: event, Data: raw, Ack: ackID})
}

// enqueue pushes a frame onto the client's send buffer, dropping it when
// the writer has fallen behind.
func (c *Client) enqueue(data []byte, event string) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("Client %s send buffer full, dropped %q", c.ID, event)
	}
}

// readPump pumps frames from the connection to the handler.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
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
				log.Printf("WebSocket error on %s: %v", c.ID, err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			log.Printf("Client %s sent a malformed frame, skipping", c.ID)
			continue
		}
		if c.hub.handler != nil {
			c.hub.handler.OnMessage(c, env.Event, env.Data, env.Ack)
		}
	}
}

// writePump pumps frames from the send buffer to the connection.
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
				// The hub closed the channel
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
