package relayserver

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// conn wraps one upgraded WebSocket connection with its subscriptions and
// a serialized writer, since gorilla's Conn forbids concurrent writes.
type conn struct {
	ws *websocket.Conn

	mu   sync.Mutex
	subs map[string]filter
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws, subs: make(map[string]filter)}
}

func (c *conn) subscribe(id string, f filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[id] = f
}

func (c *conn) unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, id)
}

// deliver sends e to every subscription on this connection whose filter
// matches, and reports how many it delivered to.
func (c *conn) deliver(e event) int {
	c.mu.Lock()
	var matched []string
	for id, f := range c.subs {
		if f.matches(e) {
			matched = append(matched, id)
		}
	}
	c.mu.Unlock()

	for _, id := range matched {
		frame, err := encodeEventFrame(id, e)
		if err != nil {
			continue
		}
		c.writeRaw(frame)
	}
	return len(matched)
}

func (c *conn) writeRaw(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Hub fans every published event out to every subscriber whose filter
// matches. It holds no event history: a subscriber only ever sees events
// published while it is connected.
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewHub returns an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{log: log.With("component", "relayserver"), conns: make(map[*conn]struct{})}
}

// Connections reports how many WebSocket connections are currently joined,
// for the connected-subscriber gauge.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) join(c *conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	ConnectedSubscribers.Inc()
}

func (h *Hub) leave(c *conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	ConnectedSubscribers.Dec()
}

// Serve drives one upgraded WebSocket connection until it errors or
// closes: it decodes EVENT/REQ/CLOSE frames, fans EVENT publishes out to
// every other matching subscriber, and tracks this connection's own
// subscriptions for REQ/CLOSE.
func (h *Hub) Serve(ws *websocket.Conn) {
	c := newConn(ws)
	h.join(c)
	defer func() {
		h.leave(c)
		_ = ws.Close()
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		verb, args, err := decodeClientFrame(raw)
		if err != nil {
			continue
		}
		switch verb {
		case "EVENT":
			h.handleEvent(c, args)
		case "REQ":
			h.handleReq(c, args)
		case "CLOSE":
			h.handleClose(c, args)
		}
	}
}

func (h *Hub) handleEvent(from *conn, args []json.RawMessage) {
	if len(args) < 1 {
		return
	}
	var e event
	if err := json.Unmarshal(args[0], &e); err != nil {
		return
	}
	h.broadcast(from, e)
}

func (h *Hub) handleReq(c *conn, args []json.RawMessage) {
	if len(args) < 2 {
		return
	}
	var subID string
	if err := json.Unmarshal(args[0], &subID); err != nil {
		return
	}
	var f filter
	if err := json.Unmarshal(args[1], &f); err != nil {
		return
	}
	c.subscribe(subID, f)
}

func (h *Hub) handleClose(c *conn, args []json.RawMessage) {
	if len(args) < 1 {
		return
	}
	var subID string
	if err := json.Unmarshal(args[0], &subID); err != nil {
		return
	}
	c.unsubscribe(subID)
}

// broadcast fans e out to every connection other than its publisher.
// EventsRelayedTotal counts every successful match-and-deliver, not just
// unique events, since a single event may legitimately match several
// subscriptions (multiple tabs subscribed to the same recipient).
func (h *Hub) broadcast(from *conn, e event) {
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		if c != from {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	var delivered int
	for _, c := range targets {
		delivered += c.deliver(e)
	}
	EventsRelayedTotal.Add(float64(delivered))
}
