// Package ws bridges the signal bus to browser WebSocket clients. Clients
// start subscribed to the spot and closes channels and may add a ledger
// channel, e.g. {"action":"subscribe","channels":["ledger:<userID>"]}.
// Wildcards are refused. A client that connects with ?user=<userID> is bound
// to that user and starts on its ledger channel.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// busChannels are the signal bus channels the hub listens on.
var busChannels = []string{
	domain.ChannelSpot,
	domain.ChannelCloses,
	domain.ChannelLedgerPrefix + "*",
}

// defaultSubscriptions are the channels every new client receives.
var defaultSubscriptions = []string{domain.ChannelSpot, domain.ChannelCloses}

// client represents a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	user string // bound user ID, empty when unbound
	subs map[string]bool
	mu   sync.RWMutex
}

// subscribeMsg is the JSON message a client sends to manage subscriptions.
type subscribeMsg struct {
	Action   string   `json:"action"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// Config captures runtime metadata sent to clients on connect.
type Config struct {
	Mode           string
	StartedAt      time.Time
	AllowedOrigins []string
}

// Hub manages connected WebSocket clients and fans bus messages out to the
// clients subscribed to each message's channel.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	done       chan struct{}
	bus        domain.SignalBus
	upgrader   websocket.Upgrader
	mu         sync.RWMutex
	logger     *slog.Logger
	mode       string
	startedAt  time.Time
}

// broadcastMsg carries a message along with its concrete channel.
type broadcastMsg struct {
	channel string
	data    []byte
}

// NewHub creates a hub that relays bus messages to WebSocket clients.
func NewHub(bus domain.SignalBus, logger *slog.Logger, cfg Config) *Hub {
	mode := strings.TrimSpace(strings.ToLower(cfg.Mode))
	if mode == "" {
		mode = "unknown"
	}
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		bus:        bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		logger:    logger.With(slog.String("component", "ws_hub")),
		mode:      mode,
		startedAt: startedAt,
	}
}

// originChecker allows every origin when none are configured.
func originChecker(origins []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(origins) == 0 || origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Run starts the hub's event loop and bus subscriptions. It returns when ctx
// is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range busChannels {
		go h.subscribeToChannel(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("ws: client connected",
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected",
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if !c.isSubscribed(msg.channel) {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					h.logger.Warn("ws: dropping message for slow client",
						slog.String("channel", msg.channel),
					)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// subscribeToChannel forwards one bus subscription into the broadcast loop.
// Pattern subscriptions are routed by the channel named in each envelope.
func (h *Hub) subscribeToChannel(ctx context.Context, channel string) {
	msgCh, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("ws: failed to subscribe to channel",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	h.logger.Info("ws: subscribed to channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("ws: channel subscription closed",
					slog.String("channel", channel),
				)
				return
			}
			select {
			case h.broadcast <- broadcastMsg{channel: routeChannel(channel, data), data: data}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// routeChannel returns the concrete channel of a bus message.
func routeChannel(subscribed string, data []byte) string {
	var evt struct {
		Channel string `json:"channel"`
	}
	if json.Unmarshal(data, &evt) == nil && evt.Channel != "" {
		return evt.Channel
	}
	return subscribed
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	var user string
	if v := r.URL.Query().Get("user"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			http.Error(w, "invalid user", http.StatusBadRequest)
			return
		}
		user = id.String()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		user: user,
		subs: make(map[string]bool),
	}
	for _, ch := range defaultSubscriptions {
		c.subs[ch] = true
	}
	if user != "" {
		c.subs[domain.ChannelLedgerPrefix+user] = true
	}

	c.sendHello()
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump reads subscription requests until the connection closes.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
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
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var sub subscribeMsg
		if json.Unmarshal(message, &sub) == nil && sub.Action != "" {
			if rejected := c.handleSubscription(sub); len(rejected) > 0 {
				c.sendRejected(rejected)
			}
		}
	}
}

// handleSubscription processes subscribe/unsubscribe requests from the client
// and returns the channels it refused to subscribe to.
func (c *client) handleSubscription(msg subscribeMsg) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rejected []string
	switch msg.Action {
	case "subscribe":
		for _, ch := range msg.Channels {
			if !c.mayJoin(ch) {
				rejected = append(rejected, ch)
				continue
			}
			c.subs[ch] = true
		}
	case "unsubscribe":
		for _, ch := range msg.Channels {
			delete(c.subs, ch)
		}
	}
	return rejected
}

// mayJoin reports whether the client may subscribe to channel: the shared
// price channels, or one concrete user's ledger channel (its own when bound).
func (c *client) mayJoin(channel string) bool {
	if channel == domain.ChannelSpot || channel == domain.ChannelCloses {
		return true
	}
	rest, ok := strings.CutPrefix(channel, domain.ChannelLedgerPrefix)
	if !ok {
		return false
	}
	id, err := uuid.Parse(rest)
	if err != nil || id.String() != rest {
		return false
	}
	return c.user == "" || c.user == rest
}

// sendRejected reports refused subscriptions to the client.
func (c *client) sendRejected(channels []string) {
	msg, err := json.Marshal(map[string]any{
		"type": "subscribe_rejected",
		"data": map[string]any{"channels": channels},
	})
	if err != nil {
		return
	}

	// send is closed by the hub under h.mu once the client is removed.
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// sendHello tells the client which mode the backend runs in and what it is
// subscribed to.
func (c *client) sendHello() {
	c.mu.RLock()
	subs := make([]string, 0, len(c.subs))
	for ch := range c.subs {
		subs = append(subs, ch)
	}
	c.mu.RUnlock()

	msg, err := json.Marshal(map[string]any{
		"type": "hello",
		"data": map[string]any{
			"mode":           c.hub.mode,
			"uptime_seconds": max(int64(time.Since(c.hub.startedAt).Seconds()), 0),
			"channels":       subs,
		},
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// isSubscribed reports whether the client receives channel.
func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel]
}

// writePump relays queued messages as text frames and pings periodically.
func (c *client) writePump() {
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
