package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// SourceWS tags spot prices obtained from the ticker feed.
const SourceWS = "coinbase_ws"

// TickerHandler is called for every ticker message of the subscribed product.
type TickerHandler func(domain.SpotPrice)

// subscribeCommand is the Coinbase exchange subscription request.
type subscribeCommand struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// tickerMessage is the subset of the ticker payload the client uses.
type tickerMessage struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Time      string `json:"time"`
	Message   string `json:"message"`
}

// TickerClient streams ticker updates for one product. It re-subscribes
// after every reconnect.
type TickerClient struct {
	wsURL   string
	product string
	conn    *websocket.Conn

	mu      sync.RWMutex
	writeMu sync.Mutex
	closed  bool

	handlers  []TickerHandler
	handlerMu sync.RWMutex

	// done is closed when the client is shut down.
	done chan struct{}
}

// NewTickerClient creates a ticker client.
//
// wsURL is the feed endpoint, e.g. "wss://ws-feed.exchange.coinbase.com".
func NewTickerClient(wsURL, product string) *TickerClient {
	return &TickerClient{
		wsURL:   wsURL,
		product: product,
		done:    make(chan struct{}),
	}
}

// OnTicker registers a handler for ticker updates.
func (w *TickerClient) OnTicker(h TickerHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Connect dials the feed and subscribes to the ticker channel.
func (w *TickerClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("coinbase/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("coinbase/ws: connect: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	cmd := subscribeCommand{
		Type:       "subscribe",
		ProductIDs: []string{w.product},
		Channels:   []string{"ticker"},
	}
	if err := w.write(conn, websocket.TextMessage, cmd); err != nil {
		conn.Close()
		return fmt.Errorf("coinbase/ws: subscribe: %w", err)
	}

	w.conn = conn

	go w.readLoop(conn)
	go w.pingLoop(conn)

	return nil
}

// Close shuts down the client. Pending reconnects are abandoned.
func (w *TickerClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn == nil {
		return nil
	}

	w.writeMu.Lock()
	_ = w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	w.writeMu.Unlock()

	err := w.conn.Close()
	w.conn = nil
	return err
}

// Done is closed once Close has been called.
func (w *TickerClient) Done() <-chan struct{} { return w.done }

// write serialises writers; gorilla allows only one at a time.
func (w *TickerClient) write(conn *websocket.Conn, msgType int, v any) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if v == nil {
		return conn.WriteMessage(msgType, nil)
	}
	return conn.WriteJSON(v)
}

// readLoop reads until the connection fails and then reconnects.
func (w *TickerClient) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}
			w.reconnect()
			return
		}

		w.handleMessage(message)
	}
}

// pingLoop keeps conn alive until it fails or the client closes.
func (w *TickerClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if err := w.write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (w *TickerClient) handleMessage(raw []byte) {
	spot, ok, err := ParseTicker(raw, w.product)
	if err != nil || !ok {
		return
	}

	w.handlerMu.RLock()
	handlers := w.handlers
	w.handlerMu.RUnlock()

	for _, h := range handlers {
		h(spot)
	}
}

// ParseTicker decodes a feed message. ok is false for messages that are not
// tickers of product; subscription acks and heartbeats fall in that group.
func ParseTicker(raw []byte, product string) (spot domain.SpotPrice, ok bool, err error) {
	var msg tickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.SpotPrice{}, false, fmt.Errorf("coinbase/ws: decode: %w", err)
	}

	switch msg.Type {
	case "ticker":
	case "error":
		return domain.SpotPrice{}, false, fmt.Errorf("coinbase/ws: feed error: %s", msg.Message)
	default:
		return domain.SpotPrice{}, false, nil
	}
	if !strings.EqualFold(msg.ProductID, product) {
		return domain.SpotPrice{}, false, nil
	}

	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return domain.SpotPrice{}, false, fmt.Errorf("coinbase/ws: parse price %q: %w", msg.Price, err)
	}
	if !price.IsPositive() {
		return domain.SpotPrice{}, false, fmt.Errorf("coinbase/ws: %w: %s", domain.ErrInvalidPrice, price)
	}

	at := time.Now().UTC()
	if msg.Time != "" {
		if t, err := time.Parse(time.RFC3339Nano, msg.Time); err == nil {
			at = t.UTC()
		}
	}

	return domain.SpotPrice{PriceUSD: price, AsOf: at, Source: SourceWS}, true, nil
}

// NewReconnectBackoff returns the exponential backoff used between ticker
// connection attempts. It never gives up; callers stop it through a context
// or their own shutdown signal.
func NewReconnectBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = reconnectDelay
	b.MaxInterval = maxReconnectDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the client is closed.
func (w *TickerClient) reconnect() {
	b := NewReconnectBackoff()

	for {
		select {
		case <-w.done:
			return
		case <-time.After(b.NextBackOff()):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}
	}
}
