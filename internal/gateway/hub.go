// Package gateway exposes generated signals to WebSocket clients. The Hub
// subscribes to the Redis Pub/Sub channels the store publishes on, keeps the
// latest signal per market:timeframe key, and fans messages out to connected
// clients with per-client filtering.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"

	"cryptosignals/internal/model"
)

const signalPattern = "pub:signal:*"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway is fronted by a reverse proxy; origin policy lives there.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub manages WebSocket clients and the Redis Pub/Sub fan-in.
type Hub struct {
	rdb *goredis.Client
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
}

type latestEntry struct {
	Signal *model.Signal
	Data   json.RawMessage
	TS     time.Time
}

// NewHub creates a Hub reading from the given Redis client.
func NewHub(rdb *goredis.Client, log *slog.Logger) *Hub {
	return &Hub{
		rdb:     rdb,
		log:     log,
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
	}
}

// Run subscribes to the signal Pub/Sub pattern and fans messages out.
// Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	pubsub := h.rdb.PSubscribe(ctx, signalPattern)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var sig model.Signal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				h.log.Warn("bad signal payload on pubsub",
					slog.String("channel", msg.Channel),
					slog.String("error", err.Error()))
				continue
			}
			h.Broadcast(&sig)
		}
	}
}

// Broadcast records the signal as latest for its key and sends it to every
// client whose filters match. Slow clients are skipped, never blocked on.
func (h *Hub) Broadcast(sig *model.Signal) {
	envelope, err := json.Marshal(map[string]interface{}{
		"type":   "signal",
		"key":    sig.Key(),
		"signal": sig,
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		h.log.Error("marshal signal envelope", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	h.latest[sig.Key()] = latestEntry{Signal: sig, Data: envelope, TS: time.Now().UTC()}
	for client := range h.clients {
		if !client.filters.matches(sig) {
			continue
		}
		select {
		case client.send <- envelope:
		default:
		}
	}
	h.mu.Unlock()
}

// HandleWS upgrades an HTTP connection to WebSocket and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("ws client connected", slog.Int("total", count))

	go client.sendInitialState()
	go client.writePump()
	go client.readPump()
}

// removeClient drops a client from the hub and closes its send channel.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Latest returns the most recent signal for a market:timeframe key.
func (h *Hub) Latest(key string) (*model.Signal, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry, ok := h.latest[key]
	return entry.Signal, ok
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve runs the WebSocket endpoint until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWS)

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		h.log.Info("gateway listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
