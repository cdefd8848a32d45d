package gateway

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"cryptosignals/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client represents a single WebSocket peer.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	filters clientFilters
}

// clientFilters narrows which signals a client receives. Empty slices mean
// no restriction on that axis.
type clientFilters struct {
	Markets    []string `json:"markets"`
	Timeframes []string `json:"timeframes"`
}

func (f clientFilters) matches(sig *model.Signal) bool {
	if len(f.Markets) > 0 && !contains(f.Markets, sig.MarketID) {
		return false
	}
	if len(f.Timeframes) > 0 && !contains(f.Timeframes, string(sig.Timeframe)) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// sendInitialState replays the latest signal per key so a fresh client has
// the full picture before live updates arrive.
func (c *Client) sendInitialState() {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	for _, entry := range c.hub.latest {
		if entry.Signal == nil || !c.filters.matches(entry.Signal) {
			continue
		}
		select {
		case c.send <- entry.Data:
		default:
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
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			// Coalesce queued messages into a single frame.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
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

func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
		c.hub.log.Info("ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		// The only inbound message is a filter update.
		var filters clientFilters
		if json.Unmarshal(msg, &filters) == nil {
			c.hub.mu.Lock()
			c.filters = filters
			c.hub.mu.Unlock()
		}
	}
}
