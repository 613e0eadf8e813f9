// Package realtime pushes booking and payment status changes to websocket
// subscribers, one room per booking.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sudo-init-do/staybook/internal/payment"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to the clients watching each booking.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

var _ payment.Publisher = (*Hub)(nil)

// Publish delivers evt to every subscriber of bookingID. Clients whose
// buffers are full are disconnected rather than blocking the publisher.
func (h *Hub) Publish(bookingID string, evt payment.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("booking_id", bookingID).Msg("marshal stream event")
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.rooms[bookingID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(bookingID, c)
	}
}

// Subscribers returns the number of live connections for bookingID.
func (h *Hub) Subscribers(bookingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[bookingID])
}

func (h *Hub) register(bookingID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[bookingID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[bookingID] = room
	}
	room[c] = struct{}{}
}

// unregister is idempotent; the send channel is closed exactly once.
func (h *Hub) unregister(bookingID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[bookingID]
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, bookingID)
	}
}

// writePump is the only writer on c.conn.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and returns when the peer goes away.
func (c *client) readPump() {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
