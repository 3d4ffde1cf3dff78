// Package stream broadcasts annotated frames to websocket viewers as JPEG.
package stream

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	golog "github.com/ipfs/go-log/v2"
	"gocv.io/x/gocv"
)

var log = golog.Logger("facetengine/stream")

const (
	writeWait   = 2 * time.Second
	sendBacklog = 2 // frames queued per client before dropping
)

// ErrHubClosed is returned by Show after Close
var ErrHubClosed = errors.New("stream hub closed")

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a surface that pushes each shown frame to every connected viewer.
// Slow viewers lose frames instead of stalling capture.
type Hub struct {
	upgrader websocket.Upgrader
	quality  int
	mu       sync.RWMutex
	clients  map[*client]struct{}
	closed   bool
}

// NewHub creates a hub encoding frames at the given JPEG quality
func NewHub(quality int) *Hub {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		quality: quality,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the viewer
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("upgrade from %s: %v", r.RemoteAddr, err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBacklog)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	log.Infof("viewer %s connected. Total: %d", r.RemoteAddr, total)

	go h.writePump(c)
	go h.readPump(c)
}

// writePump owns all writes to the connection
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			log.Debugf("write to %s: %v", c.conn.RemoteAddr(), err)
			h.remove(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
}

// readPump drains viewer messages so close frames are noticed
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		log.Infof("viewer %s disconnected. Total: %d", c.conn.RemoteAddr(), len(h.clients))
	}
}

// Clients returns the number of connected viewers
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Show encodes frame once and queues it for every viewer
func (h *Hub) Show(frame gocv.Mat) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}
	if len(h.clients) == 0 {
		return nil
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, h.quality})
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	msg := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// viewer is behind, drop this frame for it
		}
	}
	return nil
}

// Close disconnects every viewer
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}
