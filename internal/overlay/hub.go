package overlay

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultBroadcastFPS caps how often frames go out to viewers.
	DefaultBroadcastFPS = 30
	writeTimeout        = time.Second
	// sendBuffer is how many frames a viewer may fall behind before frames
	// are dropped for it.
	sendBuffer = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local viewers only
	},
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue hands msg to the writer without blocking. It reports false when
// the viewer is too far behind or already gone.
func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// pump writes queued frames until the client is closed or a write fails.
func (c *client) pump(h *Hub) {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("Dropping overlay viewer", zap.String("client", c.id), zap.Error(err))
				h.remove(c.id)
				return
			}
		}
	}
}

// Hub broadcasts overlay frames to websocket viewers.
type Hub struct {
	logger  *zap.Logger
	limiter *rate.Limiter
	clients map[string]*client
	mu      sync.RWMutex
	dropped atomic.Uint64
}

// NewHub creates a Hub that sends at most fps frames per second.
func NewHub(fps int, logger *zap.Logger) *Hub {
	if fps <= 0 {
		fps = DefaultBroadcastFPS
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger.Named("overlay"),
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
		clients: make(map[string]*client),
	}
}

// ServeHTTP upgrades the request and keeps the viewer registered until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(conn)
	h.add(c)
	defer h.remove(c.id)
	go c.pump(h)

	// Viewers never send anything meaningful; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frames were skipped for viewers that fell behind.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Draw implements Sink. Frames beyond the broadcast rate are skipped. Draw
// never waits on a viewer: a viewer whose queue is full misses the frame and
// a viewer that fails a write is dropped.
func (h *Hub) Draw(ctx context.Context, f Frame) error {
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	if n == 0 || !h.limiter.Allow() {
		return nil
	}

	msg, err := json.Marshal(f)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(msg) {
			h.dropped.Add(1)
		}
	}
	return nil
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Debug("Overlay viewer connected", zap.String("client", c.id))
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}
