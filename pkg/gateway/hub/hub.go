package hub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/metrics"
	"github.com/Gurgeron/MMM-AI-CameraAudio/pkg/gateway/protocol"
)

// Client is one registered WebSocket peer. The write mutex serializes the
// initial message, periodic broadcasts and direct replies; gorilla conns
// support one concurrent writer.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Hub tracks the set of connected clients and delivers JSON messages
// best-effort: a single client's failure never aborts delivery to others.
type Hub struct {
	logger       *slog.Logger
	metrics      *metrics.Metrics
	writeTimeout time.Duration

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// New creates a hub. metrics may be nil.
func New(logger *slog.Logger, m *metrics.Metrics, writeTimeout time.Duration) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Hub{
		logger:       logger,
		metrics:      m,
		writeTimeout: writeTimeout,
		clients:      make(map[*Client]struct{}),
	}
}

// Register adds a connection to the client set and immediately sends the
// initial waveform message.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := &Client{conn: conn}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ConnectedClients.Set(float64(count))
	}
	h.logger.Info("client connected", "total_clients", count)

	_ = h.SendTo(c, protocol.InitialWaveform())
	return c
}

// Unregister removes a client from the set. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	if c == nil {
		return
	}

	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if !existed {
		return
	}
	if h.metrics != nil {
		h.metrics.ConnectedClients.Set(float64(count))
	}
	h.logger.Info("client disconnected", "total_clients", count)
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// SendTo serializes msg and writes it to one client. A closed connection
// unregisters the client silently; any other write error is logged and the
// client is skipped for this message only.
func (h *Hub) SendTo(c *Client, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "error", err)
		return err
	}
	return h.send(c, data)
}

// Broadcast delivers msg to a snapshot of the current client set, one
// goroutine per client. Zero registered clients is a silent no-op.
func (h *Hub) Broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast message", "error", err)
		return
	}

	h.mu.Lock()
	snapshot := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.BroadcastsTotal.Inc()
	}
	if len(snapshot) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, c := range snapshot {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			_ = h.send(c, data)
		}(c)
	}
	wg.Wait()
}

func (h *Hub) send(c *Client, data []byte) error {
	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	err := c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()

	if err == nil {
		return nil
	}

	if isClosedConn(err) {
		h.Unregister(c)
		return err
	}

	if h.metrics != nil {
		h.metrics.SendErrorsTotal.Inc()
	}
	h.logger.Warn("send to client failed", "error", err)
	return err
}

func isClosedConn(err error) bool {
	if errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr)
}
