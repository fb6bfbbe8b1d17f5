package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// ConnectedMessage is the first frame every client receives.
	ConnectedMessage = "Connection established"
	// DisconnectedMessage is sent to the remaining clients when one leaves.
	DisconnectedMessage = "Client disconnected"
)

var (
	// ErrClientClosed is returned by Send after the client has been closed.
	ErrClientClosed = errors.New("realtime: client closed")
	// ErrSendQueueFull is returned by Send when the client is not draining its queue.
	ErrSendQueueFull = errors.New("realtime: send queue full")
)

// Options bounds per-connection resources.
type Options struct {
	SendBuffer      int
	WriteTimeout    time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 65536
	}
	return o
}

// pingPeriod must stay below pongWait.
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// Client is a WebSocket session with a bounded outbound queue drained by its own
// writePump goroutine.
type Client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn, sendBuffer int) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// ID returns the session identifier assigned on connect.
func (c *Client) ID() string { return c.id }

// Send enqueues msg without blocking.
func (c *Client) Send(msg []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendQueueFull
	}
}

// Close stops both pumps and closes the socket. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Handler serves the real-time endpoint.
type Handler struct {
	registry    *Registry
	broadcaster *Broadcaster
	opts        Options
	upgrader    websocket.Upgrader
	metrics     *Metrics
	logger      *zap.Logger
}

// NewHandler creates the WebSocket endpoint handler.
func NewHandler(reg *Registry, b *Broadcaster, opts Options, logger *zap.Logger, metrics *Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry:    reg,
		broadcaster: b,
		opts:        opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS for the API is enforced by middleware; the channel itself is public.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		metrics: metrics,
		logger:  logger,
	}
}

// ServeWs is the gin entrypoint for GET /ws.
func (h *Handler) ServeWs(c *gin.Context) {
	h.ServeHTTP(c.Writer, c.Request)
}

// ServeHTTP upgrades the request and runs the session until it ends.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(uuid.NewString(), conn, h.opts.SendBuffer)
	// Queued before Register so the confirmation precedes any broadcast.
	_ = client.Send([]byte(ConnectedMessage))
	h.registry.Register(client)
	h.logger.Debug("client connected", zap.String("conn_id", client.id))

	go h.writePump(client)
	h.readPump(client)
}

// Stats handles GET /ws/stats.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"connections": h.registry.Count()}})
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.registry.Unregister(c.id)
		_ = c.Close()
		h.logger.Debug("client disconnected", zap.String("conn_id", c.id))
		h.broadcaster.Publish(context.Background(), []byte(DisconnectedMessage))
	}()

	c.conn.SetReadLimit(h.opts.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
		h.metrics.inbound()
		h.broadcaster.Publish(context.Background(), data)
	}
}

func (h *Handler) writePump(c *Client) {
	ticker := time.NewTicker(h.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
