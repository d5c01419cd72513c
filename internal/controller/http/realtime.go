package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/vadim/wedding-chat/internal/auth"
	"github.com/vadim/wedding-chat/internal/session"
)

const (
	maxFrameBytes = 8 * 1024
	sendBuffer    = 256
)

// RealtimeConfig holds websocket timings and session settings
type RealtimeConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	Session      session.Config
}

// RealtimeHandler upgrades authenticated requests to websockets and runs
// one session per connection
type RealtimeHandler struct {
	reader   session.ChatReader
	cipher   session.Decrypter
	events   session.Subscriber
	cfg      RealtimeConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewRealtimeHandler creates a new websocket handler
func NewRealtimeHandler(reader session.ChatReader, cipher session.Decrypter, events session.Subscriber, cfg RealtimeConfig, logger *slog.Logger) *RealtimeHandler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &RealtimeHandler{
		reader: reader,
		cipher: cipher,
		events: events,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the websocket route
func (h *RealtimeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.Serve())
}

// Serve handles GET /ws
func (h *RealtimeHandler) Serve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
			return
		}

		c := &wsConn{
			conn:   conn,
			send:   make(chan []byte, sendBuffer),
			done:   make(chan struct{}),
			cfg:    h.cfg,
			logger: h.logger.With("user_id", userID),
		}

		// The connection outlives request-scoped deadlines
		ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
		defer cancel()

		sess := session.New(userID, h.cfg.Session, h.reader, h.cipher, h.events, c, h.logger)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.writePump()
		}()

		if err := sess.Start(ctx); err != nil {
			c.logger.Error("failed to start session", "error", err)
			c.Send(session.Frame{Type: session.FrameError, Error: "realtime unavailable"})
			c.close()
			wg.Wait()
			return
		}

		c.readPump(ctx, sess)

		sess.Close()
		c.close()
		wg.Wait()
	}
}

// wsConn adapts a websocket connection to session.Outbox
type wsConn struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	cfg    RealtimeConfig
	logger *slog.Logger
}

// Send queues a frame for the browser; frames are dropped once the
// connection is closing or the browser falls too far behind
func (c *wsConn) Send(f session.Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		c.logger.Error("failed to encode frame", "type", f.Type, "error", err)
		return
	}

	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- payload:
	default:
		c.logger.Warn("browser lagging, frame dropped", "type", f.Type)
	}
}

func (c *wsConn) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *wsConn) readPump(ctx context.Context, sess *session.Session) {
	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * c.cfg.PingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * c.cfg.PingInterval))
	})

	for {
		var f session.ClientFrame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		sess.HandleFrame(ctx, f)
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			// flush what is already queued, then say goodbye
			for {
				select {
				case payload := <-c.send:
					if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
						return
					}
				default:
					_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}

		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
