package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/seenimoa/tickerproxy/pkg/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Chat requests queued per connection before new ones are refused.
	wsQueueSize = 4
)

// wsSession is one /ws/chat connection. Frames are answered in order.
type wsSession struct {
	conn     *websocket.Conn
	send     chan any
	requests chan models.ChatRequest
	quit     chan struct{} // closed when the writer exits
	log      zerolog.Logger
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.allowOrigin,
	}
}

// allowOrigin applies the CORS origin list to WebSocket upgrades.
func (s *Server) allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.Server.CORSOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return len(s.cfg.Server.CORSOrigins) == 0
}

// handleWebSocket upgrades the connection and serves chat frames until the
// peer disconnects. Each text frame is a chat request; each reply is a
// chat reply frame, or {error} for a frame that cannot be parsed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := &wsSession{
		conn:     conn,
		send:     make(chan any, wsQueueSize+1),
		requests: make(chan models.ChatRequest, wsQueueSize),
		quit:     make(chan struct{}),
		log:      *hlog.FromRequest(r),
	}

	ctx, cancel := context.WithCancel(r.Context())
	go func() {
		sess.writePump()
		close(sess.quit)
	}()
	go sess.dispatch(ctx, s)

	sess.readPump()
	cancel()
	<-sess.quit
}

// push queues v for the writer unless it has already exited.
func (c *wsSession) push(v any) {
	select {
	case c.send <- v:
	case <-c.quit:
	}
}

// readPump parses incoming frames and queues them for dispatch.
func (c *wsSession) readPump() {
	defer close(c.requests)

	c.conn.SetReadLimit(maxChatBody)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}

		var req models.ChatRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.push(errorBody{Error: "invalid chat frame"})
			continue
		}
		if strings.TrimSpace(req.Message) == "" {
			c.push(errorBody{Error: "message is required"})
			continue
		}

		select {
		case c.requests <- req:
		default:
			c.push(errorBody{Error: "too many pending messages"})
		}
	}
}

// dispatch answers queued requests one at a time, then closes send.
func (c *wsSession) dispatch(ctx context.Context, s *Server) {
	defer close(c.send)
	for req := range c.requests {
		reqCtx, cancel := context.WithTimeout(ctx, s.chatTimeout)
		reply := s.deps.Chat.Chat(reqCtx, req)
		cancel()
		if ctx.Err() != nil {
			continue
		}
		c.log.Debug().Bool("action", reply.IsAction()).Msg("chat answered")
		c.push(reply)
	}
}

// writePump writes replies and keeps the connection alive with pings.
func (c *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Debug().Err(err).Msg("websocket write failed")
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
