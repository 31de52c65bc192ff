package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pongarena/server/internal/config"
	"pongarena/server/internal/logging"
	"pongarena/server/internal/match"
	"pongarena/server/internal/matchmaking"
	"pongarena/server/internal/registry"
)

const writeWait = 10 * time.Second

// envelope is the inbound message frame. The optional id is echoed back in
// the acknowledgement so clients can correlate replies.
type envelope struct {
	ID    int64           `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ackFrame acknowledges one inbound request.
type ackFrame struct {
	ID         int64  `json:"id,omitempty"`
	Event      string `json:"event"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Expiration int64  `json:"expiration,omitempty"`
}

// pushFrame wraps a server-initiated event.
type pushFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

var errMalformed = errors.New("Malformed message.")

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	connID string
	userID int64
}

// Gateway owns the websocket endpoint: it authenticates connections, tracks
// per-connection send buffers, dispatches inbound operations to the
// coordinator, and implements the push outbox used by matches.
type Gateway struct {
	cfg         *config.Config
	logger      *logging.Logger
	registry    *registry.Registry
	auth        websocketAuthenticator
	upgrader    websocket.Upgrader
	coordinator *matchmaking.Coordinator

	mu      sync.Mutex
	clients map[string]*client
}

func newGateway(cfg *config.Config, reg *registry.Registry, authn websocketAuthenticator, logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.L()
	}
	gw := &Gateway{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		auth:     authn,
		clients:  make(map[string]*client),
	}
	gw.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     gw.checkOrigin,
	}
	return gw
}

// SetCoordinator breaks the construction cycle: the coordinator needs the
// gateway as its outbox, the gateway needs the coordinator for dispatch.
func (g *Gateway) SetCoordinator(coordinator *matchmaking.Coordinator) {
	g.coordinator = coordinator
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Push delivers a server event to every live connection of the user. Never
// blocks; a slow consumer loses the frame and its connection.
func (g *Gateway) Push(userID int64, event string, payload any) {
	data, err := json.Marshal(pushFrame{Event: event, Data: payload})
	if err != nil {
		g.logger.Warn("push encode failed", logging.String("event", event), logging.Error(err))
		return
	}
	for _, connID := range g.registry.ConnsOf(userID) {
		g.mu.Lock()
		c := g.clients[connID]
		g.mu.Unlock()
		if c == nil {
			continue
		}
		select {
		case c.send <- data:
		default:
			g.logger.Warn("send buffer full, dropping connection",
				logging.String("conn_id", connID),
				logging.Int64("user_id", userID),
			)
			c.conn.Close()
		}
	}
}

func (g *Gateway) serveWS(w http.ResponseWriter, r *http.Request) {
	claims, err := g.auth.Authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	connID := uuid.NewString()
	if _, err := g.registry.Add(connID, claims.UserID, claims.Username, claims.Avatar); err != nil {
		message := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server full")
		_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
		conn.Close()
		return
	}
	c := &client{
		conn:   conn,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		connID: connID,
		userID: claims.UserID,
	}
	g.mu.Lock()
	g.clients[connID] = c
	g.mu.Unlock()
	g.logger.Info("client connected",
		logging.String("conn_id", connID),
		logging.Int64("user_id", claims.UserID),
	)

	go g.writePump(c)
	go g.readPump(c)
	g.coordinator.OnConnect(claims.UserID)
}

func (g *Gateway) readPump(c *client) {
	defer g.dropClient(c)

	c.conn.SetReadLimit(g.cfg.MaxPayloadBytes)
	pongWait := g.cfg.PingInterval + writeWait
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Debug("read error", logging.String("conn_id", c.connID), logging.Error(err))
			}
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			g.reply(c, ackFrame{Event: "error", Success: false, Error: "Malformed message."})
			continue
		}
		g.dispatch(c, env)
	}
}

func (g *Gateway) writePump(c *client) {
	ticker := time.NewTicker(g.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (g *Gateway) dispatch(c *client, env envelope) {
	switch env.Event {
	case "join_matchmaking":
		var payload struct {
			Mode int `json:"mode"`
		}
		if env.Data != nil {
			_ = json.Unmarshal(env.Data, &payload)
		}
		err := g.coordinator.JoinQueue(context.Background(), c.userID, matchmaking.Mode(payload.Mode))
		g.ack(c, env, err)

	case "leave_matchmaking":
		g.coordinator.LeaveQueue(c.userID)
		g.ack(c, env, nil)

	case "invite":
		var payload struct {
			UserID int64 `json:"user_id"`
			Mode   int   `json:"mode"`
		}
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			g.ack(c, env, errMalformed)
			return
		}
		user, ok := g.registry.Get(c.connID)
		if !ok {
			g.ack(c, env, matchmaking.ErrNotConnected)
			return
		}
		expiration, err := g.coordinator.Invite(identityOf(user), payload.UserID, matchmaking.Mode(payload.Mode))
		if err != nil {
			g.ack(c, env, err)
			return
		}
		g.reply(c, ackFrame{ID: env.ID, Event: env.Event, Success: true, Expiration: expiration.UnixMilli()})

	case "invitation_response":
		var payload struct {
			InvitationID string `json:"invitation_id"`
			Accepted     bool   `json:"accepted"`
		}
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			g.ack(c, env, errMalformed)
			return
		}
		g.ack(c, env, g.coordinator.RespondToInvitation(context.Background(), c.userID, payload.InvitationID, payload.Accepted))

	case "join_game":
		var payload struct {
			GameID int64 `json:"game_id"`
		}
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			g.ack(c, env, errMalformed)
			return
		}
		g.ack(c, env, g.coordinator.JoinGame(c.userID, payload.GameID))

	case "move_up":
		g.coordinator.PlayerMoved(c.userID, true)

	case "move_down":
		g.coordinator.PlayerMoved(c.userID, false)

	default:
		g.reply(c, ackFrame{ID: env.ID, Event: env.Event, Success: false, Error: "Unknown event."})
	}
}

func (g *Gateway) ack(c *client, env envelope, err error) {
	frame := ackFrame{ID: env.ID, Event: env.Event, Success: err == nil}
	if err != nil {
		frame.Error = err.Error()
	}
	g.reply(c, frame)
}

func (g *Gateway) reply(c *client, frame ackFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// dropClient tears down one connection. When it was the user's last
// connection the coordinator handles queue and match fallout.
func (g *Gateway) dropClient(c *client) {
	g.mu.Lock()
	_, present := g.clients[c.connID]
	delete(g.clients, c.connID)
	g.mu.Unlock()
	if !present {
		return
	}
	close(c.done)
	user, ok := g.registry.Remove(c.connID)
	if !ok {
		return
	}
	g.logger.Info("client disconnected",
		logging.String("conn_id", c.connID),
		logging.Int64("user_id", user.UserID),
	)
	if !g.registry.Online(user.UserID) {
		g.coordinator.OnDisconnect(user.UserID)
	}
}

// stats feeds the operational status endpoint.
func (g *Gateway) stats() (connections int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}

func identityOf(user *registry.ConnectedUser) match.Identity {
	return match.Identity{ID: user.UserID, Username: user.Username, Avatar: user.Avatar}
}
