package handler

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
	"github.com/rs/zerolog/log"

	"github.com/Mynotaurus/gostreaming/internal/chat"
	"github.com/Mynotaurus/gostreaming/internal/config"
)

// envelope frames every socket message in both directions as
// {"event": ..., "data": ...}.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

var errSendBufferFull = errors.New("send buffer full")

// wsClient couples one websocket connection to its bus outbox. Send
// never blocks: when the buffer is full the event is dropped and the
// bus logs the loss.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan chat.Event
	once sync.Once
}

func (c *wsClient) Send(event chat.Event) error {
	select {
	case c.send <- event:
		return nil
	default:
		return errSendBufferFull
	}
}

// closeSend must only run after the bus has detached this client, so no
// concurrent Send can hit the closed channel.
func (c *wsClient) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// SocketHandler upgrades /ws requests and pumps envelopes between the
// connection and the chat engine.
type SocketHandler struct {
	engine   *chat.Engine
	bus      *chat.Bus
	upgrader websocket.Upgrader
}

func NewSocketHandler(engine *chat.Engine, bus *chat.Bus, allowedOrigins []string) *SocketHandler {
	return &SocketHandler{
		engine: engine,
		bus:    bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker admits the configured origins. An empty list admits
// everything; config.Validate warns about that in production.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimSuffix(origin, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return set[strings.TrimSuffix(origin, "/")]
	}
}

func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remoteAddr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan chat.Event, config.WSSendBuffer),
	}

	h.engine.HandleConnect(client.id)
	h.bus.Attach(client.id, client)

	log.Info().
		Str("connId", client.id).
		Str("remoteAddr", r.RemoteAddr).
		Msg("websocket connected")

	go h.writePump(client)
	h.readPump(r.Context(), client, r.RemoteAddr)
}

// readPump reads envelopes until the connection dies, then tears the
// session down. The departure notice is delivered before the outbox is
// detached so the leaving connection never receives its own roster
// update.
func (h *SocketHandler) readPump(ctx context.Context, c *wsClient, addr string) {
	defer func() {
		h.bus.Deliver(h.engine.HandleDisconnect(c.id))
		h.bus.Detach(c.id)
		c.closeSend()
		log.Info().Str("connId", c.id).Msg("websocket disconnected")
	}()

	c.conn.SetReadLimit(config.WSReadLimit)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("connId", c.id).Msg("websocket read failed")
			}
			return
		}
		h.dispatch(ctx, c, addr, data)
	}
}

// writePump owns the connection's write side and closes the socket when
// the outbox drains after a detach, which in turn unblocks the read
// pump.
func (h *SocketHandler) writePump(c *wsClient) {
	defer c.conn.Close()

	for event := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteTimeout))
		if err := c.conn.WriteJSON(event); err != nil {
			log.Debug().Err(err).Str("connId", c.id).Msg("websocket write failed")
			return
		}
	}
}

func (h *SocketHandler) dispatch(ctx context.Context, c *wsClient, addr string, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Debug().Err(err).Str("connId", c.id).Msg("discarding malformed socket frame")
		return
	}

	switch env.Event {
	case "presence":
		var data struct {
			Streamer string `json:"streamer"`
		}
		if err := decode(env.Data, &data); err != nil {
			return
		}
		h.engine.HandlePresence(c.id, data.Streamer)

	case "login":
		var data struct {
			Username string  `json:"username"`
			Streamer string  `json:"streamer"`
			Color    string  `json:"color"`
			Key      *string `json:"key"`
		}
		if err := decode(env.Data, &data); err != nil {
			return
		}
		h.bus.Deliver(h.engine.HandleLogin(ctx, chat.LoginRequest{
			ConnID:   c.id,
			Addr:     addr,
			Username: data.Username,
			Streamer: data.Streamer,
			Color:    data.Color,
			Key:      data.Key,
		}))

	case "message":
		var data struct {
			Message string `json:"message"`
		}
		if err := decode(env.Data, &data); err != nil {
			return
		}
		h.bus.Deliver(h.engine.HandleMessage(ctx, c.id, data.Message))

	case "get color":
		h.bus.Deliver(h.engine.HandleGetColor(c.id))

	case "drawing":
		var data struct {
			Src string `json:"src"`
		}
		if err := decode(env.Data, &data); err != nil {
			return
		}
		h.bus.Deliver(h.engine.HandleDrawing(c.id, data.Src))

	default:
		log.Debug().
			Str("connId", c.id).
			Str("event", env.Event).
			Msg("ignoring unknown socket event")
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
