package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/Mynotaurus/gostreaming/internal/audit"
	apperrors "github.com/Mynotaurus/gostreaming/internal/errors"
	"github.com/Mynotaurus/gostreaming/internal/model"
	"github.com/Mynotaurus/gostreaming/internal/util"
)

// Outbound socket events.
const (
	EventLoginSuccess        = "login success"
	EventLoginKeyRequired    = "login key required"
	EventConnected           = "connected"
	EventDisconnected        = "disconnected"
	EventMessageReceived     = "message received"
	EventActionReceived      = "action received"
	EventDrawingReceived     = "drawing received"
	EventRename              = "rename"
	EventServer              = "server"
	EventUserList            = "userlist"
	EventReturnColor         = "return color"
	EventPasswordSet         = "password set"
	EventPasswordActivated   = "password activated"
	EventPasswordDeactivated = "password deactivated"
	EventError               = "error"
	EventWarning             = "warning"
)

// Display names are rejected at 30 characters and beyond.
const maxNameLength = 30

// SettingsStore is the slice of the settings database the engine needs.
// Lookups return nil without error when the streamer does not exist.
// Store calls always happen outside registry locks; uniqueness is
// re-validated at insert time.
type SettingsStore interface {
	FindByUsername(ctx context.Context, username string) (*model.StreamerSettings, error)
	UpdateDescription(ctx context.Context, username, description string) error
	UpdatePassword(ctx context.Context, username string, password *string) error
}

// Engine applies the chat semantics: login, speech, slash commands and
// lifecycle events. Each handler returns the ordered deliveries the
// socket layer should hand to the bus.
type Engine struct {
	registry  *Registry
	presence  *Presence
	bus       *Bus
	store     SettingsStore
	transform func(string) string
}

func NewEngine(registry *Registry, presence *Presence, bus *Bus, store SettingsStore, transform func(string) string) *Engine {
	if transform == nil {
		transform = func(text string) string { return text }
	}
	return &Engine{
		registry:  registry,
		presence:  presence,
		bus:       bus,
		store:     store,
		transform: transform,
	}
}

// LoginRequest carries the login payload from the socket layer.
type LoginRequest struct {
	ConnID   string
	Addr     string
	Username string
	Streamer string
	Color    string
	Key      *string
}

// HandleConnect clears any state left behind by a previous connection
// that reused this id.
func (e *Engine) HandleConnect(connID string) {
	e.registry.Remove(connID)
}

// HandleDisconnect tears down a connection's session, presence and room
// membership. When the connection was authenticated the room receives a
// disconnected notice with the refreshed roster.
func (e *Engine) HandleDisconnect(connID string) []Delivery {
	e.presence.Drop(connID)

	session, ok := e.registry.Remove(connID)
	e.bus.Leave(connID)
	if !ok {
		return nil
	}

	return []Delivery{toRoom(session.Room, EventDisconnected, e.rosterPayload(session))}
}

// HandlePresence upserts the heartbeat for a viewer, authenticated or
// not.
func (e *Engine) HandlePresence(connID, streamer string) {
	room := strings.ToLower(streamer)
	if room == "" {
		return
	}
	e.presence.Touch(connID, room)
}

// HandleLogin runs the login protocol. Precondition failures are
// reported to the caller only; success joins the room and announces the
// arrival room-wide.
func (e *Engine) HandleLogin(ctx context.Context, req LoginRequest) []Delivery {
	if _, ok := e.registry.Get(req.ConnID); ok {
		return errorTo(req.ConnID, "Already logged in")
	}

	username := req.Username
	if username == "" {
		return errorTo(req.ConnID, "Username cannot be blank")
	}
	if utf8.RuneCountInString(username) >= maxNameLength {
		return errorTo(req.ConnID, "Username cannot be that long")
	}

	room := strings.ToLower(req.Streamer)
	if _, taken := e.registry.FindByName(room, username); taken {
		return errorTo(req.ConnID, "Username is already taken")
	}

	color := 0
	if resolved, err := ResolveColor(req.Color); err == nil {
		color = resolved
	}

	settings, err := e.store.FindByUsername(ctx, room)
	if err != nil {
		log.Error().Err(err).Str("streamer", room).Msg("streamer lookup failed")
		return errorTo(req.ConnID, "Error looking up streamer")
	}
	if settings == nil {
		return errorTo(req.ConnID, "Streamer does not exist")
	}

	admin := false
	if strings.EqualFold(username, room) {
		if req.Key == nil {
			return []Delivery{toConn(req.ConnID, EventLoginKeyRequired, map[string]any{
				"username": settings.Username,
			})}
		}
		if !util.ConstantTimeEqual(*req.Key, settings.Key) {
			audit.Log(audit.Event{
				Type:     audit.EventLoginFailure,
				Streamer: room,
				Actor:    username,
				ConnID:   req.ConnID,
				IP:       req.Addr,
				Details:  map[string]interface{}{"reason": "invalid stream key"},
			})
			return errorTo(req.ConnID, "Invalid password!")
		}
		username = settings.Username
		admin = true
	}

	session := &Session{
		ID:    req.ConnID,
		Addr:  req.Addr,
		Room:  room,
		Name:  username,
		Admin: admin,
		Color: color,
	}
	if err := e.registry.Insert(session); err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeConflict {
			return errorTo(req.ConnID, "Username is taken")
		}
		return errorTo(req.ConnID, "Already logged in")
	}

	e.presence.Touch(req.ConnID, room)
	e.bus.Join(req.ConnID, room)

	audit.Log(audit.Event{
		Type:     audit.EventLoginSuccess,
		Streamer: room,
		Actor:    username,
		ConnID:   req.ConnID,
		IP:       req.Addr,
		Details:  map[string]interface{}{"admin": admin},
	})

	out := []Delivery{
		toConn(req.ConnID, EventLoginSuccess, map[string]any{"username": username}),
		toRoom(room, EventConnected, e.rosterPayload(*session)),
	}
	if admin {
		out = append(out, toConn(req.ConnID, EventServer, msgData("You have admin rights.")))
	}
	return out
}

// HandleMessage routes one chat line: plain speech is broadcast, lines
// starting with "/" go through the command table.
func (e *Engine) HandleMessage(ctx context.Context, connID, text string) []Delivery {
	message := strings.TrimSpace(text)
	if message == "" {
		return []Delivery{toConn(connID, EventWarning, msgData("Message cannot be blank"))}
	}

	session, ok := e.registry.Get(connID)
	if !ok {
		return errorTo(connID, "User is not authenticated")
	}
	e.presence.Touch(connID, session.Room)

	if strings.HasPrefix(message, "/") {
		return e.dispatchCommand(ctx, session, message)
	}

	if session.Muted {
		return serverTo(connID, "You are muted!")
	}
	return []Delivery{toRoom(session.Room, EventMessageReceived, e.chatPayload(session, e.transform(message)))}
}

// HandleGetColor privately echoes the caller's current color.
func (e *Engine) HandleGetColor(connID string) []Delivery {
	session, ok := e.registry.Get(connID)
	if !ok {
		return errorTo(connID, "User is not authenticated")
	}
	return []Delivery{toConn(connID, EventReturnColor, map[string]any{"color": session.HTMLColor()})}
}

// HandleDrawing broadcasts a drawing frame to the room.
func (e *Engine) HandleDrawing(connID, src string) []Delivery {
	if strings.TrimSpace(src) == "" {
		return errorTo(connID, "Image missing from payload")
	}

	session, ok := e.registry.Get(connID)
	if !ok {
		return errorTo(connID, "User is not authenticated")
	}
	e.presence.Touch(connID, session.Room)

	if session.Muted {
		return serverTo(connID, "You are muted!")
	}
	return []Delivery{toRoom(session.Room, EventDrawingReceived, map[string]any{
		"username": session.Name,
		"type":     session.Role(),
		"color":    session.HTMLColor(),
		"src":      strings.TrimSpace(src),
	})}
}

// rosterPayload is the connected/disconnected event body: the moving
// session's public identity plus the room's refreshed roster.
func (e *Engine) rosterPayload(s Session) map[string]any {
	return map[string]any{
		"username": s.Name,
		"type":     s.Role(),
		"color":    s.HTMLColor(),
		"users":    e.registry.ListRoom(s.Room),
	}
}

// chatPayload is the message/action event body.
func (e *Engine) chatPayload(s Session, message string) map[string]any {
	return map[string]any{
		"username": s.Name,
		"type":     s.Role(),
		"color":    s.HTMLColor(),
		"message":  message,
	}
}

func toRoom(room, event string, data any) Delivery {
	return Delivery{Room: room, Event: event, Data: data}
}

func toConn(conn, event string, data any) Delivery {
	return Delivery{Conn: conn, Event: event, Data: data}
}

func msgData(msg string) map[string]any {
	return map[string]any{"msg": msg}
}

func errorTo(conn, msg string) []Delivery {
	return []Delivery{toConn(conn, EventError, msgData(msg))}
}

func serverTo(conn, msg string) []Delivery {
	return []Delivery{toConn(conn, EventServer, msgData(msg))}
}
