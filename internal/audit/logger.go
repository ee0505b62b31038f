package audit

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventLoginSuccess       EventType = "login_success"
	EventLoginFailure       EventType = "login_failure"
	EventUserMuted          EventType = "user_muted"
	EventUserUnmuted        EventType = "user_unmuted"
	EventModeratorGranted   EventType = "moderator_granted"
	EventModeratorRevoked   EventType = "moderator_revoked"
	EventDescriptionUpdated EventType = "description_updated"
	EventPasswordSet        EventType = "password_set"
	EventPasswordCleared    EventType = "password_cleared"
	EventPublishDenied      EventType = "publish_denied"
	EventRateLimitExceed    EventType = "rate_limit_exceeded"
)

type Event struct {
	Type     EventType
	Streamer string
	Actor    string
	Target   string
	ConnID   string
	IP       string
	Details  map[string]interface{}
}

func Log(event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.Streamer != "" {
		logger = logger.With().Str("streamer", event.Streamer).Logger()
	}
	if event.Actor != "" {
		logger = logger.With().Str("actor", event.Actor).Logger()
	}
	if event.Target != "" {
		logger = logger.With().Str("target", event.Target).Logger()
	}
	if event.ConnID != "" {
		logger = logger.With().Str("connId", event.ConnID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = getClientIP(r)
	Log(event)
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
