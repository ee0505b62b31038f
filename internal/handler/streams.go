package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Mynotaurus/gostreaming/internal/audit"
	"github.com/Mynotaurus/gostreaming/internal/model"
	"github.com/Mynotaurus/gostreaming/internal/service"
	"github.com/Mynotaurus/gostreaming/internal/util"
)

const streampassCookie = "streampass"

// StreamsHandler serves the JSON facade around the settings store, the
// HLS media store and the chat presence tracker.
type StreamsHandler struct {
	streams       *service.StreamService
	publishLimit  func(http.Handler) http.Handler
	passwordLimit func(http.Handler) http.Handler
}

func NewStreamsHandler(
	streams *service.StreamService,
	publishLimit func(http.Handler) http.Handler,
	passwordLimit func(http.Handler) http.Handler,
) *StreamsHandler {
	return &StreamsHandler{
		streams:       streams,
		publishLimit:  publishLimit,
		passwordLimit: passwordLimit,
	}
}

func (h *StreamsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/api/streamers", h.ListStreamers)
	r.Get("/api/emotes", h.Emotes)
	r.Get("/hls/{filename}", h.Segment)

	r.Route("/auth", func(r chi.Router) {
		r.With(h.publishLimit).Get("/on_publish", h.PublishCheck)
		r.With(h.publishLimit).Post("/on_publish", h.PublishCheck)
		r.Get("/on_publish_done", h.PublishDone)
		r.Post("/on_publish_done", h.PublishDone)
	})

	r.Get("/{streamer}/info", h.Info)
	r.With(h.passwordLimit).Post("/{streamer}/password", h.Password)
	r.Get("/{streamer}/playlist.m3u8", h.Playlist)
	r.Get("/{streamer}/playlist/{quality}.m3u8", h.PlaylistQuality)

	return r
}

// GET /api/streamers
func (h *StreamsHandler) ListStreamers(w http.ResponseWriter, r *http.Request) {
	streamers, err := h.streams.ListStreamers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list streamers")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, streamers)
}

// GET /{streamer}/info
func (h *StreamsHandler) Info(w http.ResponseWriter, r *http.Request) {
	settings := h.resolve(w, r)
	if settings == nil {
		return
	}

	writeJSON(w, http.StatusOK, h.streams.Info(settings))
}

// POST /{streamer}/password
//
// On a correct password the streampass cookie is set for a day and the
// canonical streamer name comes back so the client can redirect itself.
func (h *StreamsHandler) Password(w http.ResponseWriter, r *http.Request) {
	settings, err := h.streams.Lookup(r.Context(), chi.URLParam(r, "streamer"))
	if err != nil {
		writeError(w, err)
		return
	}

	if !h.streams.AccessAllowed(settings, r.FormValue(streampassCookie)) {
		audit.LogFromRequest(r, audit.Event{
			Type:     audit.EventLoginFailure,
			Streamer: settings.Username,
			Details:  map[string]interface{}{"route": "password"},
		})
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid password"})
		return
	}

	if settings.HasPassword() {
		http.SetCookie(w, &http.Cookie{
			Name:     streampassCookie,
			Value:    *settings.StreamPass,
			Path:     "/",
			Expires:  time.Now().Add(24 * time.Hour),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"streamer": settings.Username})
}

// GET /{streamer}/playlist.m3u8
func (h *StreamsHandler) Playlist(w http.ResponseWriter, r *http.Request) {
	settings := h.resolve(w, r)
	if settings == nil {
		return
	}

	h.servePlaylist(w, settings, "")
}

// GET /{streamer}/playlist/{quality}.m3u8
func (h *StreamsHandler) PlaylistQuality(w http.ResponseWriter, r *http.Request) {
	settings := h.resolve(w, r)
	if settings == nil {
		return
	}

	h.servePlaylist(w, settings, chi.URLParam(r, "quality"))
}

// GET /hls/{filename}
//
// Debug endpoint; production setups serve segments straight from nginx.
func (h *StreamsHandler) Segment(w http.ResponseWriter, r *http.Request) {
	data, err := h.streams.Segment(chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "video/mp2t")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GET|POST /auth/on_publish
//
// The ingest server asks before accepting a publish; anything but 200
// rejects the stream.
func (h *StreamsHandler) PublishCheck(w http.ResponseWriter, r *http.Request) {
	settings, err := h.streams.Publisher(r.Context(), r.FormValue("name"))
	if err != nil {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventPublishDenied})
		writeError(w, err)
		return
	}

	log.Info().
		Str("streamer", settings.Username).
		Str("key", util.MaskKey(settings.Key)).
		Msg("stream publish authorized")
	writeText(w, "Stream ok!")
}

// GET|POST /auth/on_publish_done
func (h *StreamsHandler) PublishDone(w http.ResponseWriter, r *http.Request) {
	writeText(w, "Stream ok!")
}

// GET /api/emotes
func (h *StreamsHandler) Emotes(w http.ResponseWriter, r *http.Request) {
	emotes, err := h.streams.Emotes(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list emotes")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, emotes)
}

// resolve looks up the streamer named in the path and applies the
// password wall shared by the info and playlist routes. A nil return
// means the response has already been written.
func (h *StreamsHandler) resolve(w http.ResponseWriter, r *http.Request) *model.StreamerSettings {
	settings, err := h.streams.Lookup(r.Context(), chi.URLParam(r, "streamer"))
	if err != nil {
		writeError(w, err)
		return nil
	}

	var provided string
	if cookie, err := r.Cookie(streampassCookie); err == nil {
		provided = cookie.Value
	}
	if !h.streams.AccessAllowed(settings, provided) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "This stream is password protected"})
		return nil
	}

	return settings
}

func (h *StreamsHandler) servePlaylist(w http.ResponseWriter, settings *model.StreamerSettings, quality string) {
	body, err := h.streams.Playlist(settings, quality)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
