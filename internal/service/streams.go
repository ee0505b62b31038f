package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mynotaurus/gostreaming/internal/chat"
	"github.com/Mynotaurus/gostreaming/internal/emote"
	apperrors "github.com/Mynotaurus/gostreaming/internal/errors"
	"github.com/Mynotaurus/gostreaming/internal/media"
	"github.com/Mynotaurus/gostreaming/internal/model"
	"github.com/Mynotaurus/gostreaming/internal/repository"
	"github.com/Mynotaurus/gostreaming/internal/util"
)

// StreamerSummary is one row of the public streamer directory.
type StreamerSummary struct {
	Username    string `json:"username"`
	Live        bool   `json:"live"`
	Count       int    `json:"count"`
	Description string `json:"description"`
	Locked      bool   `json:"locked"`
}

// StreamInfo is the per-streamer poll payload.
type StreamInfo struct {
	Live        bool   `json:"live"`
	Count       int    `json:"count"`
	Description string `json:"description"`
}

// StreamService ties the settings store, the HLS media store and the
// chat presence tracker together for the HTTP surface.
type StreamService struct {
	streamerRepo repository.StreamerRepository
	emoteRepo    repository.EmoteRepository
	store        *media.Store
	presence     *chat.Presence
	firstQuality string
	transform    emote.Transformer
}

func NewStreamService(
	streamerRepo repository.StreamerRepository,
	emoteRepo repository.EmoteRepository,
	store *media.Store,
	presence *chat.Presence,
	firstQuality string,
	transform emote.Transformer,
) *StreamService {
	if transform == nil {
		transform = func(text string) string { return text }
	}
	return &StreamService{
		streamerRepo: streamerRepo,
		emoteRepo:    emoteRepo,
		store:        store,
		presence:     presence,
		firstQuality: firstQuality,
		transform:    transform,
	}
}

// Lookup resolves a streamer name case-insensitively.
func (s *StreamService) Lookup(ctx context.Context, streamer string) (*model.StreamerSettings, error) {
	settings, err := s.streamerRepo.FindByUsername(ctx, strings.ToLower(streamer))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if settings == nil {
		return nil, apperrors.NotFound("Streamer")
	}
	return settings, nil
}

// AccessAllowed reports whether a viewer holding the given password may
// see the stream. Streams without a password are open to everyone.
func (s *StreamService) AccessAllowed(settings *model.StreamerSettings, provided string) bool {
	if !settings.HasPassword() {
		return true
	}
	return util.ConstantTimeEqual(provided, *settings.StreamPass)
}

// ListStreamers builds the public directory across all registered
// streamers.
func (s *StreamService) ListStreamers(ctx context.Context) ([]StreamerSummary, error) {
	all, err := s.streamerRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	summaries := make([]StreamerSummary, 0, len(all))
	for _, settings := range all {
		summaries = append(summaries, StreamerSummary{
			Username:    settings.Username,
			Live:        s.store.Live(settings.Key, s.firstQuality),
			Count:       s.presence.LiveCount(strings.ToLower(settings.Username)),
			Description: s.description(&settings),
			Locked:      settings.HasPassword(),
		})
	}
	return summaries, nil
}

// Info reports liveness, viewer count and description for one
// streamer. The count is zero while the stream is offline.
func (s *StreamService) Info(settings *model.StreamerSettings) StreamInfo {
	s.store.CleanSymlinks()

	live := s.store.Live(settings.Key, s.firstQuality)
	count := 0
	if live {
		count = s.presence.LiveCount(strings.ToLower(settings.Username))
	}
	return StreamInfo{
		Live:        live,
		Count:       count,
		Description: s.description(settings),
	}
}

// Playlist returns the rewritten playlist for a streamer, offline-
// checked first. quality is empty for the single-quality endpoint.
func (s *StreamService) Playlist(settings *model.StreamerSettings, quality string) (string, error) {
	streamer := strings.ToLower(settings.Username)
	if !s.store.Live(settings.Key, quality) {
		return "", apperrors.StreamOffline(streamer)
	}

	body, err := s.store.Playlist(streamer, settings.Key, quality)
	if err != nil {
		return "", err
	}

	s.store.CleanSymlinks()
	return body, nil
}

// Segment serves one raw segment file for the debug endpoint.
func (s *StreamService) Segment(filename string) ([]byte, error) {
	return s.store.Segment(filename)
}

// Publisher resolves a stream key presented by the ingest publish hook.
func (s *StreamService) Publisher(ctx context.Context, key string) (*model.StreamerSettings, error) {
	if key == "" {
		return nil, apperrors.NotFound("Stream key")
	}
	settings, err := s.streamerRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if settings == nil {
		return nil, apperrors.NotFound("Stream key")
	}
	return settings, nil
}

// Emotes returns the custom emote table keyed as ":alias:".
func (s *StreamService) Emotes(ctx context.Context) (map[string]string, error) {
	all, err := s.emoteRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	table := make(map[string]string, len(all))
	for _, e := range all {
		table[fmt.Sprintf(":%s:", e.Alias)] = e.URI
	}
	return table, nil
}

func (s *StreamService) description(settings *model.StreamerSettings) string {
	if settings.Description == nil || *settings.Description == "" {
		return ""
	}
	return s.transform(*settings.Description)
}
