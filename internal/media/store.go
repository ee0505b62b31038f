package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/Mynotaurus/gostreaming/internal/errors"
)

// Store serves the HLS artifacts the ingest writes into one directory,
// keyed by stream key. Playlists are never handed out raw: every
// segment line is rewritten to a streamer-named symlink alias so the
// stream key stays out of viewer-visible URLs.
type Store struct {
	dir string
	ttl time.Duration
}

func NewStore(dir string, playlistTTL time.Duration) *Store {
	return &Store{dir: dir, ttl: playlistTTL}
}

func playlistName(key, quality string) string {
	if quality != "" {
		return fmt.Sprintf("%s_%s.m3u8", key, quality)
	}
	return key + ".m3u8"
}

// Live reports whether the ingest is currently writing this playlist:
// the file exists and was modified within the playlist window.
func (s *Store) Live(key, quality string) bool {
	info, err := os.Stat(filepath.Join(s.dir, playlistName(key, quality)))
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return time.Since(info.ModTime()) < s.ttl
}

// Playlist returns the playlist body with every segment line rewritten
// from the stream key to the streamer alias. The key surviving anywhere
// in the output is a hard failure, not a best-effort warning.
func (s *Store) Playlist(streamer, key, quality string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, playlistName(key, quality)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperrors.StreamOffline(streamer)
		}
		return "", apperrors.Internal("Failed to read playlist").WithCause(err)
	}

	prefix, alias := key, streamer
	if quality != "" {
		prefix = key + "_" + quality
		alias = streamer + "_" + quality
	}

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, prefix) && strings.HasSuffix(line, ".ts") {
			newname := alias + line[len(prefix):]
			if err := s.symlink(line, newname); err != nil {
				return "", apperrors.Internal("Failed to alias segment").WithCause(err)
			}
			line = "/hls/" + newname
		}
		if strings.Contains(line, key) {
			log.Error().Str("streamer", streamer).Int("line", i).Msg("stream key leaked into playlist output")
			return "", apperrors.KeyLeak(streamer)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n"), nil
}

// Segment reads one transport stream file. Debug use only; production
// setups serve /hls straight from the ingest directory.
func (s *Store) Segment(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFound("Segment")
		}
		return nil, apperrors.Internal("Failed to read segment").WithCause(err)
	}
	return data, nil
}

// symlink aliases oldname as newname inside the HLS directory. An
// existing alias is left in place.
func (s *Store) symlink(oldname, newname string) error {
	err := os.Symlink(filepath.Join(s.dir, oldname), filepath.Join(s.dir, newname))
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return err
	}
	return nil
}

// CleanSymlinks removes aliases whose targets the ingest has deleted.
// Cleanup must never interrupt playlist serving, so every failure is
// skipped rather than surfaced.
func (s *Store) CleanSymlinks() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", s.dir).Msg("failed to scan hls directory")
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.Type()&fs.ModeSymlink == 0 {
			continue
		}
		full := filepath.Join(s.dir, entry.Name())
		target, err := os.Readlink(full)
		if err != nil {
			continue
		}
		if info, err := os.Stat(target); err == nil && info.Mode().IsRegular() {
			continue
		}
		if err := os.Remove(full); err == nil {
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("cleaned stale hls symlinks")
	}
}
