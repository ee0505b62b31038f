package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port              int      `env:"PORT" envDefault:"8080"`
	DatabaseURL       string   `env:"DATABASE_URL,required"`
	RedisURL          string   `env:"REDIS_URL,required"`
	HLSDir            string   `env:"HLS_DIR" envDefault:"hls"`
	HLSPlaylistLength int      `env:"HLS_PLAYLIST_LENGTH" envDefault:"10"`
	VideoQualities    []string `env:"VIDEO_QUALITIES" envSeparator:","`
	AllowedOrigins    []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	LogLevel          string   `env:"LOG_LEVEL" envDefault:"info"`
}

// PlaylistTTL is how far behind a playlist's mtime may lag before the
// stream is considered offline.
func (c *Config) PlaylistTTL() time.Duration {
	return time.Duration(c.HLSPlaylistLength) * time.Second
}

// FirstQuality returns the quality variant used for liveness checks, or
// the empty string when streams are published without quality suffixes.
func (c *Config) FirstQuality() string {
	if len(c.VideoQualities) == 0 {
		return ""
	}
	return c.VideoQualities[0]
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.HLSPlaylistLength <= 0 {
		return fmt.Errorf("HLS_PLAYLIST_LENGTH must be a positive number of seconds")
	}

	for _, quality := range c.VideoQualities {
		if quality == "" {
			return fmt.Errorf("VIDEO_QUALITIES must not contain empty entries")
		}
		if strings.ContainsAny(quality, "/\\_") {
			return fmt.Errorf("invalid quality %q: qualities are embedded in playlist filenames", quality)
		}
	}

	if isProduction {
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if len(c.AllowedOrigins) == 0 {
			log.Warn().Msg("ALLOWED_ORIGINS is empty in production: websocket connections accepted from any origin")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
