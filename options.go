package sml

import (
	"io"

	"github.com/sirupsen/logrus"

	"sml/internal/protocol/ratchet"
	"sml/internal/services/prekey"
)

// Config collects the tunables of a client. The zero value is usable;
// NewClient fills in defaults.
type Config struct {
	// Logger receives lifecycle events. Defaults to a logger that
	// discards everything.
	Logger *logrus.Logger

	// MaxSkippedKeys bounds the skipped message keys cached per session
	// and the largest counter gap tolerated in one envelope.
	MaxSkippedKeys int

	// OneTimePreKeyCount is the pool size the client replenishes
	// one-time pre-keys toward.
	OneTimePreKeyCount int
}

// Option mutates Config during NewClient.
type Option func(*Config)

// WithLogger directs lifecycle logging to the given logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMaxSkippedKeys overrides the skipped-key cache bound.
func WithMaxSkippedKeys(n int) Option {
	return func(c *Config) { c.MaxSkippedKeys = n }
}

// WithOneTimePreKeyCount overrides the one-time pre-key pool size.
func WithOneTimePreKeyCount(n int) Option {
	return func(c *Config) { c.OneTimePreKeyCount = n }
}

func buildConfig(opts []Option) Config {
	cfg := Config{
		MaxSkippedKeys:     ratchet.DefaultMaxSkipped,
		OneTimePreKeyCount: prekey.DefaultOneTimeCount,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
		cfg.Logger.SetOutput(io.Discard)
	}
	if cfg.MaxSkippedKeys <= 0 {
		cfg.MaxSkippedKeys = ratchet.DefaultMaxSkipped
	}
	if cfg.OneTimePreKeyCount <= 0 {
		cfg.OneTimePreKeyCount = prekey.DefaultOneTimeCount
	}
	return cfg
}
