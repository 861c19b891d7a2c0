package postgres

import (
	"time"

	"github.com/okian/gympulse/pkg/logger"
)

// Option applies a configuration option to Open.
type Option func(*settings)

type settings struct {
	maxConns        int32
	minConns        int32
	maxConnLifetime time.Duration
	maxConnIdleTime time.Duration
	healthCheck     time.Duration
	migrate         bool
	log             logger.Logger
}

func defaults() settings {
	return settings{
		maxConns:        25,
		minConns:        5,
		maxConnLifetime: time.Hour,
		maxConnIdleTime: 30 * time.Minute,
		healthCheck:     time.Minute,
		migrate:         true,
	}
}

// WithPoolSize bounds the connection pool.
func WithPoolSize(minConns, maxConns int32) Option {
	return func(s *settings) {
		if maxConns > 0 {
			s.maxConns = maxConns
		}
		if minConns >= 0 && minConns <= s.maxConns {
			s.minConns = minConns
		}
	}
}

// WithMigrations toggles applying the embedded schema on Open.
func WithMigrations(enabled bool) Option {
	return func(s *settings) {
		s.migrate = enabled
	}
}

// WithLogger sets the logger used for skipped rows and migrations.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
