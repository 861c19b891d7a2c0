package api

import "github.com/okian/gympulse/pkg/logger"

type settings struct {
	jwtSecret string
	logger    logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*settings)

// WithJWTSecret enables HS256 bearer token verification.
func WithJWTSecret(secret string) Option {
	return func(s *settings) {
		s.jwtSecret = secret
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(log logger.Logger) Option {
	return func(s *settings) {
		s.logger = log
	}
}
