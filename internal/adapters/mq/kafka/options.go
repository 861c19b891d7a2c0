package kafka

import (
	"time"

	"github.com/okian/gympulse/pkg/logger"
)

// Option applies a configuration option to the Consumer.
type Option func(*Consumer)

// WithRetryDelay sets how long the consumer waits after a failed fetch or a
// message that asked to be retried.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// WithLogger sets a custom logger for the consumer.
func WithLogger(log logger.Logger) Option {
	return func(c *Consumer) {
		c.logger = log
	}
}
