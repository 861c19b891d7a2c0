package kafka

import "errors"

// ErrRetry tells the consumer to redeliver the message after the retry
// delay instead of committing it.
var ErrRetry = errors.New("kafka: retry message")
