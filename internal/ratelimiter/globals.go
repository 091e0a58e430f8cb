package ratelimiter

import (
	"time"
)

const (
	DefaultMaxConcurrency = 8
	DefaultMaxRetries     = 3
	DefaultBackoffBase    = 2.0
	DefaultBackoffUnit    = time.Second
)
