package approval

import (
	"log/slog"
	"time"

	"github.com/viant/taskgate/service/cache"
)

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithStatusCache caches decided statuses (they never change). Pending
// statuses are always read from the backend.
func WithStatusCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Store) {
		s.cache = c
		s.cacheTTL = ttl
	}
}
