// Package lock provides per-key mutual exclusion for session writers.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotAcquired is returned when the lock could not be taken before the context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker serializes work on a key. The returned release func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// Backend names accepted by New.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// New returns the Locker for backend. The memory backend only serializes
// writers inside one process.
func New(backend string, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) (Locker, error) {
	switch backend {
	case BackendRedis, "":
		return NewRedisLocker(rdb, ttl, log), nil
	case BackendMemory:
		log.Warn().Msg("session locks are in-process; run a single server instance")
		return NewKeyedMutex(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", backend)
	}
}
