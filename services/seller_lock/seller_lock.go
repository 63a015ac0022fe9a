package seller_lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/marketplace/logger"
	"github.com/joy095/marketplace/utils"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lock:seller:"

// Locker serialises work per key across requests. Acquire fails fast with
// utils.ErrBusy when the key is already held.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// New uses Redis when a client is configured and a process-local lock
// otherwise. ttl bounds how long a crashed holder keeps the key.
func New(rdb *redis.Client, ttl time.Duration) Locker {
	if rdb == nil {
		logger.WarnLogger.Warn("Redis not configured, seller locks are process-local")
		return NewMemoryLocker()
	}
	return NewRedisLocker(rdb, ttl)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, keyPrefix+key, token, l.ttl).Result()
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to acquire lock %s: %v", key, err)
		return nil, err
	}
	if !ok {
		return nil, utils.ErrBusy
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{keyPrefix + key}, token).Err(); err != nil {
			logger.WarnLogger.Warnf("Failed to release lock %s: %v", key, err)
		}
	}, nil
}

type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, utils.ErrBusy
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
