package locks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"inspection-platform/pkg/utils"
)

// Redis is a Locker shared by every API replica. Each acquisition stores a random
// token under the key with a TTL; release deletes the key only if the token still matches.
type Redis struct {
	rdb    redis.Scripter
	prefix string
	ttl    time.Duration
	poll   time.Duration
	log    *slog.Logger
}

type RedisOption func(*Redis)

func WithPrefix(p string) RedisOption { return func(r *Redis) { r.prefix = p } }

func WithPollInterval(d time.Duration) RedisOption { return func(r *Redis) { r.poll = d } }

func WithLogger(l *slog.Logger) RedisOption { return func(r *Redis) { r.log = l } }

func NewRedis(rdb redis.Scripter, ttl time.Duration, opts ...RedisOption) (*Redis, error) {
	if rdb == nil {
		return nil, fmt.Errorf("locks: redis client is nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("locks: ttl must be > 0")
	}
	r := &Redis{
		rdb:    rdb,
		prefix: "inspection:lock:call:",
		ttl:    ttl,
		poll:   25 * time.Millisecond,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	k := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	for {
		ok, err := utils.AcquireLock(ctx, r.rdb, k, token, r.ttl)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("locks: acquire %s: %w", key, err)
		}
		if ok {
			return r.releaser(k, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r *Redis) releaser(key, token string) func() {
	var once sync.Once
	return func() { once.Do(func() { r.release(key, token) }) }
}

// release runs on a fresh context; the request context may already be cancelled.
func (r *Redis) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	released, err := utils.ReleaseLock(ctx, r.rdb, key, token)
	if err != nil {
		r.log.Warn("lock release failed", "key", key, "err", err)
		return
	}
	if !released {
		r.log.Warn("lock expired before release", "key", key, "ttl", r.ttl.String())
	}
}
