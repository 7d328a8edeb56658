package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohammed-shakir/occurrence-explorer/internal/cache"
	"github.com/mohammed-shakir/occurrence-explorer/internal/cache/keys"
	"github.com/mohammed-shakir/occurrence-explorer/internal/cache/redisstore"
)

// RedisStore keeps slots as JSON under a per-session key, so several
// dashboard replicas can serve the same browser session.
type RedisStore struct {
	kv        cache.Interface
	ttl       time.Duration
	opTimeout time.Duration
}

func NewRedisStore(kv cache.Interface, ttl, opTimeout time.Duration) *RedisStore {
	return &RedisStore{kv: kv, ttl: ttl, opTimeout: opTimeout}
}

func (r *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opTimeout)
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := r.kv.Get(ctx, keys.SessionResult(id))
	if errors.Is(err, redisstore.ErrNil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	return decodeSnapshot(b)
}

func (r *RedisStore) Put(ctx context.Context, id string, s *Snapshot) error {
	b, err := encodeSnapshot(s)
	if err != nil {
		return err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.kv.Set(ctx, keys.SessionResult(id), b, r.ttl); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.kv.Del(ctx, keys.SessionResult(id)); err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.kv.Ping(ctx)
}
