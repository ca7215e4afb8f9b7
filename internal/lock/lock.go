// Package lock serializes mutations of a single community record.
//
// Every lifecycle operation is a read-modify-write against the community
// row plus its set tables. Counts and set rows are already updated with
// atomic statements; the lock additionally serializes whole operations
// when redis is available, and degrades to no coordination when it is
// not (single-writer deployments, tests).
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultTTL     = 5 * time.Second
	acquireBackoff = 20 * time.Millisecond
)

type Locker struct {
	client *redis.Client
	script *redis.Script
}

// New returns a Locker, or nil when no redis client is configured. A nil
// Locker is valid: WithLock runs the callback without coordination.
func New(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(releaseScript),
	}
}

func (l *Locker) tryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// WithLock runs fn while holding the named lock, polling until the lock
// is acquired or ctx is done.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}

	var token string
	for {
		t, ok, err := l.tryLock(ctx, key, defaultTTL)
		if err != nil {
			return err
		}
		if ok {
			token = t
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(acquireBackoff):
		}
	}
	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	return fn(ctx)
}
