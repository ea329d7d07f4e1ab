package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	lockTTL           = 10 * time.Second
	lockRetryInterval = 25 * time.Millisecond
)

// Locker is a redis SETNX lock with token-checked release.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// keyedMutex hands out one mutex per key, dropping entries once no holder
// or waiter remains.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	e := k.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// Serializer serializes event processing per lock key. It uses a redis SETNX
// lock when redis is configured so multiple instances stay mutually
// exclusive, and falls back to in-process keyed mutexes otherwise.
type Serializer struct {
	locker *Locker
	local  *keyedMutex
}

func NewSerializer(cfg config.Config) *Serializer {
	s := &Serializer{local: newKeyedMutex()}

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return s
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})
	s.locker = NewLocker(client)
	return s
}

// Acquire blocks until the key is held or the context is done. The returned
// release must be called exactly once.
func (s *Serializer) Acquire(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		s.local.Lock(key)
		return func() { s.local.Unlock(key) }, nil
	}

	for {
		token, ok, err := s.locker.TryLock(ctx, key, lockTTL)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Release on a fresh context so a canceled request still
				// frees the lock.
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = s.locker.Release(releaseCtx, key, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}
