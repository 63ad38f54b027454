package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when a session lock is not obtained in time.
var ErrLocked = errors.New("session is locked")

// Locker serializes turns per session. A wait of zero tries once.
type Locker interface {
	Acquire(ctx context.Context, sessionID string, wait time.Duration) (release func(), err error)
}

// LocalLocker holds turn locks in process memory.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

func (l *LocalLocker) Acquire(ctx context.Context, sessionID string, wait time.Duration) (func(), error) {
	lk := l.ref(sessionID)

	acquired := false
	if wait <= 0 {
		select {
		case lk.ch <- struct{}{}:
			acquired = true
		default:
		}
	} else {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case lk.ch <- struct{}{}:
			acquired = true
		case <-timer.C:
		case <-ctx.Done():
			l.unref(sessionID)
			return nil, ctx.Err()
		}
	}
	if !acquired {
		l.unref(sessionID)
		return nil, ErrLocked
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.unref(sessionID)
		})
	}, nil
}

func (l *LocalLocker) ref(id string) *localLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[id] = lk
	}
	lk.refs++
	return lk
}

func (l *LocalLocker) unref(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lk, ok := l.locks[id]; ok {
		lk.refs--
		if lk.refs <= 0 {
			delete(l.locks, id)
		}
	}
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds turn locks in redis so several server processes can
// share sessions. Locks expire after ttl if a holder dies.
type RedisLocker struct {
	rdb  *redis.Client
	ttl  time.Duration
	poll time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, poll: 50 * time.Millisecond}
}

func lockKey(sessionID string) string {
	return fmt.Sprintf("turnlock:%s", sessionID)
}

func (l *RedisLocker) Acquire(ctx context.Context, sessionID string, wait time.Duration) (func(), error) {
	key := lockKey(sessionID)
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock for %s: %w", sessionID, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					if err := releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Err(); err != nil {
						log.Printf("[Session] failed to release lock %s: %v", key, err)
					}
				})
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLocked
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}
