package runlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/kotsworld/mailsync/interfaces"
	mailsync_errors "github.com/kotsworld/mailsync/internal/errors"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/tracing"
	"github.com/kotsworld/mailsync/internal/utils"
)

const (
	// DefaultLeaseTTL bounds how long a crashed holder can block the next run.
	// A live holder renews the lease every third of it.
	DefaultLeaseTTL = 30 * time.Minute

	keyPrefix = "mailsync:run:"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the key only if it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// New returns a Redis lease when redisURL is set and an in-process lock otherwise.
func New(redisURL string, log logger.Logger) (interfaces.RunLock, error) {
	if redisURL == "" {
		return NewLocalLock(), nil
	}
	return NewRedisLock(redisURL, log, DefaultLeaseTTL)
}

// LocalLock serialises runs inside one process.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]bool)}
}

func (l *LocalLock) Acquire(ctx context.Context, name string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[name] {
		return nil, errors.Wrap(mailsync_errors.ErrRunInProgress, name)
	}
	l.held[name] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, nil
}

// RedisLock is a lease shared by every replica pointing at the same Redis.
type RedisLock struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

func NewRedisLock(redisURL string, log logger.Logger, ttl time.Duration) (*RedisLock, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &RedisLock{rdb: redis.NewClient(opt), ttl: ttl, log: log}, nil
}

func (l *RedisLock) Acquire(ctx context.Context, name string) (func(), error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RedisLock.Acquire")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("lock.name", name)

	key := keyPrefix + name
	token := utils.GenerateNanoIDWithPrefix("lock", 16)

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("run lock SETNX: %w", err)
	}
	if !ok {
		return nil, errors.Wrap(mailsync_errors.ErrRunInProgress, name)
	}

	stop := make(chan struct{})
	go l.keepAlive(name, key, token, stop)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil {
				l.log.Warnf("[%s] Failed to release run lock: %v", name, err)
			}
		})
	}, nil
}

// keepAlive renews the lease until stop is closed or the lease is lost.
func (l *RedisLock) keepAlive(name, key, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			held, err := l.renew(ctx, key, token)
			cancel()
			if err != nil {
				l.log.Warnf("[%s] Failed to renew run lock: %v", name, err)
				continue
			}
			if !held {
				l.log.Errorf("[%s] Run lock expired before the run finished", name)
				return
			}
		}
	}
}

// renew reports false when the key no longer holds token.
func (l *RedisLock) renew(ctx context.Context, key, token string) (bool, error) {
	n, err := renewScript.Run(ctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("run lock renew: %w", err)
	}
	return n == 1, nil
}

func (l *RedisLock) Close() error {
	return l.rdb.Close()
}
