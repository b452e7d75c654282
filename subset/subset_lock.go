package subset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const lockPrefix = "kheops-album-tools:subset:"

var (
	ErrDestinationLocked = errors.New("subset: destination folder is used by another run")
	ErrLockLost          = errors.New("subset: destination lock expired during the run")
)

// Lease is a held destination lock. Refresh is called for every file of a
// run and only extends the lock once half of its TTL has passed.
type Lease interface {
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}

// Locker guards a destination folder against concurrent runs.
type Locker interface {
	Lock(ctx context.Context, destDir string) (Lease, error)
}

type NopLocker struct{}

type nopLease struct{}

func (NopLocker) Lock(ctx context.Context, destDir string) (Lease, error) {
	return nopLease{}, nil
}

func (nopLease) Refresh(context.Context) error { return nil }
func (nopLease) Release(context.Context) error { return nil }

type RedisLocker struct {
	redisClient *redis.Client
	locker      *redislock.Client
	ttl         time.Duration
	logger      *zap.Logger
}

func NewRedisLocker(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		redisClient: redisClient,
		locker:      redislock.New(redisClient),
		ttl:         ttl,
		logger:      logger,
	}
}

// DialRedisLocker connects to the redis server at addr ("host:port").
func DialRedisLocker(ctx context.Context, addr string, ttl time.Duration, logger *zap.Logger) (*RedisLocker, error) {
	redisClient := redis.NewClient(&redis.Options{
		Network:    "tcp",
		Addr:       addr,
		MaxRetries: 1,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("subset: redis %s: %w", addr, err)
	}
	return NewRedisLocker(redisClient, ttl, logger), nil
}

func lockKey(destDir string) (string, error) {
	abs, err := filepath.Abs(destDir)
	if err != nil {
		return "", err
	}
	return lockPrefix + filepath.Clean(abs), nil
}

func (l *RedisLocker) Lock(ctx context.Context, destDir string) (Lease, error) {
	key, err := lockKey(destDir)
	if err != nil {
		return nil, err
	}
	lock, err := l.locker.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrDestinationLocked
	}
	if err != nil {
		return nil, err
	}
	l.logger.Debug("destination locked", zap.String("key", key))
	return newRedisLease(lock, key, l.ttl, l.logger), nil
}

func (l *RedisLocker) Close() error {
	return l.redisClient.Close()
}

// heldLock is the part of *redislock.Lock a lease uses.
type heldLock interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

type redisLease struct {
	lock      heldLock
	key       string
	ttl       time.Duration
	refreshed time.Time
	now       func() time.Time
	logger    *zap.Logger
}

func newRedisLease(lock heldLock, key string, ttl time.Duration, logger *zap.Logger) *redisLease {
	return &redisLease{
		lock:      lock,
		key:       key,
		ttl:       ttl,
		refreshed: time.Now(),
		now:       time.Now,
		logger:    logger,
	}
}

func (l *redisLease) Refresh(ctx context.Context) error {
	now := l.now()
	if now.Sub(l.refreshed) < l.ttl/2 {
		return nil
	}
	err := l.lock.Refresh(ctx, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("%w: %s", ErrLockLost, l.key)
	}
	if err != nil {
		return err
	}
	l.refreshed = now
	l.logger.Debug("destination lock refreshed", zap.String("key", l.key))
	return nil
}

func (l *redisLease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}
