package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/haebom/tariff/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeServiceUnavailable, "lock is held by another owner")
	ErrLockNotHeld     = errors.New(errors.ErrCodeInternal, "lock not held by this owner")
)

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Mutex is a single-owner lock with a lease.  The lease expires on its own
// if the owner dies, so ttl should outlast the guarded work.
type Mutex struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

// NewMutex returns a mutex stored at "<prefix>lock:<name>".
func NewMutex(client *Client, name string, ttl time.Duration) *Mutex {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Mutex{
		client: client,
		key:    client.Key("lock", name),
		value:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryLock takes the lock without waiting.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	rdb, err := m.client.conn()
	if err != nil {
		return false, err
	}
	ok, err := rdb.SetNX(ctx, m.key, m.value, m.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock")
	}
	return ok, nil
}

// Lock retries TryLock every retryDelay until ctx ends.
func (m *Mutex) Lock(ctx context.Context, retryDelay time.Duration) error {
	for {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrLockNotAcquired.WithCause(ctx.Err())
		case <-time.After(retryDelay):
		}
	}
}

// Unlock releases the lock if this mutex still owns it.
func (m *Mutex) Unlock(ctx context.Context) error {
	rdb, err := m.client.conn()
	if err != nil {
		return err
	}
	res, err := unlockScript.Run(ctx, rdb, []string{m.key}, m.value).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock")
	}
	if res == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend renews the lease.  It reports false when the lock was lost.
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	rdb, err := m.client.conn()
	if err != nil {
		return false, err
	}
	res, err := extendScript.Run(ctx, rdb, []string{m.key}, m.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to extend lock")
	}
	return res == 1, nil
}
