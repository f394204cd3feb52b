package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/photo-gallery/internal/repository"
)

const lockKeyPrefix = "photo-gallery:"

// releaseScript deletes the key only while it still holds our token, so a
// holder whose lease expired cannot free somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockRepoImpl provides a concrete implementation for the RunLocker interface using Redis.
type LockRepoImpl struct {
	client *redis.Client
}

// NewLockRepo creates a new instance of LockRepoImpl.
func NewLockRepo(client *redis.Client) *LockRepoImpl {
	return &LockRepoImpl{client: client}
}

var _ repository.RunLocker = (*LockRepoImpl)(nil)

func (r *LockRepoImpl) generateKey(key string) string {
	return fmt.Sprintf("%s%s", lockKeyPrefix, key)
}

// Acquire sets the key with SET NX PX. The lease expires after ttl even if
// the holder never releases it.
func (r *LockRepoImpl) Acquire(ctx context.Context, key string, ttl time.Duration) (repository.ReleaseFunc, error) {
	redisKey := r.generateKey(key)
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, repository.ErrRunInProgress
	}

	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
