package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/photo-gallery/internal/repository"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestLockRepo_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	repo := NewLockRepo(client)

	release, err := repo.Acquire(ctx, "out", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("photo-gallery:out"))

	_, err = repo.Acquire(ctx, "out", time.Minute)
	assert.ErrorIs(t, err, repository.ErrRunInProgress)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("photo-gallery:out"))

	again, err := repo.Acquire(ctx, "out", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLockRepo_ExpiredLeaseDoesNotReleaseNewHolder(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	repo := NewLockRepo(client)

	stale, err := repo.Acquire(ctx, "out", time.Second)
	require.NoError(t, err)
	ttl := mr.TTL("photo-gallery:out")
	assert.Equal(t, time.Second, ttl)

	mr.FastForward(2 * time.Second)

	fresh, err := repo.Acquire(ctx, "out", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("photo-gallery:out"), "new holder keeps the lock")

	require.NoError(t, fresh(ctx))
	assert.False(t, mr.Exists("photo-gallery:out"))
}

func TestLockRepo_ConnectionError(t *testing.T) {
	mr, client := setupRedis(t)
	repo := NewLockRepo(client)
	mr.Close()

	_, err := repo.Acquire(context.Background(), "out", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrRunInProgress)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := NewClient(context.Background(), addr, "", 0)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	_, err = NewClient(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
