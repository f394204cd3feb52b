package local

import (
	"context"
	"sync"
	"time"

	"github.com/user/photo-gallery/internal/repository"
)

// LockImpl is an in-process RunLocker. It only serializes runs inside one
// process; use the Redis locker when several processes share output folders.
type LockImpl struct {
	mu    sync.Mutex
	held  map[string]lease
	now   func() time.Time
	token uint64
}

type lease struct {
	token   uint64
	expires time.Time
}

// NewLock creates a new instance of LockImpl.
func NewLock() *LockImpl {
	return &LockImpl{held: make(map[string]lease), now: time.Now}
}

var _ repository.RunLocker = (*LockImpl)(nil)

// Acquire takes the lock for key. An expired lease counts as free; a
// non-positive ttl never expires.
func (l *LockImpl) Acquire(ctx context.Context, key string, ttl time.Duration) (repository.ReleaseFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[key]; ok && (cur.expires.IsZero() || now.Before(cur.expires)) {
		return nil, repository.ErrRunInProgress
	}
	l.token++
	token := l.token
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	l.held[key] = lease{token: token, expires: expires}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		// A lease taken over after expiry belongs to someone else now.
		if cur, ok := l.held[key]; ok && cur.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
