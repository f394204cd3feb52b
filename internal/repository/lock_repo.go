package repository

import (
	"context"
	"time"
)

// ReleaseFunc gives a held lock back.
type ReleaseFunc func(ctx context.Context) error

// RunLocker serializes runs that target the same output directory.
type RunLocker interface {
	// Acquire takes the lock for key or returns ErrRunInProgress.
	// ttl bounds how long a crashed holder can block others.
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}
