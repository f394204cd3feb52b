package repository

import "context"

// Publisher copies a generated gallery to remote storage.
type Publisher interface {
	// Publish uploads every file under dir and returns how many were sent.
	Publish(ctx context.Context, dir string) (int, error)
}
