package repository

import "context"

// Snapshotter renders a generated gallery and saves an image of it.
type Snapshotter interface {
	Capture(ctx context.Context, indexPath, destPath string) error
}
