package repository

import (
	"context"

	"github.com/user/photo-gallery/internal/entity"
)

// RunRepository keeps the history of generation runs.
type RunRepository interface {
	// Save inserts a run or replaces the record with the same ID.
	Save(ctx context.Context, run *entity.GalleryRun) error
	// FindByID returns ErrRunNotFound when no run has the given ID.
	FindByID(ctx context.Context, id string) (*entity.GalleryRun, error)
	// ListRecent returns the newest runs first.
	ListRecent(ctx context.Context, limit int) ([]*entity.GalleryRun, error)
}
