package repository

import (
	"context"

	"github.com/user/photo-gallery/internal/entity"
)

// RenderInput is the ordered result of a batch plus what was left out of it.
type RenderInput struct {
	OutputDir string
	Images    []entity.ProcessedImage
	Config    entity.GalleryConfig
	Total     int
	Skipped   []entity.ItemFailure
}

// GalleryRenderer writes the markup, stylesheet, script and manifest.
// It returns the names of the files written, relative to OutputDir.
type GalleryRenderer interface {
	Render(ctx context.Context, in RenderInput) ([]string, error)
}
