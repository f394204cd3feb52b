package repository

import (
	"context"

	"github.com/user/photo-gallery/internal/entity"
)

// OptimizeRequest carries everything needed to produce the renditions of one
// descriptor. BaseName is assigned by the batch so names stay unique.
type OptimizeRequest struct {
	Descriptor  entity.AssetDescriptor
	Index       int
	BaseName    string
	ImagesDir   string // absolute directory renditions are written to
	RelativeDir string // same directory, relative to the output root
	Config      entity.GalleryConfig
}

// ImageOptimizer produces the full and thumbnail renditions of one image.
// Implementations keep no state between calls.
type ImageOptimizer interface {
	Optimize(ctx context.Context, req OptimizeRequest) (*entity.ProcessedImage, error)
}
