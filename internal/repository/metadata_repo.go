package repository

import (
	"context"

	"github.com/user/photo-gallery/internal/entity"
)

// MetadataResolver looks up title, description and rotation for a file.
// A resolver that finds nothing returns an empty Metadata and no error.
type MetadataResolver interface {
	Resolve(ctx context.Context, path string) (entity.Metadata, error)
}
