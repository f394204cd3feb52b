package metadata

import (
	"context"

	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
)

// Chain asks each resolver in turn and keeps, per field, the first value
// found. A failing resolver is logged and skipped: metadata is best effort.
type Chain struct {
	resolvers []repository.MetadataResolver
	logger    *zap.Logger
}

func NewChain(logger *zap.Logger, resolvers ...repository.MetadataResolver) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{resolvers: resolvers, logger: logger}
}

// NewDefault resolves from a sidecar file first, then the EXIF block, then
// the embedded XMP packet.
func NewDefault(logger *zap.Logger) *Chain {
	return NewChain(logger, NewSidecarResolver(), NewEXIFResolver(), NewXMPResolver(0))
}

var _ repository.MetadataResolver = (*Chain)(nil)

func (c *Chain) Resolve(ctx context.Context, path string) (entity.Metadata, error) {
	var md entity.Metadata
	for _, r := range c.resolvers {
		if err := ctx.Err(); err != nil {
			return md, err
		}
		found, err := r.Resolve(ctx, path)
		if err != nil {
			c.logger.Warn("metadata resolver failed", zap.String("path", path), zap.Error(err))
			continue
		}
		md = md.Merge(found)
		if md.Complete() {
			break
		}
	}
	return md, nil
}
