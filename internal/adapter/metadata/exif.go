package metadata

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
)

// EXIFResolver reads Orientation and ImageDescription from the EXIF block of
// a JPEG or TIFF file. Files without EXIF resolve to empty metadata.
type EXIFResolver struct{}

func NewEXIFResolver() *EXIFResolver {
	return &EXIFResolver{}
}

var _ repository.MetadataResolver = (*EXIFResolver)(nil)

func (r *EXIFResolver) Resolve(_ context.Context, path string) (entity.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.Metadata{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if x == nil {
		return entity.Metadata{}, nil
	}
	if err != nil && exif.IsCriticalError(err) {
		return entity.Metadata{}, fmt.Errorf("decode exif in %s: %w", path, err)
	}

	var md entity.Metadata
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			applyOrientation(&md, strconv.Itoa(v))
		}
	}
	if tag, err := x.Get(exif.ImageDescription); err == nil {
		if s, err := tag.StringVal(); err == nil {
			if s = strings.TrimSpace(strings.TrimRight(s, "\x00")); s != "" {
				md.Description, md.HasDescription = s, true
			}
		}
	}
	return md, nil
}
