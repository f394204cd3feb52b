package imaging

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"

	// Decoders for every format the allow-list can actually decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
)

const (
	ThumbSuffix  = entity.ThumbnailSuffix
	renditionExt = ".jpg"

	DefaultMaxSourcePixels = 100_000_000
)

// Optimizer decodes a source image and writes its full and thumbnail JPEG
// renditions.
type Optimizer struct {
	maxSourcePixels int
	logger          *zap.Logger
}

// NewOptimizer creates an optimizer that refuses sources with more than
// maxSourcePixels pixels, bounding the memory a single decode can take.
func NewOptimizer(maxSourcePixels int, logger *zap.Logger) *Optimizer {
	if maxSourcePixels <= 0 {
		maxSourcePixels = DefaultMaxSourcePixels
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{maxSourcePixels: maxSourcePixels, logger: logger}
}

var _ repository.ImageOptimizer = (*Optimizer)(nil)

// RenditionNames returns the file names of the full and thumbnail renditions
// for a base name.
func RenditionNames(base string) (full, thumb string) {
	return base + renditionExt, base + ThumbSuffix + renditionExt
}

// Optimize implements repository.ImageOptimizer.
func (o *Optimizer) Optimize(ctx context.Context, req repository.OptimizeRequest) (*entity.ProcessedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := o.decode(req.Descriptor.Path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deg := req.Descriptor.RotationDegrees
	sb := src.Bounds()
	ow, oh := orientedSize(sb.Dx(), sb.Dy(), deg)

	fullW, fullH := Fit(ow, oh, req.Config.FullMaxDimension)
	thumbW, thumbH := Fit(ow, oh, req.Config.ThumbnailSize)
	if fullW == 0 || thumbW == 0 {
		return nil, fmt.Errorf("%s: cannot fit %dx%d: %w", req.Descriptor.FileName(), ow, oh, repository.ErrInvalidDimensions)
	}

	// Scale in source orientation, then rotate the smaller result.
	sw, sh := orientedSize(fullW, fullH, deg)
	scaled := scaleOnto(src, sw, sh)
	full := rotate(scaled, deg)

	tw, th := orientedSize(thumbW, thumbH, deg)
	thumbSrc := image.Image(scaled)
	if tw > sw || th > sh {
		thumbSrc = src
	}
	thumb := rotate(scaleOnto(thumbSrc, tw, th), deg)

	fullName, thumbName := RenditionNames(req.BaseName)
	fullPath := filepath.Join(req.ImagesDir, fullName)
	thumbPath := filepath.Join(req.ImagesDir, thumbName)

	if err := writeJPEG(fullPath, full, req.Config.Quality); err != nil {
		return nil, fmt.Errorf("%s: %w", fullName, err)
	}
	if err := writeJPEG(thumbPath, thumb, req.Config.Quality); err != nil {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("%s: %w", thumbName, err)
	}

	o.logger.Debug("optimized image",
		zap.String("source", req.Descriptor.Path),
		zap.String("full", fullName),
		zap.Int("full_width", fullW),
		zap.Int("full_height", fullH),
		zap.Int("rotation", deg),
	)

	return &entity.ProcessedImage{
		Index:  req.Index,
		Source: req.Descriptor,
		Full: entity.Rendition{
			RelativePath: path.Join(req.RelativeDir, fullName),
			Width:        fullW,
			Height:       fullH,
		},
		Thumbnail: entity.Rendition{
			RelativePath: path.Join(req.RelativeDir, thumbName),
			Width:        thumbW,
			Height:       thumbH,
		},
	}, nil
}

func (o *Optimizer) decode(p string) (image.Image, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%s: open source: %v: %w", filepath.Base(p), err, repository.ErrUnsupportedFormat)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", filepath.Base(p), err, repository.ErrUnsupportedFormat)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%s: %dx%d: %w", filepath.Base(p), cfg.Width, cfg.Height, repository.ErrInvalidDimensions)
	}
	if cfg.Width*cfg.Height > o.maxSourcePixels {
		return nil, fmt.Errorf("%s: %dx%d exceeds %d pixels: %w",
			filepath.Base(p), cfg.Width, cfg.Height, o.maxSourcePixels, repository.ErrInvalidDimensions)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%s: rewind: %v: %w", filepath.Base(p), err, repository.ErrUnsupportedFormat)
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: decode %s: %v: %w", filepath.Base(p), format, err, repository.ErrUnsupportedFormat)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%s: empty bounds: %w", filepath.Base(p), repository.ErrInvalidDimensions)
	}
	return img, nil
}
