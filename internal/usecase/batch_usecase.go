package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
	"github.com/user/photo-gallery/pkg/metrics"
	"github.com/user/photo-gallery/pkg/utils"
)

var (
	ErrNoImagesProcessed = errors.New("no images could be processed")
	ErrOutputUnwritable  = errors.New("images directory is not writable")
	ErrCancelled         = errors.New("generation cancelled")
)

// Failure kinds recorded for skipped items.
const (
	KindUnsupportedFormat = "unsupported_format"
	KindInvalidDimensions = "invalid_dimensions"
	KindWriteFailure      = "write_failure"
	KindUnknown           = "unknown"
)

// ItemError ties an optimizer error to the descriptor that caused it.
type ItemError struct {
	Index int
	Path  string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Index, filepath.Base(e.Path), e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// ProgressFunc receives one call per attempted item. Calls never overlap and
// current increases by one from 1 to total.
type ProgressFunc func(current, total int, message string)

// BatchProcessor runs the optimizer over an ordered list of descriptors.
type BatchProcessor interface {
	// Run returns the successful images in input order together with the
	// items that were skipped. It fails only when nothing succeeded, the
	// images directory is unusable, or ctx was cancelled.
	Run(ctx context.Context, descriptors []entity.AssetDescriptor, imagesDir string, cfg entity.GalleryConfig, progress ProgressFunc) ([]entity.ProcessedImage, []entity.ItemFailure, error)
}

type batchUseCase struct {
	optimizer repository.ImageOptimizer
	workers   int
	logger    *zap.Logger
}

// NewBatchUseCase creates a batch processor running up to workers optimizer
// calls at once. One worker gives a strictly sequential scan.
func NewBatchUseCase(optimizer repository.ImageOptimizer, workers int, logger *zap.Logger) BatchProcessor {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &batchUseCase{optimizer: optimizer, workers: workers, logger: logger}
}

type itemResult struct {
	image     *entity.ProcessedImage
	err       error
	attempted bool
}

func (uc *batchUseCase) Run(
	ctx context.Context,
	descriptors []entity.AssetDescriptor,
	imagesDir string,
	cfg entity.GalleryConfig,
	progress ProgressFunc,
) ([]entity.ProcessedImage, []entity.ItemFailure, error) {
	if err := checkWritableDir(imagesDir); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrOutputUnwritable, err)
	}
	if progress == nil {
		progress = func(int, int, string) {}
	}

	total := len(descriptors)
	names := make([]string, total)
	for i, d := range descriptors {
		names[i] = d.FileName()
	}
	bases := utils.UniqueBaseNames(names, entity.ThumbnailSuffix)
	relDir := filepath.Base(imagesDir)

	results := make([]itemResult, total)
	var (
		mu        sync.Mutex
		completed int
	)

	var g errgroup.Group
	g.SetLimit(uc.workers)
	for i, desc := range descriptors {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			start := time.Now()
			img, err := uc.optimizer.Optimize(ctx, repository.OptimizeRequest{
				Descriptor:  desc,
				Index:       i,
				BaseName:    bases[i],
				ImagesDir:   imagesDir,
				RelativeDir: relDir,
				Config:      cfg,
			})
			metrics.ImageProcessDuration.Observe(time.Since(start).Seconds())

			// An item interrupted by cancellation counts as never attempted.
			if err != nil && ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			results[i] = itemResult{image: img, err: err, attempted: true}
			completed++
			progress(completed, total, progressMessage(desc, err))
			return nil
		})
	}
	_ = g.Wait()

	// Keep the longest prefix of attempted items so a cancelled run still
	// yields a gallery that matches the start of the selection.
	prefix := total
	for i, r := range results {
		if !r.attempted {
			prefix = i
			break
		}
	}
	if prefix < total {
		for _, r := range results[prefix:] {
			if r.attempted && r.err == nil {
				removeRenditions(imagesDir, r.image)
			}
		}
		results = results[:prefix]
	}

	images, failures := uc.collect(descriptors, results)

	if prefix < total {
		uc.logger.Warn("Batch cancelled",
			zap.Int("attempted", prefix),
			zap.Int("total", total),
			zap.Int("processed", len(images)),
		)
		return images, failures, fmt.Errorf("%w after %d of %d images: %w", ErrCancelled, prefix, total, ctx.Err())
	}
	if len(images) == 0 {
		return nil, failures, fmt.Errorf("%w: all %d failed", ErrNoImagesProcessed, total)
	}

	uc.logger.Info("Batch finished",
		zap.Int("total", total),
		zap.Int("processed", len(images)),
		zap.Int("skipped", len(failures)),
	)
	return images, failures, nil
}

func (uc *batchUseCase) collect(descriptors []entity.AssetDescriptor, results []itemResult) ([]entity.ProcessedImage, []entity.ItemFailure) {
	images := make([]entity.ProcessedImage, 0, len(results))
	var failures []entity.ItemFailure
	for i, r := range results {
		if r.err == nil {
			metrics.ImagesProcessedTotal.WithLabelValues("success", "").Inc()
			images = append(images, *r.image)
			continue
		}

		kind := classify(r.err)
		metrics.ImagesProcessedTotal.WithLabelValues("failure", kind).Inc()
		itemErr := &ItemError{Index: i, Path: descriptors[i].Path, Err: r.err}
		uc.logger.Warn("Skipping image",
			zap.Int("index", i),
			zap.String("path", descriptors[i].Path),
			zap.String("kind", kind),
			zap.Error(itemErr),
		)
		failures = append(failures, entity.ItemFailure{
			Index:  i,
			Path:   descriptors[i].Path,
			Kind:   kind,
			Reason: r.err.Error(),
		})
	}
	return images, failures
}

func classify(err error) string {
	switch {
	case errors.Is(err, repository.ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, repository.ErrInvalidDimensions):
		return KindInvalidDimensions
	case errors.Is(err, repository.ErrWriteFailure):
		return KindWriteFailure
	default:
		return KindUnknown
	}
}

func progressMessage(desc entity.AssetDescriptor, err error) string {
	if err != nil {
		return "Skipped " + desc.FileName()
	}
	return "Processed " + desc.FileName()
}

func removeRenditions(imagesDir string, img *entity.ProcessedImage) {
	for _, rel := range img.RelativePaths() {
		_ = os.Remove(filepath.Join(imagesDir, filepath.Base(rel)))
	}
}

func checkWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	tmp, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	tmp.Close()
	return os.Remove(name)
}
