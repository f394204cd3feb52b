package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
	"github.com/user/photo-gallery/pkg/metrics"
	"github.com/user/photo-gallery/pkg/utils"
)

var (
	ErrInvalidOutputPath = errors.New("invalid output path")
	ErrSourceInOutput    = errors.New("source photo is inside the gallery images folder")
)

const (
	defaultLockTTL = 30 * time.Minute
	lockKeyPrefix  = "gallery:lock:"
)

// GalleryGenerator is the single entry point every adapter drives.
type GalleryGenerator interface {
	// Generate never returns an error: every failure is folded into the
	// Outcome with one user-facing message.
	Generate(ctx context.Context, descriptors []entity.AssetDescriptor, cfg entity.GalleryConfig, progress ProgressFunc) entity.Outcome
}

// GalleryOptions tunes the orchestration around the core pipeline.
type GalleryOptions struct {
	LockTTL    time.Duration
	CleanStale bool
	// SnapshotPath is where the preview screenshot goes. Empty means
	// "<output>-preview.png" beside the output directory.
	SnapshotPath    string
	SnapshotTimeout time.Duration
}

type galleryUseCase struct {
	batch       BatchProcessor
	renderer    repository.GalleryRenderer
	locker      repository.RunLocker
	runs        repository.RunRepository
	snapshotter repository.Snapshotter
	opts        GalleryOptions
	logger      *zap.Logger
	now         func() time.Time
}

// NewGalleryUseCase wires the orchestrator. runs and snapshotter are optional.
func NewGalleryUseCase(
	batch BatchProcessor,
	renderer repository.GalleryRenderer,
	locker repository.RunLocker,
	runs repository.RunRepository,
	snapshotter repository.Snapshotter,
	opts GalleryOptions,
	logger *zap.Logger,
) GalleryGenerator {
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &galleryUseCase{
		batch:       batch,
		renderer:    renderer,
		locker:      locker,
		runs:        runs,
		snapshotter: snapshotter,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}

func (uc *galleryUseCase) Generate(
	ctx context.Context,
	descriptors []entity.AssetDescriptor,
	cfg entity.GalleryConfig,
	progress ProgressFunc,
) entity.Outcome {
	out := entity.Outcome{
		RunID:      uuid.NewString(),
		OutputPath: cfg.OutputPath,
		Total:      len(descriptors),
		StartedAt:  uc.now(),
	}
	logger := uc.logger.With(zap.String("run_id", out.RunID))

	metrics.RunsInProgress.Inc()
	defer metrics.RunsInProgress.Dec()

	finish := func(status entity.RunStatus, format string, args ...any) entity.Outcome {
		out.Status = status
		out.Message = fmt.Sprintf(format, args...)
		out.FinishedAt = uc.now()
		metrics.RunsTotal.WithLabelValues(string(status)).Inc()
		metrics.RunDuration.Observe(out.FinishedAt.Sub(out.StartedAt).Seconds())

		fields := []zap.Field{
			zap.String("status", string(status)),
			zap.String("output", out.OutputPath),
			zap.Int("processed", out.Processed),
			zap.Int("skipped", out.Skipped),
			zap.String("message", out.Message),
		}
		if status == entity.RunSucceeded {
			logger.Info("Gallery run finished", fields...)
		} else {
			logger.Warn("Gallery run finished", fields...)
		}
		uc.record(ctx, logger, out)
		return out
	}

	if len(descriptors) == 0 {
		return finish(entity.RunFailed, MsgNoFilesSelected)
	}

	cfg, err := cfg.Normalize()
	if err != nil {
		return finish(entity.RunFailed, "Gallery settings are invalid: %v", err)
	}
	outputDir, err := resolveOutputDir(cfg.OutputPath)
	if err != nil {
		return finish(entity.RunFailed, "Cannot use output folder %s: %v", cfg.OutputPath, err)
	}
	cfg.OutputPath = outputDir
	out.OutputPath = outputDir

	imagesDir := filepath.Join(outputDir, entity.ImagesDir)
	for _, d := range descriptors {
		if insideDir(d.Path, imagesDir) {
			logger.Warn("Rejecting run", zap.String("source", d.Path), zap.Error(ErrSourceInOutput))
			return finish(entity.RunFailed, "Cannot use output folder %s: %s is inside its %s folder and would be overwritten",
				outputDir, d.Path, entity.ImagesDir)
		}
	}

	if ctx.Err() != nil {
		return finish(entity.RunCancelled, "Generation cancelled before it started")
	}

	release, err := uc.locker.Acquire(ctx, lockKeyPrefix+utils.HashPath(outputDir), uc.opts.LockTTL)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRunInProgress):
			return finish(entity.RunFailed, "Another gallery is already being generated in %s", outputDir)
		case ctx.Err() != nil:
			return finish(entity.RunCancelled, "Generation cancelled before it started")
		}
		return finish(entity.RunFailed, "Could not lock output folder %s: %v", outputDir, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to release run lock", zap.String("output", outputDir), zap.Error(err))
		}
	}()

	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return finish(entity.RunFailed, "Could not create output folder %s: %v", outputDir, err)
	}

	logger.Info("Generating gallery",
		zap.String("output", outputDir),
		zap.Int("images", len(descriptors)),
	)

	images, failures, err := uc.batch.Run(ctx, descriptors, imagesDir, cfg, progress)
	out.Processed = len(images)
	out.Skipped = len(failures)
	out.Failures = failures

	cancelled := false
	switch {
	case errors.Is(err, ErrCancelled):
		cancelled = true
		if len(images) == 0 {
			return finish(entity.RunCancelled, "Generation cancelled before any image was processed")
		}
	case errors.Is(err, ErrNoImagesProcessed):
		return finish(entity.RunFailed, "None of the %d selected images could be processed", len(descriptors))
	case errors.Is(err, ErrOutputUnwritable):
		return finish(entity.RunFailed, "Cannot write images to %s: %v", imagesDir, err)
	case err != nil:
		return finish(entity.RunFailed, "Image processing failed: %v", err)
	}

	uc.trackOwnedFiles(logger, outputDir, runFiles(cfg, images))

	// A cancelled run still renders the prefix it finished, so the output
	// folder never holds renditions without a matching page.
	renderCtx := ctx
	if cancelled {
		renderCtx = context.WithoutCancel(ctx)
	}
	_, err = uc.renderer.Render(renderCtx, repository.RenderInput{
		OutputDir: outputDir,
		Images:    images,
		Config:    cfg,
		Total:     len(descriptors),
		Skipped:   failures,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return finish(entity.RunCancelled, "Generation cancelled before the gallery page was written")
		}
		return finish(entity.RunFailed, "Could not write gallery files to %s: %v", outputDir, err)
	}

	verification, err := VerifyOutput(outputDir, cfg, images)
	if err != nil {
		return finish(entity.RunFailed, "Could not verify gallery in %s: %v", outputDir, err)
	}
	out.FilesCreated = verification.Present
	if !verification.OK() {
		return finish(entity.RunFailed, "Gallery in %s is incomplete: %s", outputDir, verification.Summary())
	}

	if uc.snapshotter != nil && !cancelled {
		uc.snapshot(ctx, logger, outputDir, cfg)
	}

	if cancelled {
		return finish(entity.RunCancelled, "Generation cancelled; gallery in %s contains the first %d of %d images",
			outputDir, len(images), len(descriptors))
	}
	if len(failures) > 0 {
		return finish(entity.RunSucceeded, "Gallery created in %s with %d images (%d skipped)",
			outputDir, len(images), len(failures))
	}
	return finish(entity.RunSucceeded, "Gallery created in %s with %d images", outputDir, len(images))
}

func resolveOutputDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("%w: %s is a file", ErrInvalidOutputPath, abs)
	case err != nil && !os.IsNotExist(err):
		return "", fmt.Errorf("%w: %w", ErrInvalidOutputPath, err)
	}
	return abs, nil
}

// trackOwnedFiles records the files this run writes. With CleanStale set it
// first removes what the previous run wrote and this one does not; files the
// gallery never wrote are left alone.
func (uc *galleryUseCase) trackOwnedFiles(logger *zap.Logger, outputDir string, current []string) {
	previous, err := readOwnedFiles(outputDir)
	if err != nil {
		logger.Warn("Ignoring unreadable file record", zap.String("dir", outputDir), zap.Error(err))
		previous = nil
	}

	owned := mergeFiles(current, nil)
	if uc.opts.CleanStale {
		uc.pruneStale(logger, outputDir, previous, owned)
	} else {
		owned = mergeFiles(current, previous)
	}

	if err := writeOwnedFiles(outputDir, owned); err != nil {
		logger.Warn("Failed to record gallery files", zap.String("dir", outputDir), zap.Error(err))
	}
}

func (uc *galleryUseCase) pruneStale(logger *zap.Logger, outputDir string, previous, current []string) {
	keep := make(map[string]bool, len(current))
	for _, rel := range current {
		keep[rel] = true
	}

	removed := 0
	for _, rel := range previous {
		if keep[rel] || !removableFile(rel) {
			continue
		}
		err := os.Remove(filepath.Join(outputDir, filepath.FromSlash(rel)))
		switch {
		case err == nil:
			removed++
		case !errors.Is(err, fs.ErrNotExist):
			logger.Warn("Failed to remove stale file", zap.String("file", rel), zap.Error(err))
		}
	}

	if removed > 0 {
		logger.Info("Removed stale files", zap.Int("count", removed))
	}
}

func (uc *galleryUseCase) snapshot(ctx context.Context, logger *zap.Logger, outputDir string, cfg entity.GalleryConfig) {
	dest := uc.opts.SnapshotPath
	if dest == "" {
		dest = outputDir + "-preview.png"
	}
	if uc.opts.SnapshotTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.opts.SnapshotTimeout)
		defer cancel()
	}
	index := filepath.Join(outputDir, cfg.OutputFiles()[0])
	if err := uc.snapshotter.Capture(ctx, index, dest); err != nil {
		logger.Warn("Failed to capture gallery snapshot", zap.String("dest", dest), zap.Error(err))
		return
	}
	logger.Info("Saved gallery snapshot", zap.String("dest", dest))
}

func (uc *galleryUseCase) record(ctx context.Context, logger *zap.Logger, out entity.Outcome) {
	if uc.runs == nil {
		return
	}
	if err := uc.runs.Save(context.WithoutCancel(ctx), entity.RunFromOutcome(out)); err != nil {
		logger.Warn("Failed to record gallery run", zap.Error(err))
	}
}
