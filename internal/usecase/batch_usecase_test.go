package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
)

// fakeOptimizer writes two placeholder files per item unless hook fails it.
type fakeOptimizer struct {
	hook func(ctx context.Context, index int) error

	mu    sync.Mutex
	bases map[int]string
}

func (f *fakeOptimizer) Optimize(ctx context.Context, req repository.OptimizeRequest) (*entity.ProcessedImage, error) {
	f.mu.Lock()
	if f.bases == nil {
		f.bases = make(map[int]string)
	}
	f.bases[req.Index] = req.BaseName
	f.mu.Unlock()

	if f.hook != nil {
		if err := f.hook(ctx, req.Index); err != nil {
			return nil, err
		}
	}

	full, thumb := req.BaseName+".jpg", req.BaseName+entity.ThumbnailSuffix+".jpg"
	for _, name := range []string{full, thumb} {
		if err := os.WriteFile(filepath.Join(req.ImagesDir, name), []byte("x"), 0o644); err != nil {
			return nil, fmt.Errorf("%w: %w", repository.ErrWriteFailure, err)
		}
	}
	return &entity.ProcessedImage{
		Index:     req.Index,
		Source:    req.Descriptor,
		Full:      entity.Rendition{RelativePath: path.Join(req.RelativeDir, full), Width: 100, Height: 50},
		Thumbnail: entity.Rendition{RelativePath: path.Join(req.RelativeDir, thumb), Width: 20, Height: 10},
	}, nil
}

func descriptors(n int) []entity.AssetDescriptor {
	out := make([]entity.AssetDescriptor, n)
	for i := range out {
		out[i] = entity.AssetDescriptor{Path: fmt.Sprintf("/photos/img%02d.jpg", i)}
	}
	return out
}

type progressCall struct {
	current, total int
	message        string
}

type progressRecorder struct {
	mu      sync.Mutex
	calls   []progressCall
	inside  atomic.Int32
	overlap atomic.Bool
}

func (p *progressRecorder) report(current, total int, message string) {
	if p.inside.Add(1) > 1 {
		p.overlap.Store(true)
	}
	defer p.inside.Add(-1)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, progressCall{current, total, message})
}

func (p *progressRecorder) currents() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.calls))
	for i, c := range p.calls {
		out[i] = c.current
	}
	return out
}

func indexes(images []entity.ProcessedImage) []int {
	out := make([]int, len(images))
	for i, img := range images {
		out[i] = img.Index
	}
	return out
}

func imagesDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), entity.ImagesDir)
	require.NoError(t, os.Mkdir(dir, 0o755))
	return dir
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestBatch_IsolatesFailuresAndKeepsOrder(t *testing.T) {
	opt := &fakeOptimizer{hook: func(_ context.Context, i int) error {
		switch i {
		case 1:
			return fmt.Errorf("decode: %w", repository.ErrUnsupportedFormat)
		case 3:
			return repository.ErrInvalidDimensions
		}
		return nil
	}}
	dir := imagesDir(t)
	rec := &progressRecorder{}

	images, failures, err := NewBatchUseCase(opt, 1, zap.NewNop()).
		Run(context.Background(), descriptors(5), dir, entity.DefaultGalleryConfig(), rec.report)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 4}, indexes(images))
	require.Len(t, failures, 2)
	assert.Equal(t, 1, failures[0].Index)
	assert.Equal(t, KindUnsupportedFormat, failures[0].Kind)
	assert.Equal(t, "/photos/img01.jpg", failures[0].Path)
	assert.Equal(t, KindInvalidDimensions, failures[1].Kind)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, rec.currents())
	for _, c := range rec.calls {
		assert.Equal(t, 5, c.total)
	}
	assert.Equal(t, "Skipped img01.jpg", rec.calls[1].message)
	assert.Equal(t, "images/img00.jpg", images[0].Full.RelativePath)
	assert.Equal(t, 6, countFiles(t, dir))
}

func TestBatch_WorkerPoolPreservesOrderAndProgress(t *testing.T) {
	const n = 24
	opt := &fakeOptimizer{hook: func(_ context.Context, i int) error {
		// Later items finish first.
		time.Sleep(time.Duration(n-i) * time.Millisecond)
		if i%5 == 0 {
			return errors.New("boom")
		}
		return nil
	}}
	rec := &progressRecorder{}

	images, failures, err := NewBatchUseCase(opt, 6, zap.NewNop()).
		Run(context.Background(), descriptors(n), imagesDir(t), entity.DefaultGalleryConfig(), rec.report)
	require.NoError(t, err)

	got := indexes(images)
	var want []int
	for i := 0; i < n; i++ {
		if i%5 != 0 {
			want = append(want, i)
		}
	}
	assert.Equal(t, want, got)
	assert.Len(t, failures, 5)
	for _, f := range failures {
		assert.Equal(t, KindUnknown, f.Kind)
	}

	currents := rec.currents()
	require.Len(t, currents, n)
	for i, c := range currents {
		assert.Equal(t, i+1, c)
	}
	assert.False(t, rec.overlap.Load(), "progress calls overlapped")
}

func TestBatch_UniqueBaseNames(t *testing.T) {
	opt := &fakeOptimizer{}
	descs := []entity.AssetDescriptor{
		{Path: "/a/photo.jpg"},
		{Path: "/b/photo.jpg"},
		{Path: "/c/Photo.JPG"},
		{Path: "/d/photo_thumb.png"},
	}

	_, _, err := NewBatchUseCase(opt, 1, zap.NewNop()).
		Run(context.Background(), descs, imagesDir(t), entity.DefaultGalleryConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, "photo", opt.bases[0])
	assert.Equal(t, "photo-2", opt.bases[1])
	assert.Equal(t, "photo-3", opt.bases[2])
	assert.Equal(t, "photo_thumb-2", opt.bases[3])
}

func TestBatch_AllFailed(t *testing.T) {
	opt := &fakeOptimizer{hook: func(context.Context, int) error { return repository.ErrUnsupportedFormat }}
	rec := &progressRecorder{}

	images, failures, err := NewBatchUseCase(opt, 2, zap.NewNop()).
		Run(context.Background(), descriptors(3), imagesDir(t), entity.DefaultGalleryConfig(), rec.report)
	assert.ErrorIs(t, err, ErrNoImagesProcessed)
	assert.Empty(t, images)
	assert.Len(t, failures, 3)
	assert.Len(t, rec.currents(), 3)
}

func TestBatch_UnwritableImagesDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", entity.ImagesDir)
	opt := &fakeOptimizer{}

	_, _, err := NewBatchUseCase(opt, 1, zap.NewNop()).
		Run(context.Background(), descriptors(2), missing, entity.DefaultGalleryConfig(), nil)
	assert.ErrorIs(t, err, ErrOutputUnwritable)
	assert.Empty(t, opt.bases, "optimizer must not run")
}

func TestBatch_CancelSequential(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opt := &fakeOptimizer{}
	dir := imagesDir(t)
	rec := &progressRecorder{}

	progress := func(current, total int, msg string) {
		rec.report(current, total, msg)
		if current == 2 {
			cancel()
		}
	}

	images, _, err := NewBatchUseCase(opt, 1, zap.NewNop()).
		Run(ctx, descriptors(5), dir, entity.DefaultGalleryConfig(), progress)
	require.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []int{0, 1}, indexes(images))
	assert.Equal(t, []int{1, 2}, rec.currents())
	assert.Equal(t, 4, countFiles(t, dir))
}

func TestBatch_CancelKeepsOnlyAttemptedPrefix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Item 0 runs until cancellation, so no prefix is ever complete.
	opt := &fakeOptimizer{hook: func(ctx context.Context, i int) error {
		if i == 0 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}}
	dir := imagesDir(t)

	progress := func(current, _ int, _ string) {
		if current == 3 {
			cancel()
		}
	}

	images, failures, err := NewBatchUseCase(opt, 4, zap.NewNop()).
		Run(ctx, descriptors(10), dir, entity.DefaultGalleryConfig(), progress)
	require.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, images)
	assert.Empty(t, failures)
	assert.Equal(t, 0, countFiles(t, dir), "renditions outside the prefix are removed")
}

func TestBatch_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opt := &fakeOptimizer{}

	images, _, err := NewBatchUseCase(opt, 1, zap.NewNop()).
		Run(ctx, descriptors(3), imagesDir(t), entity.DefaultGalleryConfig(), nil)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, images)
	assert.Empty(t, opt.bases)
}

func TestItemError(t *testing.T) {
	err := &ItemError{Index: 2, Path: "/x/y.png", Err: repository.ErrWriteFailure}
	assert.Equal(t, "item 2 (y.png): failed to write rendition", err.Error())
	assert.ErrorIs(t, err, repository.ErrWriteFailure)
	assert.Equal(t, KindWriteFailure, classify(err))
}
