package chromedp_snapshot

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/repository"
	"github.com/user/photo-gallery/pkg/utils"
)

const (
	defaultWidth  = 1280
	defaultHeight = 800
)

// ChromedpSnapshotter opens a generated gallery in headless Chrome and saves
// a full-page screenshot of it.
type ChromedpSnapshotter struct {
	width, height int
	allocOpts     []chromedp.ExecAllocatorOption
	logger        *zap.Logger
}

// NewChromedpSnapshotter creates a Snapshotter rendering at the given viewport
// size. Zero dimensions use 1280x800.
func NewChromedpSnapshotter(width, height int, logger *zap.Logger) *ChromedpSnapshotter {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		// The gallery must not need the network; make sure it cannot use it.
		chromedp.ProxyServer("http://127.0.0.1:9"),
	)
	return &ChromedpSnapshotter{width: width, height: height, allocOpts: opts, logger: logger}
}

var _ repository.Snapshotter = (*ChromedpSnapshotter)(nil)

// Capture implements repository.Snapshotter. destPath ending in .png gets a
// lossless image; anything else is written as JPEG.
func (s *ChromedpSnapshotter) Capture(ctx context.Context, indexPath, destPath string) error {
	target, err := fileURL(indexPath)
	if err != nil {
		return err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, s.allocOpts...)
	defer cancelAlloc()

	sugar := s.logger.Sugar()
	taskCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(sugar.Debugf))
	defer cancel()

	quality := 90
	if strings.EqualFold(filepath.Ext(destPath), ".png") {
		quality = 100
	}

	var buf []byte
	err = chromedp.Run(taskCtx,
		chromedp.EmulateViewport(int64(s.width), int64(s.height)),
		chromedp.Navigate(target),
		chromedp.WaitVisible("#gallery", chromedp.ByQuery),
		chromedp.FullScreenshot(&buf, quality),
	)
	if err != nil {
		return fmt.Errorf("failed to capture %s: %w", target, err)
	}

	if err := utils.WriteFileAtomic(destPath, buf, 0o644); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	s.logger.Debug("Captured gallery snapshot", zap.String("url", target), zap.Int("bytes", len(buf)))
	return nil
}

func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return u.String(), nil
}
