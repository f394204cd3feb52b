package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/adapter/local"
	"github.com/user/photo-gallery/internal/delivery/http/handler"
	"github.com/user/photo-gallery/internal/delivery/http/router"
	"github.com/user/photo-gallery/internal/delivery/http/server"
	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/usecase"
	"github.com/user/photo-gallery/internal/watcher"
)

const (
	welcomeKey      = "welcome_shown"
	generateTimeout = 15 * time.Minute
	shutdownTimeout = 10 * time.Second
)

const welcomeText = `Welcome to the photo gallery generator.

Give it some photos and an output folder and it writes a complete gallery
there: an index page, a style sheet, a viewer script, a README and an
images/ folder with a full-size copy and a thumbnail of every photo.
The gallery works offline; open the index page in any browser.

`

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runGenerate(e *env, args []string) int {
	dir, _ := e.flags.GetString("dir")
	publish, _ := e.flags.GetBool("publish")
	if len(args) == 0 && dir == "" {
		fmt.Fprintln(e.stderr, "generate: no photos given; pass files or --dir DIR")
		return exitUsage
	}
	cfg, err := e.cfg.GalleryConfig()
	if err != nil {
		fmt.Fprintf(e.stderr, "generate: %v\n", err)
		return exitUsage
	}
	if publish && !e.cfg.PublishEnabled() {
		fmt.Fprintln(e.stderr, "generate: --publish needs publish.endpoint and publish.bucket")
		return exitUsage
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, e.cfg, e.logger)
	if err != nil {
		e.logger.Error("Failed to start", zap.Error(err))
		return exitFailure
	}
	defer a.Close()

	e.welcome()

	candidates := make([]usecase.Candidate, 0, len(args))
	for _, path := range args {
		candidates = append(candidates, usecase.Candidate{Path: path})
	}
	if dir != "" {
		found, err := a.selector.CollectDirectory(dir)
		if err != nil {
			fmt.Fprintf(e.stderr, "generate: %v\n", err)
			return exitUsage
		}
		candidates = append(candidates, found...)
	}

	outcome := generate(ctx, a, candidates, cfg, e.progress)
	e.report(outcome)

	if publish && outcome.Succeeded() {
		if code := e.publish(ctx, outcome.OutputPath); code != exitOK {
			return code
		}
	}
	return exitCode(outcome)
}

func runServe(e *env, _ []string) int {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, e.cfg, e.logger)
	if err != nil {
		e.logger.Error("Failed to start", zap.Error(err))
		return exitFailure
	}
	defer a.Close()

	// --- HTTP Server ---
	h := handler.NewHandler(a.generator, a.selector, a.runs, e.cfg.GalleryDefaults(), a.pingers, e.logger)
	r := router.New(h, router.Options{
		PreviewDir:      e.cfg.Gallery.OutputPath,
		GenerateTimeout: generateTimeout,
	}, e.logger)
	srv := server.NewServer(e.cfg.Server.Port, r, generateTimeout+30*time.Second, e.logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			e.logger.Error("Server stopped", zap.Error(err))
			return exitFailure
		}
		return exitOK
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		e.logger.Error("Graceful shutdown failed", zap.Error(err))
		return exitFailure
	}
	return exitOK
}

func runWatch(e *env, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(e.stderr, "watch: exactly one folder is required")
		return exitUsage
	}
	dir := args[0]
	cfg, err := e.cfg.GalleryConfig()
	if err != nil {
		fmt.Fprintf(e.stderr, "watch: %v\n", err)
		return exitUsage
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, e.cfg, e.logger)
	if err != nil {
		e.logger.Error("Failed to start", zap.Error(err))
		return exitFailure
	}
	defer a.Close()

	e.welcome()

	rebuild := func(ctx context.Context) error {
		candidates, err := a.selector.CollectDirectory(dir)
		if err != nil {
			return err
		}
		outcome := generate(ctx, a, candidates, cfg, e.progress)
		e.report(outcome)
		if !outcome.Succeeded() {
			return errors.New(outcome.Message)
		}
		return nil
	}

	w, err := watcher.New(dir, rebuild, e.logger,
		watcher.WithDebounce(e.cfg.Watch.Debounce),
		watcher.WithIgnore(cfg.OutputPath),
	)
	if err != nil {
		e.logger.Error("Failed to start watcher", zap.Error(err))
		return exitFailure
	}

	if err := rebuild(ctx); err != nil {
		e.logger.Warn("Initial build failed", zap.Error(err))
	}
	if err := w.Run(ctx); err != nil {
		e.logger.Error("Watcher stopped", zap.Error(err))
		return exitFailure
	}
	return exitOK
}

func runPublish(e *env, _ []string) int {
	if !e.cfg.PublishEnabled() {
		fmt.Fprintln(e.stderr, "publish: set publish.endpoint and publish.bucket")
		return exitUsage
	}
	if e.cfg.Gallery.OutputPath == "" {
		fmt.Fprintln(e.stderr, "publish: --output is required")
		return exitUsage
	}

	ctx, stop := signalContext()
	defer stop()
	return e.publish(ctx, e.cfg.Gallery.OutputPath)
}

// generate resolves the selection and hands it to the orchestrator. An empty
// selection still goes through the orchestrator so it is reported and recorded.
func generate(ctx context.Context, a *app, candidates []usecase.Candidate, cfg entity.GalleryConfig, progress usecase.ProgressFunc) entity.Outcome {
	descriptors, err := a.selector.Select(ctx, candidates)
	if err != nil && ctx.Err() != nil {
		return entity.Outcome{
			Status:     entity.RunCancelled,
			OutputPath: cfg.OutputPath,
			Total:      len(candidates),
			Message:    "Generation cancelled before it started",
		}
	}
	return a.generator.Generate(ctx, descriptors, cfg, progress)
}

func (e *env) publish(ctx context.Context, dir string) int {
	pub, err := newPublisher(e.cfg, e.logger)
	if err != nil {
		fmt.Fprintf(e.stderr, "publish: %v\n", err)
		return exitUsage
	}
	n, err := pub.Publish(ctx, dir)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(e.stdout, "Publishing cancelled")
			return exitCancelled
		}
		fmt.Fprintf(e.stdout, "Could not publish %s: %v\n", dir, err)
		return exitFailure
	}
	fmt.Fprintf(e.stdout, "Published %d files from %s to bucket %s\n", n, dir, e.cfg.Publish.Bucket)
	return exitOK
}

func (e *env) progress(current, total int, message string) {
	fmt.Fprintf(e.stderr, "[%d/%d] %s\n", current, total, message)
}

func (e *env) report(o entity.Outcome) {
	for _, f := range o.Failures {
		fmt.Fprintf(e.stderr, "  skipped %s: %s\n", f.Path, f.Reason)
	}
	fmt.Fprintln(e.stdout, o.Message)
}

// welcome prints the introduction the first time the tool runs for a user.
func (e *env) welcome() {
	store, err := local.NewSettings(e.cfg.SettingsPath)
	if err != nil {
		e.logger.Debug("Settings unavailable", zap.Error(err))
		return
	}
	if shown, ok, err := store.Get(welcomeKey); err == nil && ok && shown == "true" {
		return
	}
	fmt.Fprint(e.stderr, welcomeText)
	if err := store.Set(welcomeKey, "true"); err != nil {
		e.logger.Debug("Failed to save settings", zap.String("path", store.Path()), zap.Error(err))
	}
}

func exitCode(o entity.Outcome) int {
	switch o.Status {
	case entity.RunSucceeded:
		return exitOK
	case entity.RunCancelled:
		return exitCancelled
	}
	return exitFailure
}
