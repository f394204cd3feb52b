package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/pkg/config"
	"github.com/user/photo-gallery/pkg/logger"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitCancelled = 3
)

const usage = `Usage: gallery <command> [flags]

Commands:
  generate [flags] FILE... | --dir DIR   build a gallery from photos
  serve    [flags]                       run the HTTP API
  watch    [flags] DIR                   rebuild the gallery whenever DIR changes
  publish  [flags]                       upload the output folder to object storage

Run "gallery <command> --help" for the flags of a command.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	var cmd func(*env, []string) int
	switch args[0] {
	case "generate":
		cmd = runGenerate
	case "serve":
		cmd = runServe
	case "watch":
		cmd = runWatch
	case "publish":
		cmd = runPublish
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	e, rest, err := setup(args[0], args[1:], stdout, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	defer func() { _ = e.logger.Sync() }()

	return cmd(e, rest)
}

// env carries what every command needs after flags and config are parsed.
type env struct {
	cfg    *config.Config
	flags  *pflag.FlagSet
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

func setup(name string, args []string, stdout, stderr io.Writer) (*env, []string, error) {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.StringP("config", "c", "", "configuration file (default ./gallery.yaml when present)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Int("workers", 1, "images processed in parallel")
	defineCommandFlags(name, flags)

	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return nil, nil, err
	}

	return &env{
		cfg:    cfg,
		flags:  flags,
		logger: log,
		stdout: stdout,
		stderr: stderr,
	}, flags.Args(), nil
}

func defineCommandFlags(name string, flags *pflag.FlagSet) {
	switch name {
	case "generate":
		galleryFlags(flags)
		flags.String("dir", "", "add every supported photo in this folder")
		flags.Bool("snapshot", false, "save a screenshot of the finished gallery")
		flags.Bool("publish", false, "upload the gallery after a successful run")
	case "watch":
		galleryFlags(flags)
	case "serve":
		galleryFlags(flags)
		flags.String("port", "8080", "HTTP listen port")
	case "publish":
		flags.StringP("output", "o", "", "gallery folder to upload")
	}
}

func galleryFlags(flags *pflag.FlagSet) {
	def := entity.DefaultGalleryConfig()
	flags.StringP("output", "o", "", "output folder for the gallery")
	flags.String("title", def.Title, "gallery title")
	flags.Int("columns", def.Columns, "grid columns on wide screens")
	flags.Int("thumb-size", def.ThumbnailSize, "longest side of thumbnails in pixels")
	flags.Int("max-size", def.FullMaxDimension, "longest side of full-size images in pixels")
	flags.Int("quality", def.Quality, "JPEG quality (1-100)")
	flags.String("theme", def.Theme, "page theme: dark or light")
	flags.Bool("lightbox", def.Lightbox, "open photos in a full-screen viewer")
	flags.Bool("lazy-load", def.LazyLoad, "load thumbnails lazily")
	flags.Bool("captions", def.ShowCaptions, "show titles under thumbnails")
	flags.String("index-file", def.IndexFileName, "index page name: index.html or index.htm")
}
