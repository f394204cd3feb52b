package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
	"github.com/user/photo-gallery/pkg/utils"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var funcs = texttemplate.FuncMap{
	"comment": func(s string) string { return strings.ReplaceAll(s, "*/", "* /") },
}

var (
	indexTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/index.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.New("").Funcs(funcs).ParseFS(templateFS,
		"templates/style.css.tmpl",
		"templates/script.js.tmpl",
		"templates/README.txt.tmpl",
	))
)

// Palette is the set of colours a theme resolves to.
type Palette struct {
	Background string
	Foreground string
	Muted      string
	Card       string
	Overlay    string
}

var palettes = map[string]Palette{
	entity.ThemeDark: {
		Background: "#111111",
		Foreground: "#eeeeee",
		Muted:      "#9a9a9a",
		Card:       "#1c1c1c",
		Overlay:    "rgba(0, 0, 0, 0.92)",
	},
	entity.ThemeLight: {
		Background: "#fafafa",
		Foreground: "#222222",
		Muted:      "#666666",
		Card:       "#ffffff",
		Overlay:    "rgba(255, 255, 255, 0.96)",
	},
}

type imageView struct {
	Index       int
	Position    int
	FullPath    string
	FullWidth   int
	FullHeight  int
	ThumbPath   string
	ThumbWidth  int
	ThumbHeight int
	Title       string
	Description string
	Alt         string
}

type pageView struct {
	Title        string
	Theme        string
	Count        int
	Images       []imageView
	LazyLoad     bool
	ShowCaptions bool
	Lightbox     bool
}

type styleView struct {
	Title         string
	Palette       Palette
	ThumbnailSize int
	Columns       int
	MediumColumns int
	SmallColumns  int
	Lightbox      bool
}

type scriptView struct {
	Title    string
	Lightbox bool
	LazyLoad bool
}

type skippedView struct {
	File string
	Kind string
}

type manifestView struct {
	Title          string
	Rule           string
	Count          int
	Total          int
	Skipped        []skippedView
	Generated      string
	IndexFile      string
	RenditionCount int
	Images         []imageView
	ConfigYAML     string
}

type document struct {
	name string
	data []byte
}

// Renderer writes the static part of a gallery from embedded templates.
type Renderer struct {
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock replaces the clock used for the manifest's generation time.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// New creates a Renderer that writes the gallery documents.
func New(logger *zap.Logger, opts ...Option) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Renderer{now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ repository.GalleryRenderer = (*Renderer)(nil)

// Render implements repository.GalleryRenderer. Every document is produced in
// memory before the first byte reaches disk.
func (r *Renderer) Render(ctx context.Context, in repository.RenderInput) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs, err := r.build(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrRenderFailure, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	written := make([]string, 0, len(docs))
	for _, doc := range docs {
		dest := filepath.Join(in.OutputDir, doc.name)
		if err := utils.WriteFileAtomic(dest, doc.data, 0o644); err != nil {
			r.logger.Error("Failed to write gallery file", zap.String("file", dest), zap.Error(err))
			return written, fmt.Errorf("%w: %w", repository.ErrRenderFailure, err)
		}
		written = append(written, doc.name)
	}

	r.logger.Info("Gallery rendered",
		zap.String("output", in.OutputDir),
		zap.Int("images", len(in.Images)),
		zap.Int("skipped", len(in.Skipped)),
	)
	return written, nil
}

func (r *Renderer) build(in repository.RenderInput) ([]document, error) {
	cfg := in.Config
	indexName := cfg.IndexFileName
	if indexName == "" {
		indexName = entity.IndexHTML
	}
	palette, ok := palettes[cfg.Theme]
	if !ok {
		palette = palettes[entity.ThemeDark]
	}
	columns := max(cfg.Columns, 1)
	images := imageViews(in.Images)

	var index bytes.Buffer
	err := indexTemplate.Execute(&index, pageView{
		Title:        cfg.Title,
		Theme:        cfg.Theme,
		Count:        len(images),
		Images:       images,
		LazyLoad:     cfg.LazyLoad,
		ShowCaptions: cfg.ShowCaptions,
		Lightbox:     cfg.Lightbox,
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", indexName, err)
	}

	style, err := execute("style.css.tmpl", styleView{
		Title:         cfg.Title,
		Palette:       palette,
		ThumbnailSize: cfg.ThumbnailSize,
		Columns:       columns,
		MediumColumns: min(columns, 3),
		SmallColumns:  min(columns, 2),
		Lightbox:      cfg.Lightbox,
	})
	if err != nil {
		return nil, err
	}

	script, err := execute("script.js.tmpl", scriptView{
		Title:    cfg.Title,
		Lightbox: cfg.Lightbox,
		LazyLoad: cfg.LazyLoad,
	})
	if err != nil {
		return nil, err
	}

	snapshot, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config snapshot: %w", err)
	}
	skipped := make([]skippedView, 0, len(in.Skipped))
	for _, f := range in.Skipped {
		skipped = append(skipped, skippedView{File: filepath.Base(f.Path), Kind: f.Kind})
	}
	manifest, err := execute("README.txt.tmpl", manifestView{
		Title:          cfg.Title,
		Rule:           strings.Repeat("=", utf8.RuneCountInString(cfg.Title)),
		Count:          len(images),
		Total:          in.Total,
		Skipped:        skipped,
		Generated:      r.now().UTC().Format(time.RFC3339),
		IndexFile:      indexName,
		RenditionCount: 2 * len(images),
		Images:         images,
		ConfigYAML:     strings.TrimRight(string(snapshot), "\n"),
	})
	if err != nil {
		return nil, err
	}

	return []document{
		{name: indexName, data: index.Bytes()},
		{name: entity.StylesheetFile, data: style},
		{name: entity.ScriptFile, data: script},
		{name: entity.ManifestFile, data: manifest},
	}, nil
}

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", strings.TrimSuffix(name, ".tmpl"), err)
	}
	return buf.Bytes(), nil
}

func imageViews(images []entity.ProcessedImage) []imageView {
	views := make([]imageView, 0, len(images))
	for i, img := range images {
		title := img.Source.DisplayTitle()
		views = append(views, imageView{
			Index:       img.Index,
			Position:    i + 1,
			FullPath:    img.Full.RelativePath,
			FullWidth:   img.Full.Width,
			FullHeight:  img.Full.Height,
			ThumbPath:   img.Thumbnail.RelativePath,
			ThumbWidth:  img.Thumbnail.Width,
			ThumbHeight: img.Thumbnail.Height,
			Title:       title,
			Description: img.Source.Description,
			Alt:         title,
		})
	}
	return views
}
