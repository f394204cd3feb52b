package entity

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	ThemeDark  = "dark"
	ThemeLight = "light"

	IndexHTML = "index.html"
	IndexHTM  = "index.htm"

	StylesheetFile = "style.css"
	ScriptFile     = "script.js"
	ManifestFile   = "README.txt"
	ImagesDir      = "images"

	// ThumbnailSuffix is appended to a rendition base name for the thumbnail.
	ThumbnailSuffix = "_thumb"
)

// Bounds applied when a configuration is accepted.
const (
	MinColumns          = 1
	MaxColumns          = 12
	MinThumbnailSize    = 32
	MaxThumbnailSize    = 2048
	MinFullMaxDimension = 64
	MaxFullMaxDimension = 10000
	MinQuality          = 1
	MaxQuality          = 100
)

var ErrInvalidConfig = errors.New("invalid gallery configuration")

// GalleryConfig holds the user's layout, style and quality choices for one run.
type GalleryConfig struct {
	OutputPath       string `json:"output_path" yaml:"output_path"`
	Title            string `json:"title" yaml:"title"`
	Columns          int    `json:"columns" yaml:"columns"`
	ThumbnailSize    int    `json:"thumbnail_size" yaml:"thumbnail_size"`
	FullMaxDimension int    `json:"full_max_dimension" yaml:"full_max_dimension"`
	Quality          int    `json:"quality" yaml:"quality"`
	Theme            string `json:"theme" yaml:"theme"`
	Lightbox         bool   `json:"lightbox" yaml:"lightbox"`
	LazyLoad         bool   `json:"lazy_load" yaml:"lazy_load"`
	ShowCaptions     bool   `json:"show_captions" yaml:"show_captions"`
	IndexFileName    string `json:"index_file" yaml:"index_file"`
}

// DefaultGalleryConfig returns the settings used when the user changes nothing.
func DefaultGalleryConfig() GalleryConfig {
	return GalleryConfig{
		Title:            "Photo Gallery",
		Columns:          4,
		ThumbnailSize:    300,
		FullMaxDimension: 1600,
		Quality:          85,
		Theme:            ThemeDark,
		Lightbox:         true,
		LazyLoad:         true,
		ShowCaptions:     true,
		IndexFileName:    IndexHTML,
	}
}

// Normalize clamps numeric options into range and rejects values that cannot
// be repaired. Zero numeric values take the default.
func (c GalleryConfig) Normalize() (GalleryConfig, error) {
	def := DefaultGalleryConfig()
	out := c

	out.OutputPath = strings.TrimSpace(out.OutputPath)
	if out.OutputPath == "" {
		return GalleryConfig{}, fmt.Errorf("%w: output path is required", ErrInvalidConfig)
	}
	out.OutputPath = filepath.Clean(out.OutputPath)

	out.Title = strings.TrimSpace(out.Title)
	if out.Title == "" {
		out.Title = def.Title
	}

	out.Columns = clampOrDefault(out.Columns, def.Columns, MinColumns, MaxColumns)
	out.ThumbnailSize = clampOrDefault(out.ThumbnailSize, def.ThumbnailSize, MinThumbnailSize, MaxThumbnailSize)
	out.FullMaxDimension = clampOrDefault(out.FullMaxDimension, def.FullMaxDimension, MinFullMaxDimension, MaxFullMaxDimension)
	out.Quality = clampOrDefault(out.Quality, def.Quality, MinQuality, MaxQuality)

	out.Theme = strings.ToLower(strings.TrimSpace(out.Theme))
	switch out.Theme {
	case "":
		out.Theme = def.Theme
	case ThemeDark, ThemeLight:
	default:
		return GalleryConfig{}, fmt.Errorf("%w: unknown theme %q", ErrInvalidConfig, c.Theme)
	}

	out.IndexFileName = strings.ToLower(strings.TrimSpace(out.IndexFileName))
	switch out.IndexFileName {
	case "":
		out.IndexFileName = def.IndexFileName
	case IndexHTML, IndexHTM:
	default:
		return GalleryConfig{}, fmt.Errorf("%w: index file must be %s or %s", ErrInvalidConfig, IndexHTML, IndexHTM)
	}

	return out, nil
}

// OutputFiles lists the top-level files a complete gallery consists of.
func (c GalleryConfig) OutputFiles() []string {
	index := c.IndexFileName
	if index == "" {
		index = IndexHTML
	}
	return []string{index, StylesheetFile, ScriptFile, ManifestFile}
}

func clampOrDefault(v, def, lo, hi int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
