package request

import (
	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/usecase"
)

// GenerateRequest asks for a gallery built from explicit files or from every
// supported file in a directory.
type GenerateRequest struct {
	Files     []usecase.Candidate `json:"files"`
	Directory string              `json:"directory"`
	Settings  GallerySettings     `json:"settings"`
}

// GallerySettings overrides the server's configured gallery options. Absent
// fields keep the configured value.
type GallerySettings struct {
	OutputPath       *string `json:"output_path"`
	Title            *string `json:"title"`
	Columns          *int    `json:"columns"`
	ThumbnailSize    *int    `json:"thumbnail_size"`
	FullMaxDimension *int    `json:"full_max_dimension"`
	Quality          *int    `json:"quality"`
	Theme            *string `json:"theme"`
	Lightbox         *bool   `json:"lightbox"`
	LazyLoad         *bool   `json:"lazy_load"`
	ShowCaptions     *bool   `json:"show_captions"`
	IndexFile        *string `json:"index_file"`
}

// Apply returns base with every present override applied.
func (s GallerySettings) Apply(base entity.GalleryConfig) entity.GalleryConfig {
	cfg := base
	setString(&cfg.OutputPath, s.OutputPath)
	setString(&cfg.Title, s.Title)
	setInt(&cfg.Columns, s.Columns)
	setInt(&cfg.ThumbnailSize, s.ThumbnailSize)
	setInt(&cfg.FullMaxDimension, s.FullMaxDimension)
	setInt(&cfg.Quality, s.Quality)
	setString(&cfg.Theme, s.Theme)
	setBool(&cfg.Lightbox, s.Lightbox)
	setBool(&cfg.LazyLoad, s.LazyLoad)
	setBool(&cfg.ShowCaptions, s.ShowCaptions)
	setString(&cfg.IndexFileName, s.IndexFile)
	return cfg
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
