package metadata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
)

// sidecarDoc is the layout of a metadata sidecar such as beach.jpg.yaml:
//
//	title: Beach at dawn
//	description: Taken from the pier.
//	rotation: 90
type sidecarDoc struct {
	Title       *string `yaml:"title"`
	Description *string `yaml:"description"`
	Rotation    *int    `yaml:"rotation"`
}

// SidecarResolver reads metadata from a YAML file next to the image.
type SidecarResolver struct{}

func NewSidecarResolver() *SidecarResolver { return &SidecarResolver{} }

var _ repository.MetadataResolver = (*SidecarResolver)(nil)

// Candidates lists the sidecar paths tried for an image, in order.
func (r *SidecarResolver) Candidates(path string) []string {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	return []string{path + ".yaml", path + ".yml", stem + ".yaml", stem + ".yml"}
}

func (r *SidecarResolver) Resolve(ctx context.Context, path string) (entity.Metadata, error) {
	for _, candidate := range r.Candidates(path) {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return entity.Metadata{}, fmt.Errorf("read sidecar %s: %w", filepath.Base(candidate), err)
		}

		var doc sidecarDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return entity.Metadata{}, fmt.Errorf("parse sidecar %s: %w", filepath.Base(candidate), err)
		}

		var md entity.Metadata
		if doc.Title != nil {
			md.Title, md.HasTitle = strings.TrimSpace(*doc.Title), true
		}
		if doc.Description != nil {
			md.Description, md.HasDescription = strings.TrimSpace(*doc.Description), true
		}
		if doc.Rotation != nil {
			deg, err := entity.NormalizeRotation(*doc.Rotation)
			if err != nil {
				return entity.Metadata{}, fmt.Errorf("sidecar %s: %w", filepath.Base(candidate), err)
			}
			md.Rotation, md.HasRotation = deg, true
		}
		return md, nil
	}
	return entity.Metadata{}, nil
}
