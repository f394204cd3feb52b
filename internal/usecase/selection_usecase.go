package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
)

// MsgNoFilesSelected is shown when a selection leaves nothing to process.
const MsgNoFilesSelected = "No files selected"

var ErrNoFilesSelected = errors.New("no files selected")

// Candidate is a file picked by the user, with whatever metadata the caller
// already knows. Empty Title/Description and a nil Rotation are looked up.
type Candidate struct {
	Path        string `json:"path"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Rotation    *int   `json:"rotation,omitempty"`
}

// Selector turns candidate files into validated asset descriptors.
type Selector interface {
	Select(ctx context.Context, candidates []Candidate) ([]entity.AssetDescriptor, error)
	CollectDirectory(dir string) ([]Candidate, error)
}

type selectionUseCase struct {
	resolver repository.MetadataResolver
	logger   *zap.Logger
}

// NewSelector creates a Selector. resolver may be nil, in which case only the
// metadata carried by each candidate is used.
func NewSelector(resolver repository.MetadataResolver, logger *zap.Logger) Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &selectionUseCase{resolver: resolver, logger: logger}
}

func (uc *selectionUseCase) Select(ctx context.Context, candidates []Candidate) ([]entity.AssetDescriptor, error) {
	descriptors := make([]entity.AssetDescriptor, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		desc, err := uc.describe(ctx, c)
		if err != nil {
			uc.logger.Warn("Excluding file from selection", zap.String("path", c.Path), zap.Error(err))
			continue
		}
		descriptors = append(descriptors, desc)
	}

	if len(descriptors) == 0 {
		return nil, ErrNoFilesSelected
	}
	uc.logger.Debug("Selection resolved", zap.Int("candidates", len(candidates)), zap.Int("selected", len(descriptors)))
	return descriptors, nil
}

func (uc *selectionUseCase) describe(ctx context.Context, c Candidate) (entity.AssetDescriptor, error) {
	if c.Path == "" {
		return entity.AssetDescriptor{}, entity.ErrEmptyPath
	}
	path, err := filepath.Abs(c.Path)
	if err != nil {
		return entity.AssetDescriptor{}, err
	}
	if !entity.IsSupportedFormat(path) {
		return entity.AssetDescriptor{}, entity.ErrUnsupportedExtension
	}
	if err := checkReadable(path); err != nil {
		return entity.AssetDescriptor{}, err
	}

	meta := entity.Metadata{}
	if c.Title != "" {
		meta.Title, meta.HasTitle = c.Title, true
	}
	if c.Description != "" {
		meta.Description, meta.HasDescription = c.Description, true
	}
	if c.Rotation != nil {
		meta.Rotation, meta.HasRotation = *c.Rotation, true
	}
	if uc.resolver != nil && !meta.Complete() {
		found, err := uc.resolver.Resolve(ctx, path)
		if err != nil {
			uc.logger.Warn("Metadata lookup failed", zap.String("path", path), zap.Error(err))
		} else {
			meta = meta.Merge(found)
		}
	}

	return entity.NewAssetDescriptor(path, meta.Title, meta.Description, meta.Rotation)
}

// CollectDirectory lists the supported files directly inside dir, in name
// order. Hidden files are ignored.
func (uc *selectionUseCase) CollectDirectory(dir string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var out []Candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name[0] == '.' || !entity.IsSupportedFormat(name) {
			continue
		}
		out = append(out, Candidate{Path: filepath.Join(dir, name)})
	}
	return out, nil
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
