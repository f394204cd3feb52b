package entity

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// SupportedExtensions is the allow-list of source formats accepted into a batch.
// Membership does not guarantee the file can be decoded: .psd and .pdf are
// accepted here and rejected per item by the optimizer.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".psd", ".pdf"}

var (
	ErrUnsupportedExtension = errors.New("file extension is not a supported image format")
	ErrInvalidRotation      = errors.New("rotation must be a multiple of 90 degrees")
	ErrEmptyPath            = errors.New("asset path is empty")
)

// AssetDescriptor describes one source image and the metadata resolved for it.
// It is created once by the selection step and never modified afterwards.
type AssetDescriptor struct {
	Path            string `json:"path"`
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	RotationDegrees int    `json:"rotation_degrees"`
}

// NewAssetDescriptor validates the extension and normalizes the rotation.
func NewAssetDescriptor(path, title, description string, rotation int) (AssetDescriptor, error) {
	if strings.TrimSpace(path) == "" {
		return AssetDescriptor{}, ErrEmptyPath
	}
	if !IsSupportedFormat(path) {
		return AssetDescriptor{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedExtension)
	}
	deg, err := NormalizeRotation(rotation)
	if err != nil {
		return AssetDescriptor{}, err
	}
	return AssetDescriptor{
		Path:            path,
		Title:           strings.TrimSpace(title),
		Description:     strings.TrimSpace(description),
		RotationDegrees: deg,
	}, nil
}

// FileName returns the base name of the source file.
func (a AssetDescriptor) FileName() string {
	return filepath.Base(a.Path)
}

// DisplayTitle falls back to the file stem when no title was resolved.
func (a AssetDescriptor) DisplayTitle() string {
	if a.Title != "" {
		return a.Title
	}
	name := a.FileName()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// IsSupportedFormat reports whether the path's extension is on the allow-list.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range SupportedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// NormalizeRotation maps any multiple of 90 onto {0, 90, 180, 270}.
func NormalizeRotation(degrees int) (int, error) {
	if degrees%90 != 0 {
		return 0, fmt.Errorf("%d: %w", degrees, ErrInvalidRotation)
	}
	deg := degrees % 360
	if deg < 0 {
		deg += 360
	}
	return deg, nil
}
