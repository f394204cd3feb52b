package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/user/photo-gallery/internal/repository"
	"github.com/user/photo-gallery/pkg/utils"
)

const settingsFileName = "settings.yaml"

// SettingsImpl persists a flat key/value map as a YAML file.
type SettingsImpl struct {
	mu   sync.Mutex
	path string
}

// NewSettings creates a store backed by path. An empty path resolves to
// settings.yaml in the user's config directory under photo-gallery/.
func NewSettings(path string) (*SettingsImpl, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config directory: %w", err)
		}
		path = filepath.Join(dir, "photo-gallery", settingsFileName)
	}
	return &SettingsImpl{path: path}, nil
}

var _ repository.SettingsStore = (*SettingsImpl)(nil)

// Path returns the file backing the store.
func (s *SettingsImpl) Path() string { return s.path }

func (s *SettingsImpl) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *SettingsImpl) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value

	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	return utils.WriteFileAtomic(s.path, data, 0o644)
}

func (s *SettingsImpl) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", s.path, err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}
