package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/photo-gallery/internal/entity"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1, cfg.Workers)
	assert.True(t, cfg.CleanStale)
	assert.Equal(t, 30*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 85, cfg.Gallery.Quality)
	assert.False(t, cfg.PublishEnabled())
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gallery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workers: 4
gallery:
  output_path: /tmp/from-file
  title: From File
  columns: 3
  theme: light
redis:
  lock_ttl: 5m
`), 0o644))

	t.Setenv("GALLERY_GALLERY_TITLE", "From Env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("columns", 4, "")
	flags.String("output", "", "")
	require.NoError(t, flags.Parse([]string{"--columns", "6"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "/tmp/from-file", cfg.Gallery.OutputPath)
	assert.Equal(t, "From Env", cfg.Gallery.Title)
	assert.Equal(t, 6, cfg.Gallery.Columns)
	assert.Equal(t, "light", cfg.Gallery.Theme)
	assert.Equal(t, 5*time.Minute, cfg.Redis.LockTTL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestGalleryConfigIsNormalized(t *testing.T) {
	cfg := &Config{Gallery: GallerySection{
		OutputPath: "/tmp/out",
		Quality:    250,
		Columns:    -3,
	}}
	g, err := cfg.GalleryConfig()
	require.NoError(t, err)
	assert.Equal(t, entity.MaxQuality, g.Quality)
	assert.Equal(t, entity.MinColumns, g.Columns)
	assert.Equal(t, entity.ThemeDark, g.Theme)

	cfg.Gallery.OutputPath = ""
	_, err = cfg.GalleryConfig()
	assert.ErrorIs(t, err, entity.ErrInvalidConfig)
}

func TestGalleryDefaultsSkipsValidation(t *testing.T) {
	cfg := &Config{Gallery: GallerySection{Title: "Trip", Theme: "neon"}}
	g := cfg.GalleryDefaults()
	assert.Equal(t, "Trip", g.Title)
	assert.Equal(t, "neon", g.Theme)
	assert.Empty(t, g.OutputPath)
}
