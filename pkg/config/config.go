package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/user/photo-gallery/internal/entity"
)

// Config stores all configuration for the application.
type Config struct {
	LogLevel        string         `mapstructure:"log_level"`
	LogJSON         bool           `mapstructure:"log_json"`
	Workers         int            `mapstructure:"workers"`
	MaxSourcePixels int            `mapstructure:"max_source_pixels"`
	CleanStale      bool           `mapstructure:"clean_stale"`
	SettingsPath    string         `mapstructure:"settings_path"`
	Gallery         GallerySection `mapstructure:"gallery"`
	Server          ServerConfig   `mapstructure:"server"`
	Redis           RedisConfig    `mapstructure:"redis"`
	Postgres        PostgresConfig `mapstructure:"postgres"`
	Snapshot        SnapshotConfig `mapstructure:"snapshot"`
	Publish         PublishConfig  `mapstructure:"publish"`
	Watch           WatchConfig    `mapstructure:"watch"`
}

// GallerySection is the raw form of entity.GalleryConfig before it is
// accepted.
type GallerySection struct {
	OutputPath       string `mapstructure:"output_path"`
	Title            string `mapstructure:"title"`
	Columns          int    `mapstructure:"columns"`
	ThumbnailSize    int    `mapstructure:"thumbnail_size"`
	FullMaxDimension int    `mapstructure:"full_max_dimension"`
	Quality          int    `mapstructure:"quality"`
	Theme            string `mapstructure:"theme"`
	Lightbox         bool   `mapstructure:"lightbox"`
	LazyLoad         bool   `mapstructure:"lazy_load"`
	ShowCaptions     bool   `mapstructure:"show_captions"`
	IndexFile        string `mapstructure:"index_file"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type SnapshotConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PublishConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"workers":    "workers",
	"output":     "gallery.output_path",
	"title":      "gallery.title",
	"columns":    "gallery.columns",
	"thumb-size": "gallery.thumbnail_size",
	"max-size":   "gallery.full_max_dimension",
	"quality":    "gallery.quality",
	"theme":      "gallery.theme",
	"lightbox":   "gallery.lightbox",
	"lazy-load":  "gallery.lazy_load",
	"captions":   "gallery.show_captions",
	"index-file": "gallery.index_file",
	"port":       "server.port",
	"snapshot":   "snapshot.enabled",
}

// Load reads configuration from an optional file, GALLERY_* environment
// variables and command-line flags, in increasing order of precedence.
// An empty path looks for gallery.yaml in the working directory and carries on
// without it when absent.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GALLERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("gallery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := entity.DefaultGalleryConfig()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("workers", 1)
	v.SetDefault("max_source_pixels", 100_000_000)
	v.SetDefault("clean_stale", true)
	v.SetDefault("settings_path", "")

	v.SetDefault("gallery.output_path", "")
	v.SetDefault("gallery.title", def.Title)
	v.SetDefault("gallery.columns", def.Columns)
	v.SetDefault("gallery.thumbnail_size", def.ThumbnailSize)
	v.SetDefault("gallery.full_max_dimension", def.FullMaxDimension)
	v.SetDefault("gallery.quality", def.Quality)
	v.SetDefault("gallery.theme", def.Theme)
	v.SetDefault("gallery.lightbox", def.Lightbox)
	v.SetDefault("gallery.lazy_load", def.LazyLoad)
	v.SetDefault("gallery.show_captions", def.ShowCaptions)
	v.SetDefault("gallery.index_file", def.IndexFileName)

	v.SetDefault("server.port", "8080")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "30m")

	v.SetDefault("postgres.url", "")

	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.path", "")
	v.SetDefault("snapshot.timeout", "30s")

	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.access_key", "")
	v.SetDefault("publish.secret_key", "")
	v.SetDefault("publish.region", "us-east-1")
	v.SetDefault("publish.use_ssl", true)
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.prefix", "")

	v.SetDefault("watch.debounce", "500ms")
}

// GalleryConfig accepts the gallery section, clamping or rejecting options.
func (c *Config) GalleryConfig() (entity.GalleryConfig, error) {
	return c.GalleryDefaults().Normalize()
}

// GalleryDefaults returns the gallery section as configured, without
// validation, for callers that apply further overrides first.
func (c *Config) GalleryDefaults() entity.GalleryConfig {
	g := c.Gallery
	return entity.GalleryConfig{
		OutputPath:       g.OutputPath,
		Title:            g.Title,
		Columns:          g.Columns,
		ThumbnailSize:    g.ThumbnailSize,
		FullMaxDimension: g.FullMaxDimension,
		Quality:          g.Quality,
		Theme:            g.Theme,
		Lightbox:         g.Lightbox,
		LazyLoad:         g.LazyLoad,
		ShowCaptions:     g.ShowCaptions,
		IndexFileName:    g.IndexFile,
	}
}

// PublishEnabled reports whether enough is configured to upload a gallery.
func (c *Config) PublishEnabled() bool {
	return c.Publish.Endpoint != "" && c.Publish.Bucket != ""
}
