package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tastrails/trails/server/internal/lib/export"
	"github.com/tastrails/trails/server/internal/lib/routing"
	"github.com/tastrails/trails/server/internal/lib/surface"
)

// Config represents the complete server configuration. Each section is
// loaded from the prefab.yaml key of the same name.
type Config struct {
	Tracks   TracksConfig   `koanf:"tracks" yaml:"tracks"`
	Matching MatchingConfig `koanf:"matching" yaml:"matching"`
	Surfaces SurfacesConfig `koanf:"surfaces" yaml:"surfaces"`
	Storage  StorageConfig  `koanf:"storage" yaml:"storage"`
	Map      MapConfig      `koanf:"map" yaml:"map"`
}

// TracksConfig holds upload and pipeline settings
type TracksConfig struct {
	MaxUploadBytes    int64         `koanf:"max_upload_bytes" yaml:"max_upload_bytes"`
	AllowedExtensions []string      `koanf:"allowed_extensions" yaml:"allowed_extensions"`
	StageTimeout      time.Duration `koanf:"stage_timeout" yaml:"stage_timeout"`
	CacheTTL          time.Duration `koanf:"cache_ttl" yaml:"cache_ttl"`
	CleanupInterval   time.Duration `koanf:"cleanup_interval" yaml:"cleanup_interval"`
	ListLimit         int           `koanf:"list_limit" yaml:"list_limit"`
}

// MatchingConfig selects the road matcher
type MatchingConfig struct {
	Provider    string        `koanf:"provider" yaml:"provider"`
	GoogleRoads GoogleConfig  `koanf:"google_roads" yaml:"google_roads"`
	CacheTTL    time.Duration `koanf:"cache_ttl" yaml:"cache_ttl"` // place name lookups
}

// GoogleConfig holds Google Roads API settings
type GoogleConfig struct {
	APIKey string `koanf:"api_key" yaml:"api_key"`
}

// SurfacesConfig selects the surface classifier
type SurfacesConfig struct {
	Provider string        `koanf:"provider" yaml:"provider"`
	OpenAI   OpenAIConfig  `koanf:"openai" yaml:"openai"`
	CacheTTL time.Duration `koanf:"cache_ttl" yaml:"cache_ttl"`
}

// OpenAIConfig holds OpenAI settings for road name classification
type OpenAIConfig struct {
	APIKey string `koanf:"api_key" yaml:"api_key"`
	Model  string `koanf:"model" yaml:"model"`
}

// StorageConfig holds the route database location
type StorageConfig struct {
	Path string `koanf:"path" yaml:"path"`
}

// MapConfig is the initial map view sent to clients
type MapConfig struct {
	Center  []float64 `koanf:"center" yaml:"center"` // [lon, lat]
	Zoom    float64   `koanf:"zoom" yaml:"zoom"`
	Bearing float64   `koanf:"bearing" yaml:"bearing"`
	Pitch   float64   `koanf:"pitch" yaml:"pitch"`
	Style   string    `koanf:"style" yaml:"style"`
}

// ToMapState converts MapConfig to the exported map state
func (m MapConfig) ToMapState() export.MapState {
	state := export.MapState{
		Zoom:    m.Zoom,
		Bearing: m.Bearing,
		Pitch:   m.Pitch,
		Style:   m.Style,
	}
	if len(m.Center) == 2 {
		state.Center = [2]float64{m.Center[0], m.Center[1]}
	}
	return state
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	defaults := export.DefaultMapState()
	return &Config{
		Tracks: TracksConfig{
			MaxUploadBytes:    10 * 1024 * 1024,
			AllowedExtensions: []string{".gpx"},
			StageTimeout:      30 * time.Second,
			CacheTTL:          time.Hour,
			CleanupInterval:   10 * time.Minute,
			ListLimit:         50,
		},
		Matching: MatchingConfig{
			Provider: string(routing.PassThrough),
			CacheTTL: 24 * time.Hour,
		},
		Surfaces: SurfacesConfig{
			Provider: string(surface.PassThrough),
			OpenAI: OpenAIConfig{
				Model: "gpt-4o-mini",
			},
			CacheTTL: 24 * time.Hour, // Road surfaces rarely change
		},
		Storage: StorageConfig{
			Path: "trails.db",
		},
		Map: MapConfig{
			Center:  []float64{defaults.Center[0], defaults.Center[1]},
			Zoom:    defaults.Zoom,
			Bearing: defaults.Bearing,
			Pitch:   defaults.Pitch,
			Style:   defaults.Style,
		},
	}
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var errs []error

	if c.Tracks.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("tracks.max_upload_bytes must be positive"))
	}
	if len(c.Tracks.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("tracks.allowed_extensions must not be empty"))
	}
	for _, ext := range c.Tracks.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("tracks.allowed_extensions: %q must start with a dot", ext))
		}
	}
	if c.Tracks.StageTimeout < 0 {
		errs = append(errs, errors.New("tracks.stage_timeout must not be negative"))
	}
	if c.Tracks.CleanupInterval <= 0 {
		errs = append(errs, errors.New("tracks.cleanup_interval must be positive"))
	}
	if c.Tracks.ListLimit <= 0 {
		errs = append(errs, errors.New("tracks.list_limit must be positive"))
	}

	switch routing.Provider(c.Matching.Provider) {
	case routing.PassThrough, routing.Geodesic:
	case routing.GoogleRoads:
		if c.Matching.GoogleRoads.APIKey == "" {
			errs = append(errs, errors.New("matching.google_roads.api_key is required for the google provider"))
		}
		if c.Matching.CacheTTL <= 0 {
			errs = append(errs, errors.New("matching.cache_ttl must be positive for the google provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("matching.provider: unknown provider %q", c.Matching.Provider))
	}

	switch surface.Provider(c.Surfaces.Provider) {
	case surface.PassThrough, surface.Keywords:
	case surface.OpenAI:
		if c.Surfaces.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("surfaces.openai.api_key is required for the openai provider"))
		}
		if c.Surfaces.OpenAI.Model == "" {
			errs = append(errs, errors.New("surfaces.openai.model is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("surfaces.provider: unknown provider %q", c.Surfaces.Provider))
	}

	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if len(c.Map.Center) != 2 {
		errs = append(errs, errors.New("map.center must be [lon, lat]"))
	}

	return errors.Join(errs...)
}
