// Package config loads canopy settings from canopy.toml and CANOPY_*
// environment variables.
package config

import (
	"time"

	"canopy/explorer/internal/explorer"
	"canopy/explorer/internal/layout"
	"canopy/explorer/internal/present"
	"canopy/explorer/internal/server"
)

// Catalog sources
const (
	SourceMemory = "memory" // built-in sample dataset
	SourceFile   = "file"   // JSON or YAML dataset file, held in memory
	SourceSQLite = "sqlite"
	SourceHTTP   = "http" // remote graph API
)

// Config is the whole canopy configuration
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Layout  LayoutConfig  `mapstructure:"layout"`
	Present PresentConfig `mapstructure:"present"`
	Tour    TourConfig    `mapstructure:"tour"`
	Server  server.Config `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

// CatalogConfig selects where graph data comes from
type CatalogConfig struct {
	Source   string        `mapstructure:"source"`
	DBPath   string        `mapstructure:"db_path"`
	DataFile string        `mapstructure:"data_file"`
	BaseURL  string        `mapstructure:"base_url"`
	RPS      float64       `mapstructure:"rps"`     // http source request limit, 0 = unlimited
	Timeout  time.Duration `mapstructure:"timeout"` // per catalog call
}

// LayoutConfig is the layout engine options plus the per-run timeout
type LayoutConfig struct {
	layout.Options `mapstructure:",squash"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// PresentConfig styles the scene and times the edge-click camera
type PresentConfig struct {
	present.Palette `mapstructure:",squash"`
	GlowDuration    time.Duration `mapstructure:"glow_duration"`
	EdgeZoom        float64       `mapstructure:"edge_zoom"`
	EdgeDuration    time.Duration `mapstructure:"edge_duration"`
	FitPadding      float64       `mapstructure:"fit_padding"`
	FitDuration     time.Duration `mapstructure:"fit_duration"`
}

// TourConfig times the camera while a tour runs
type TourConfig struct {
	Zoom            float64       `mapstructure:"zoom"`
	Duration        time.Duration `mapstructure:"duration"`
	ExitFitDuration time.Duration `mapstructure:"exit_fit_duration"`
}

// LogConfig selects the log encoder and level
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// ExplorerOptions assembles session options from the present and tour sections
func (c *Config) ExplorerOptions() explorer.Options {
	return explorer.Options{
		Palette:         c.Present.Palette,
		GlowDuration:    c.Present.GlowDuration,
		EdgeZoom:        c.Present.EdgeZoom,
		EdgeDuration:    c.Present.EdgeDuration,
		TourZoom:        c.Tour.Zoom,
		TourDuration:    c.Tour.Duration,
		FitPadding:      c.Present.FitPadding,
		FitDuration:     c.Present.FitDuration,
		ExitFitDuration: c.Tour.ExitFitDuration,
	}
}
