package config

import (
	"strings"

	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/layout"
)

// Validate checks that the configuration is usable. Zero timeouts are
// valid and mean no limit beyond the caller's context.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case SourceMemory, SourceSQLite:
	case SourceFile:
		if c.Catalog.DataFile == "" {
			return errors.New("catalog.data_file is required when catalog.source is \"file\"")
		}
	case SourceHTTP:
		if c.Catalog.BaseURL == "" {
			return errors.New("catalog.base_url is required when catalog.source is \"http\"")
		}
	default:
		return errors.WithHint(
			errors.Newf("catalog.source %q is not supported", c.Catalog.Source),
			"use memory, file, sqlite or http")
	}
	if c.Catalog.RPS < 0 {
		return errors.Newf("catalog.rps must be >= 0, got %g", c.Catalog.RPS)
	}
	if c.Catalog.Timeout < 0 {
		return errors.Newf("catalog.timeout must be >= 0, got %s", c.Catalog.Timeout)
	}

	switch layout.Direction(strings.ToUpper(string(c.Layout.Direction))) {
	case layout.Down, layout.Right:
		c.Layout.Direction = layout.Direction(strings.ToUpper(string(c.Layout.Direction)))
	default:
		return errors.Newf("layout.direction must be DOWN or RIGHT, got %q", c.Layout.Direction)
	}
	if c.Layout.NodeWidth <= 0 || c.Layout.NodeHeight <= 0 {
		return errors.Newf("layout node size must be positive, got %gx%g", c.Layout.NodeWidth, c.Layout.NodeHeight)
	}
	if c.Layout.NodeSpacing < 0 || c.Layout.LayerSpacing < 0 {
		return errors.New("layout spacing must be >= 0")
	}
	if c.Layout.Timeout < 0 {
		return errors.Newf("layout.timeout must be >= 0, got %s", c.Layout.Timeout)
	}

	if c.Present.DimOpacity < 0 || c.Present.DimOpacity > 1 {
		return errors.Newf("present.dim_opacity must be within [0, 1], got %g", c.Present.DimOpacity)
	}
	if c.Present.EdgeZoom <= 0 {
		return errors.Newf("present.edge_zoom must be > 0, got %g", c.Present.EdgeZoom)
	}
	if c.Tour.Zoom <= 0 {
		return errors.Newf("tour.zoom must be > 0, got %g", c.Tour.Zoom)
	}

	if c.Server.Addr == "" {
		return errors.New("server.addr cannot be empty")
	}
	if c.Server.SessionIdleTimeout < 0 {
		return errors.Newf("server.session_idle_timeout must be >= 0, got %s", c.Server.SessionIdleTimeout)
	}
	return nil
}
