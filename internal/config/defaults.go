package config

import (
	"time"

	"github.com/spf13/viper"

	"canopy/explorer/internal/explorer"
	"canopy/explorer/internal/layout"
	"canopy/explorer/internal/server"
)

// DefaultDBFile is the database name searched for when catalog.db_path is unset
const DefaultDBFile = "canopy.db"

// DefaultConfigFile is the project config searched for from the working directory up
const DefaultConfigFile = "canopy.toml"

// SetDefaults configures default values for all configuration options.
// Values come from each package's own defaults so the two never drift.
func SetDefaults(v *viper.Viper) {
	// Catalog defaults
	v.SetDefault("catalog.source", SourceMemory)
	v.SetDefault("catalog.db_path", "")
	v.SetDefault("catalog.data_file", "")
	v.SetDefault("catalog.base_url", "http://localhost:4000")
	v.SetDefault("catalog.rps", 0.0)
	v.SetDefault("catalog.timeout", 10*time.Second)

	// Layout defaults
	lo := layout.DefaultOptions()
	v.SetDefault("layout.direction", string(lo.Direction))
	v.SetDefault("layout.node_width", lo.NodeWidth)
	v.SetDefault("layout.node_height", lo.NodeHeight)
	v.SetDefault("layout.node_spacing", lo.NodeSpacing)
	v.SetDefault("layout.layer_spacing", lo.LayerSpacing)
	v.SetDefault("layout.roots_same_rank", lo.RootsSameRank)
	v.SetDefault("layout.timeout", 5*time.Second)

	// Present defaults
	eo := explorer.DefaultOptions()
	p := eo.Palette
	v.SetDefault("present.root_edge", p.RootEdge)
	v.SetDefault("present.skeleton_edge", p.SkeletonEdge)
	v.SetDefault("present.revealed_edge", p.RevealedEdge)
	v.SetDefault("present.skeleton_dash", p.SkeletonDash)
	v.SetDefault("present.revealed_dash", p.RevealedDash)
	v.SetDefault("present.edge_width", p.EdgeWidth)
	v.SetDefault("present.skeleton_background", p.SkeletonBackground)
	v.SetDefault("present.skeleton_border", p.SkeletonBorder)
	v.SetDefault("present.skeleton_glow", p.SkeletonGlow)
	v.SetDefault("present.revealed_background", p.RevealedBackground)
	v.SetDefault("present.revealed_border", p.RevealedBorder)
	v.SetDefault("present.revealed_glow", p.RevealedGlow)
	v.SetDefault("present.text_color", p.TextColor)
	v.SetDefault("present.dim_opacity", p.DimOpacity)
	v.SetDefault("present.marker_visited", p.MarkerVisited)
	v.SetDefault("present.marker_dimmed", p.MarkerDimmed)
	v.SetDefault("present.glow_duration", eo.GlowDuration)
	v.SetDefault("present.edge_zoom", eo.EdgeZoom)
	v.SetDefault("present.edge_duration", eo.EdgeDuration)
	v.SetDefault("present.fit_padding", eo.FitPadding)
	v.SetDefault("present.fit_duration", eo.FitDuration)

	// Tour defaults
	v.SetDefault("tour.zoom", eo.TourZoom)
	v.SetDefault("tour.duration", eo.TourDuration)
	v.SetDefault("tour.exit_fit_duration", eo.ExitFitDuration)

	// Server defaults
	sc := server.DefaultConfig()
	v.SetDefault("server.addr", sc.Addr)
	v.SetDefault("server.allowed_origins", sc.AllowedOrigins)
	v.SetDefault("server.shutdown_timeout", sc.ShutdownTimeout)
	v.SetDefault("server.command_timeout", sc.CommandTimeout)
	v.SetDefault("server.session_idle_timeout", sc.SessionIdleTimeout)

	// Log defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}
