package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canopy/explorer/internal/explorer"
	"canopy/explorer/internal/layout"
	"canopy/explorer/internal/server"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, SourceMemory, cfg.Catalog.Source)
	assert.Equal(t, 10*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, layout.DefaultOptions(), cfg.Layout.Options)
	assert.Equal(t, server.DefaultConfig(), cfg.Server)
	assert.Equal(t, explorer.DefaultOptions(), cfg.ExplorerOptions())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[catalog]
source = "sqlite"
db_path = "graph.db"
timeout = "250ms"

[layout]
direction = "right"
node_width = 240

[present]
revealed_edge = "#FF0000"
glow_duration = "2s"

[tour]
zoom = 2.5

[server]
addr = ":9000"
allowed_origins = ["https://canopy.example"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SourceSQLite, cfg.Catalog.Source)
	assert.Equal(t, "graph.db", cfg.Catalog.DBPath)
	assert.Equal(t, 250*time.Millisecond, cfg.Catalog.Timeout)
	assert.Equal(t, layout.Right, cfg.Layout.Direction, "direction is normalized to upper case")
	assert.Equal(t, 240.0, cfg.Layout.NodeWidth)
	assert.Equal(t, 60.0, cfg.Layout.NodeHeight)

	opts := cfg.ExplorerOptions()
	assert.Equal(t, "#FF0000", opts.Palette.RevealedEdge)
	assert.Equal(t, "#3B82F6", opts.Palette.RootEdge)
	assert.Equal(t, 2*time.Second, opts.GlowDuration)
	assert.Equal(t, 2.5, opts.TourZoom)
	assert.Equal(t, 600*time.Millisecond, opts.TourDuration)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://canopy.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[server]
addr = ":9000"
`)
	t.Setenv("CANOPY_SERVER_ADDR", ":9100")
	t.Setenv("CANOPY_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_InvalidFileFailsValidation(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[catalog]
source = "ftp"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `catalog.source "ftp"`)
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	got := FindProjectConfig()
	// macOS temp dirs resolve through /private
	wantReal, _ := filepath.EvalSymlinks(want)
	gotReal, _ := filepath.EvalSymlinks(got)
	assert.Equal(t, wantReal, gotReal)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, cfg.Catalog.Source)
}

func TestFindDatabase(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultDBFile), nil, 0o644))
	nested := filepath.Join(root, "x")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	assert.Equal(t, DefaultDBFile, filepath.Base(FindDatabase()))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		v := viper.New()
		SetDefaults(v)
		var c Config
		require.NoError(t, v.Unmarshal(&c))
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "zero timeouts are valid", mutate: func(c *Config) {
			c.Catalog.Timeout = 0
			c.Layout.Timeout = 0
		}},
		{name: "file source needs a file", mutate: func(c *Config) {
			c.Catalog.Source = SourceFile
		}, wantErr: "catalog.data_file"},
		{name: "http source needs a url", mutate: func(c *Config) {
			c.Catalog.Source = SourceHTTP
			c.Catalog.BaseURL = ""
		}, wantErr: "catalog.base_url"},
		{name: "negative rps", mutate: func(c *Config) {
			c.Catalog.RPS = -1
		}, wantErr: "catalog.rps"},
		{name: "negative catalog timeout", mutate: func(c *Config) {
			c.Catalog.Timeout = -time.Second
		}, wantErr: "catalog.timeout"},
		{name: "unknown direction", mutate: func(c *Config) {
			c.Layout.Direction = "UP"
		}, wantErr: "layout.direction"},
		{name: "zero node size", mutate: func(c *Config) {
			c.Layout.NodeWidth = 0
		}, wantErr: "node size"},
		{name: "negative session idle timeout", mutate: func(c *Config) {
			c.Server.SessionIdleTimeout = -time.Minute
		}, wantErr: "server.session_idle_timeout"},
		{name: "dim opacity above one", mutate: func(c *Config) {
			c.Present.DimOpacity = 1.5
		}, wantErr: "present.dim_opacity"},
		{name: "zero tour zoom", mutate: func(c *Config) {
			c.Tour.Zoom = 0
		}, wantErr: "tour.zoom"},
		{name: "empty server addr", mutate: func(c *Config) {
			c.Server.Addr = ""
		}, wantErr: "server.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
