package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"canopy/explorer/internal/errors"
)

// Load reads configuration with precedence defaults < config file < env.
// An empty path searches for canopy.toml from the working directory up;
// finding none is not an error.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// NewViper builds the viper instance Load reads from
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix("CANOPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path == "" {
		path = FindProjectConfig()
	}
	if path == "" {
		return v, nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}
	return v, nil
}

// LoadWithViper unmarshals and validates configuration from v
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindProjectConfig searches for canopy.toml by walking up from the working
// directory. It returns "" when there is none.
func FindProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findUp(dir, DefaultConfigFile)
}

// FindDatabase searches for canopy.db the same way
func FindDatabase() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findUp(dir, DefaultDBFile)
}

func findUp(dir, name string) string {
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
