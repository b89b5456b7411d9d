// Package config loads moodfm configuration from defaults, an optional yaml
// file, and MOODFM_-prefixed environment variables, in that order of
// precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/moodfm/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "MOODFM_CONFIG"

// envPrefix namespaces environment overrides, e.g. MOODFM_LASTFM_APIKEY.
const envPrefix = "MOODFM_"

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Lastfm   LastfmConfig   `koanf:"lastfm"`
	Lyrics   LyricsConfig   `koanf:"lyrics"`
	Textgen  TextgenConfig  `koanf:"textgen"`
	Ingest   IngestConfig   `koanf:"ingest"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// LastfmConfig holds the tag provider settings.
type LastfmConfig struct {
	APIKey string `koanf:"apikey"`
}

// LyricsConfig holds the lyric provider settings. The provider is optional;
// without a token the text tier of classification is skipped.
type LyricsConfig struct {
	AccessToken string `koanf:"accesstoken"`
}

// TextgenConfig holds the text-completion provider settings.
type TextgenConfig struct {
	APIKey string `koanf:"apikey"`
	Model  string `koanf:"model"`
}

// IngestConfig holds listening-feed ingestion settings.
type IngestConfig struct {
	SyncCooldown time.Duration `koanf:"synccooldown"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Ingest: IngestConfig{
			SyncCooldown: 15 * time.Minute,
		},
	}
}

// Load builds the configuration. Missing config files are fine; a file
// named by MOODFM_CONFIG must exist.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path, explicit := configPath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configPath resolves the config file to read and whether it was named
// explicitly.
func configPath() (string, bool) {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path, true
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, false
		}
	}
	return "", false
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Lastfm.APIKey == "" {
		return fmt.Errorf("lastfm.apikey is required")
	}
	return nil
}
