// Package config loads runtime configuration from an optional YAML file,
// with environment variables (optionally from .env) overriding file values.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"citygrid/core-go/internal/device"
	"citygrid/core-go/internal/sheets"
)

const (
	defaultHTTPAddr        = ":8081"
	defaultLogLevel        = "info"
	defaultRefreshInterval = 5 * time.Minute
	defaultFetchTimeout    = 15 * time.Second
	defaultTileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	defaultTileAttribution = "© OpenStreetMap contributors"
	defaultTileMaxZoom     = 19
	defaultMapZoom         = 13
	defaultFocusZoom       = 14
)

// The fallback viewport, central Bangkok.
const (
	defaultCenterLat = 13.7367
	defaultCenterLng = 100.5332
)

type MapConfig struct {
	CenterLat       float64 `yaml:"center_lat"`
	CenterLng       float64 `yaml:"center_lng"`
	Zoom            int     `yaml:"zoom"`
	FocusZoom       int     `yaml:"focus_zoom"`
	TileURL         string  `yaml:"tile_url"`
	TileAttribution string  `yaml:"tile_attribution"`
	TileMaxZoom     int     `yaml:"tile_max_zoom"`
	ShowCoverage    bool    `yaml:"show_coverage"`
}

type IngestConfig struct {
	Sources         []sheets.Source `yaml:"sources"`
	RefreshInterval Duration        `yaml:"refresh_interval"`
	FetchTimeout    Duration        `yaml:"fetch_timeout"`
}

type Config struct {
	HTTPAddr       string       `yaml:"http_addr"`
	LogLevel       string       `yaml:"log_level"`
	AllowedOrigins []string     `yaml:"allowed_origins"`
	Ingest         IngestConfig `yaml:"ingest"`
	Map            MapConfig    `yaml:"map"`
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), then applies environment overrides.
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env")

	cfg := defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		HTTPAddr: defaultHTTPAddr,
		LogLevel: defaultLogLevel,
		Ingest: IngestConfig{
			RefreshInterval: Duration(defaultRefreshInterval),
			FetchTimeout:    Duration(defaultFetchTimeout),
		},
		Map: MapConfig{
			CenterLat:       defaultCenterLat,
			CenterLng:       defaultCenterLng,
			Zoom:            defaultMapZoom,
			FocusZoom:       defaultFocusZoom,
			TileURL:         defaultTileURL,
			TileAttribution: defaultTileAttribution,
			TileMaxZoom:     defaultTileMaxZoom,
			ShowCoverage:    true,
		},
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}
	if v := strings.TrimSpace(os.Getenv("REFRESH_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Ingest.RefreshInterval = Duration(d)
		}
	}
	if v := strings.TrimSpace(os.Getenv("FETCH_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Ingest.FetchTimeout = Duration(d)
		}
	}

	// Per-category sheet URL overrides, e.g. SHEET_URL_STREETLIGHT.
	for i, src := range cfg.Ingest.Sources {
		key := "SHEET_URL_" + strings.ToUpper(string(src.Category))
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			cfg.Ingest.Sources[i].URL = v
		}
	}
}

func (c Config) validate() error {
	seen := make(map[device.Category]struct{}, len(c.Ingest.Sources))
	for _, src := range c.Ingest.Sources {
		if !device.IsValidCategory(src.Category) {
			return fmt.Errorf("unknown source category %q", string(src.Category))
		}
		if strings.TrimSpace(src.URL) == "" {
			return fmt.Errorf("source %s: url is required", src.Category)
		}
		if strings.TrimSpace(src.IDField) == "" {
			return fmt.Errorf("source %s: id_field is required", src.Category)
		}
		if _, dup := seen[src.Category]; dup {
			return fmt.Errorf("duplicate source category %q", string(src.Category))
		}
		seen[src.Category] = struct{}{}
	}
	return nil
}
