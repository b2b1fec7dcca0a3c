// Package config loads kiln's TOML configuration.
//
// Every setting has a default, so a missing config file is not an error.
// Environment variables override the file for the data paths.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is the config file looked up in the working directory when no
// path is given.
const DefaultFile = "kiln.toml"

// Environment overrides.
const (
	EnvCatalog = "KILN_CATALOG"
	EnvRules   = "KILN_RULES"
	EnvImages  = "KILN_IMAGES"
	EnvDataDir = "KILN_DATA_DIR"
)

// AppConfig is the full configuration.
type AppConfig struct {
	Data    DataConfig    `toml:"data"`
	Preview PreviewConfig `toml:"preview"`
	Log     LogConfig     `toml:"log"`
}

// DataConfig locates the catalog, rule table, image directory and the
// experiment database directory.
type DataConfig struct {
	CatalogPath string `toml:"catalog_path"`
	RulesPath   string `toml:"rules_path"`
	ImagesDir   string `toml:"images_dir"`
	DataDir     string `toml:"data_dir"`
}

// PreviewConfig sizes the synthesized swatch.
type PreviewConfig struct {
	Size   int `toml:"size"`
	Margin int `toml:"margin"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfigInfo describes where the configuration came from.
type LoadConfigInfo struct {
	Path      string
	FileFound bool
	EnvKeys   []string
}

// DefaultConfig returns the built-in configuration: data files in the
// working directory and the experiment log under ~/.kiln.
func DefaultConfig() *AppConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &AppConfig{
		Data: DataConfig{
			CatalogPath: "glaze_inventory.csv",
			RulesPath:   "glaze_rules.csv",
			ImagesDir:   "images",
			DataDir:     filepath.Join(home, ".kiln"),
		},
		Preview: PreviewConfig{Size: 220, Margin: 4},
		Log:     LogConfig{Level: "info"},
	}
}

// LoadConfigWithInfo reads path (or DefaultFile when path is empty) over
// the defaults, then applies environment overrides. A missing file yields
// the defaults. An explicitly named file that is missing is an error.
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	info := LoadConfigInfo{Path: path}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, info, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, info, fmt.Errorf("config: read %s: %w", path, err)
	}

	info.EnvKeys = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, info, err
	}
	return cfg, info, nil
}

// LoadConfig is LoadConfigWithInfo without the metadata.
func LoadConfig(path string) (*AppConfig, error) {
	cfg, _, err := LoadConfigWithInfo(path)
	return cfg, err
}

// SaveConfig writes cfg as TOML to path.
func SaveConfig(cfg *AppConfig, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) []string {
	var used []string
	for _, o := range []struct {
		key string
		dst *string
	}{
		{EnvCatalog, &cfg.Data.CatalogPath},
		{EnvRules, &cfg.Data.RulesPath},
		{EnvImages, &cfg.Data.ImagesDir},
		{EnvDataDir, &cfg.Data.DataDir},
	} {
		if v := strings.TrimSpace(os.Getenv(o.key)); v != "" {
			*o.dst = v
			used = append(used, o.key)
		}
	}
	return used
}

// Validate checks the values the rest of kiln cannot recover from.
func (c *AppConfig) Validate() error {
	if c.Data.CatalogPath == "" {
		return errors.New("config: data.catalog_path is empty")
	}
	if c.Data.RulesPath == "" {
		return errors.New("config: data.rules_path is empty")
	}
	if c.Preview.Size <= 0 {
		return fmt.Errorf("config: preview.size must be positive (got %d)", c.Preview.Size)
	}
	if c.Preview.Margin < 0 {
		return fmt.Errorf("config: preview.margin must not be negative (got %d)", c.Preview.Margin)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: log.level %q: %w", s, err)
	}
	return l, nil
}

// EnsureDataDir creates the experiment data directory and returns its
// absolute path.
func EnsureDataDir(cfg *AppConfig) (string, error) {
	dir := cfg.Data.DataDir
	if dir == "" {
		dir = DefaultConfig().Data.DataDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("config: resolve data dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return "", fmt.Errorf("config: create data dir: %w", err)
	}
	return abs, nil
}
