// Package config loads flowscope configuration from TOML files.
//
// Configuration is optional: every field has a working default, so the
// zero-config path ([Default]) is fully functional. A config file adjusts
// editor behavior (history depth, snap step), the layout frame, the HTTP
// listen address, and the document storage backend.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/flowscope/flowscope/pkg/editor/history"
)

// Config is the root configuration document.
type Config struct {
	Editor EditorConfig `toml:"editor"`
	Layout LayoutConfig `toml:"layout"`
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
}

// EditorConfig adjusts session behavior.
type EditorConfig struct {
	// HistoryDepth bounds the undo stack. Clamped to [1, MaxStackSize].
	HistoryDepth int `toml:"history_depth"`

	// SnapStep rounds committed drag offsets to a grid when positive.
	// Zero disables snapping.
	SnapStep float64 `toml:"snap_step"`
}

// LayoutConfig adjusts the automatic layout frame.
type LayoutConfig struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
	Margin float64 `toml:"margin"`
}

// ServerConfig adjusts the HTTP editor server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// StoreConfig selects and configures the document storage backend.
type StoreConfig struct {
	// Backend is one of "file", "redis", "mongo".
	Backend string `toml:"backend"`

	File  FileStoreConfig  `toml:"file"`
	Redis RedisStoreConfig `toml:"redis"`
	Mongo MongoStoreConfig `toml:"mongo"`
}

// FileStoreConfig configures the file backend.
type FileStoreConfig struct {
	// Dir is the document directory. Empty means the default config dir.
	Dir string `toml:"dir"`
}

// RedisStoreConfig configures the Redis backend.
type RedisStoreConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MongoStoreConfig configures the MongoDB backend.
type MongoStoreConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Editor: EditorConfig{
			HistoryDepth: history.MaxStackSize,
			SnapStep:     0,
		},
		Layout: LayoutConfig{
			Width:  800,
			Height: 600,
			Margin: 48,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8420",
		},
		Store: StoreConfig{
			Backend: "file",
			Redis:   RedisStoreConfig{Addr: "localhost:6379"},
			Mongo:   MongoStoreConfig{URI: "mongodb://localhost:27017"},
		},
	}
}

// DefaultPath returns the conventional config file location,
// ~/.config/flowscope/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "flowscope", "config.toml"), nil
}

// Load reads the config file at the conventional location. A missing file
// is not an error; defaults are returned.
func Load() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates a TOML config file. Fields absent from the
// file keep their defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	cfg.clamp()
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "file", "redis", "mongo":
	default:
		return fmt.Errorf("unknown store backend %q (want file, redis, or mongo)", c.Store.Backend)
	}
	if c.Layout.Width <= 0 || c.Layout.Height <= 0 {
		return fmt.Errorf("layout frame %gx%g is not positive", c.Layout.Width, c.Layout.Height)
	}
	if c.Editor.SnapStep < 0 {
		return fmt.Errorf("snap_step %g is negative", c.Editor.SnapStep)
	}
	return nil
}

// clamp bounds values that are valid but out of supported range.
func (c *Config) clamp() {
	if c.Editor.HistoryDepth < 1 {
		c.Editor.HistoryDepth = 1
	}
	if c.Editor.HistoryDepth > history.MaxStackSize {
		c.Editor.HistoryDepth = history.MaxStackSize
	}
	if c.Layout.Margin < 0 {
		c.Layout.Margin = 0
	}
}
