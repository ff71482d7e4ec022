// Package config loads the client's optional TOML configuration file:
// persistent defaults for transfer settings a console line leaves unset.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the optional on-disk configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
}

// DefaultsConfig holds persistent flag defaults for a transfer command.
// cmd/tftpc applies Timeout, Blksize and Port when the console line
// leaves them at zero; Mode and Address are decoded but not applied.
type DefaultsConfig struct {
	Timeout *int    `toml:"timeout"`
	Blksize *int    `toml:"blksize"`
	Mode    *string `toml:"mode"`
	Address *string `toml:"address"`
	Port    *int    `toml:"port"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "tftpc", "config.toml")
}

// Load reads the config file from the XDG path. A missing file is not
// an error — the config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	return cfg, nil
}
