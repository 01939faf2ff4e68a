package config

import (
	"os"
	"path/filepath"
)

func ConfigRoot() string {
	// Windows
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, "comicgrab")
	}

	// Linux/macOS XDG
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "comicgrab")
	}

	// Linux/macOS default
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "comicgrab")
}

func ConfigFile() string {
	return filepath.Join(ConfigRoot(), "config.yaml")
}

// Init writes a fresh default config, returning os.ErrExist (with the
// path) when one is already there.
func Init() (string, error) {
	if err := os.MkdirAll(ConfigRoot(), 0755); err != nil {
		return "", err
	}

	path := ConfigFile()
	if _, err := os.Stat(path); err == nil {
		return path, os.ErrExist
	}

	if err := SaveYAML(DefaultConfig(), path); err != nil {
		return "", err
	}

	return path, nil
}
