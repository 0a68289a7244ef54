package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths are the per-user locations squirrel uses when the config does not
// say otherwise.
type Paths struct {
	ConfigFile string // TOML config read by every command
	DataDir    string // holds the log directory
	LogDir     string
}

// DefaultPaths resolves Paths from the environment.
//
// The config file is $SQUIRREL_CONFIG_PATH, else
// $XDG_CONFIG_HOME/squirrel.toml, else ~/.config/squirrel.toml.
// The data directory is $SQUIRREL_HOME, else $XDG_DATA_HOME/squirrel,
// else ~/.local/share/squirrel.
func DefaultPaths() (Paths, error) {
	configFile, err := lookupPath("SQUIRREL_CONFIG_PATH", "XDG_CONFIG_HOME", "squirrel.toml", ".config")
	if err != nil {
		return Paths{}, err
	}
	dataDir, err := lookupPath("SQUIRREL_HOME", "XDG_DATA_HOME", "squirrel", ".local", "share")
	if err != nil {
		return Paths{}, err
	}

	return Paths{
		ConfigFile: configFile,
		DataDir:    dataDir,
		LogDir:     filepath.Join(dataDir, "log"),
	}, nil
}

// lookupPath returns the value of override if set, otherwise name inside the
// XDG directory named by xdgVar, otherwise name inside the home-relative
// fallback directory.
func lookupPath(override, xdgVar, name string, fallback ...string) (string, error) {
	if path := os.Getenv(override); path != "" {
		return path, nil
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, name), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving %s: no home directory: %w", name, err)
	}
	return filepath.Join(append(append([]string{home}, fallback...), name)...), nil
}
