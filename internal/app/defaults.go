package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths are the default locations of the config file and of mdvault's own
// data (index database, logs, keys).
type Paths struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// DefaultPaths resolves Paths from the environment, falling back to XDG-style
// locations under the home directory:
//   - MDVAULT_CONFIG_PATH: config file (default ~/.config/mdvault.toml)
//   - MDVAULT_HOME: base directory (default ~/.local/share/mdvault)
func DefaultPaths(getenv func(string) string) (Paths, error) {
	configPath := getenv("MDVAULT_CONFIG_PATH")
	baseDir := getenv("MDVAULT_HOME")

	if configPath == "" || baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("cannot determine home directory: %w", err)
		}
		if configPath == "" {
			configPath = filepath.Join(home, ".config", "mdvault.toml")
		}
		if baseDir == "" {
			baseDir = filepath.Join(home, ".local", "share", "mdvault")
		}
	}

	return Paths{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}
