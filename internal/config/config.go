package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for mdvault.
type Config struct {
	RootDir    string           `toml:"root_dir"` // markdown root served and versioned
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Server     ServerConfig     `toml:"server"`
	Versions   VersionsConfig   `toml:"versions"`
	Vault      VaultConfig      `toml:"vault"`
	Database   DatabaseConfig   `toml:"database"`
	Encryption EncryptionConfig `toml:"encryption"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port          int      `toml:"port"`
	CORSOrigins   []string `toml:"cors_origins"`
	MaxFileSize   int64    `toml:"max_file_size"`   // largest file served by read, in bytes
	MaxUploadSize int64    `toml:"max_upload_size"` // largest document upload, in bytes
	MaxImageSize  int64    `toml:"max_image_size"`  // largest image upload, in bytes
}

// VersionsConfig holds version history settings.
type VersionsConfig struct {
	ReservedDir  string `toml:"reserved_dir"`  // directory under root_dir holding version records
	DefaultLimit int    `toml:"default_limit"` // versions listed when no limit is given
	KeepCount    int    `toml:"keep_count"`    // versions kept by cleanup when no count is given
}

// EncryptionConfig selects at-rest encryption of version records.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"` // patterns hidden from tree listings and search
}

// VaultConfig represents configuration for the version record store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "filesystem" (default), "memory", or "s3"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem");
	// empty means <root_dir>/<reserved_dir>.
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the version index.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a new Config with the provided values and defaults for everything else.
func NewConfig(rootDir, baseDir string) *Config {
	return &Config{
		RootDir:  rootDir,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Server: ServerConfig{
			Port:          8001,
			CORSOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
			MaxFileSize:   10 << 20,
			MaxUploadSize: 10 << 20,
			MaxImageSize:  5 << 20,
		},
		Versions: VersionsConfig{
			ReservedDir:  ".versions",
			DefaultLimit: 50,
			KeepCount:    20,
		},
		Vault: VaultConfig{
			Type: "filesystem",
			Name: "local",
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "mdvault.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "mdvault.key"),
		},
	}
}

// ApplyEnv overrides config values from environment variables:
//   - MDVAULT_ROOT or MARKDOWN_ROOT_PATH: root_dir
//   - PORT: server.port
//   - CORS_ORIGINS: server.cors_origins, comma separated
//   - MDVAULT_LOG_LEVEL: log_level
//
// getenv is usually os.Getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("MDVAULT_ROOT"); v != "" {
		cfg.RootDir = v
	} else if v := getenv("MARKDOWN_ROOT_PATH"); v != "" {
		cfg.RootDir = v
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Server.Port = port
	}

	if v := getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}

	if v := getenv("MDVAULT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
