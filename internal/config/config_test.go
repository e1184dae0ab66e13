package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		RootDir: "/home/user/notes",
		BaseDir: "/home/user/.local/share/mdvault",
		LogDir:  "/home/user/.local/share/mdvault/log",
		Server: ServerConfig{
			Port:        9000,
			CORSOrigins: []string{"http://localhost:5173"},
			MaxFileSize: 1024,
		},
		Versions: VersionsConfig{ReservedDir: ".versions", DefaultLimit: 10, KeepCount: 3},
		Vault:    VaultConfig{Type: "s3", Name: "remote", S3Bucket: "notes", S3Prefix: "mdvault"},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/mdvault/keys/mdvault.pub",
			PrivateKeyPath: "/home/user/.local/share/mdvault/keys/mdvault.key",
		},
		Database:   DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/mdvault/db"},
		Filesystem: FilesystemConfig{Ignore: []string{"*.tmp", "node_modules"}},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.RootDir != original.RootDir {
		t.Errorf("RootDir = %q, want %q", got.RootDir, original.RootDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", got.Server.Port)
	}
	if len(got.Server.CORSOrigins) != 1 || got.Server.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("Server.CORSOrigins = %v", got.Server.CORSOrigins)
	}
	if got.Versions.KeepCount != 3 {
		t.Errorf("Versions.KeepCount = %d, want 3", got.Versions.KeepCount)
	}
	if got.Vault.Type != "s3" || got.Vault.S3Bucket != "notes" {
		t.Errorf("Vault = %+v", got.Vault)
	}
	if got.Encryption.Type != "age" {
		t.Errorf("Encryption.Type = %q, want %q", got.Encryption.Type, "age")
	}
	if got.Database.DataDir != original.Database.DataDir {
		t.Errorf("Database.DataDir = %q, want %q", got.Database.DataDir, original.Database.DataDir)
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/notes", "/data/mdvault")

	if cfg.RootDir != "/notes" {
		t.Errorf("RootDir = %q, want %q", cfg.RootDir, "/notes")
	}
	if cfg.LogDir != "/data/mdvault/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/mdvault/log")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Server.Port != 8001 {
		t.Errorf("Server.Port = %d, want 8001", cfg.Server.Port)
	}
	if cfg.Server.MaxImageSize != 5<<20 {
		t.Errorf("Server.MaxImageSize = %d, want %d", cfg.Server.MaxImageSize, 5<<20)
	}
	if cfg.Versions.ReservedDir != ".versions" {
		t.Errorf("Versions.ReservedDir = %q, want %q", cfg.Versions.ReservedDir, ".versions")
	}
	if cfg.Versions.DefaultLimit != 50 || cfg.Versions.KeepCount != 20 {
		t.Errorf("Versions = %+v, want limit 50 keep 20", cfg.Versions)
	}
	if cfg.Database.DataDir != "/data/mdvault/db" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/mdvault/db")
	}
	if cfg.Encryption.Type != "none" {
		t.Errorf("Encryption.Type = %q, want %q", cfg.Encryption.Type, "none")
	}
	if cfg.Encryption.PrivateKeyPath != "/data/mdvault/keys/mdvault.key" {
		t.Errorf("Encryption.PrivateKeyPath = %q", cfg.Encryption.PrivateKeyPath)
	}
}

func TestApplyEnv(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	t.Run("overrides root, port and origins", func(t *testing.T) {
		cfg := NewConfig("/notes", "/data")
		err := ApplyEnv(cfg, env(map[string]string{
			"MDVAULT_ROOT": "/srv/notes",
			"PORT":         "9100",
			"CORS_ORIGINS": "http://a.test, http://b.test,,",
		}))
		if err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}
		if cfg.RootDir != "/srv/notes" {
			t.Errorf("RootDir = %q, want %q", cfg.RootDir, "/srv/notes")
		}
		if cfg.Server.Port != 9100 {
			t.Errorf("Port = %d, want 9100", cfg.Server.Port)
		}
		want := []string{"http://a.test", "http://b.test"}
		if len(cfg.Server.CORSOrigins) != len(want) {
			t.Fatalf("CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
		}
		for i := range want {
			if cfg.Server.CORSOrigins[i] != want[i] {
				t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Server.CORSOrigins[i], want[i])
			}
		}
	})

	t.Run("falls back to MARKDOWN_ROOT_PATH", func(t *testing.T) {
		cfg := NewConfig("/notes", "/data")
		if err := ApplyEnv(cfg, env(map[string]string{"MARKDOWN_ROOT_PATH": "./markdown-files"})); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}
		if cfg.RootDir != "./markdown-files" {
			t.Errorf("RootDir = %q, want %q", cfg.RootDir, "./markdown-files")
		}
	})

	t.Run("sets log level", func(t *testing.T) {
		cfg := NewConfig("/notes", "/data")
		if err := ApplyEnv(cfg, env(map[string]string{"MDVAULT_LOG_LEVEL": "debug"})); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
		}
	})

	t.Run("rejects invalid port", func(t *testing.T) {
		cfg := NewConfig("/notes", "/data")
		if err := ApplyEnv(cfg, env(map[string]string{"PORT": "eighty"})); err == nil {
			t.Error("ApplyEnv() expected error for non-numeric PORT")
		}
	})

	t.Run("leaves config alone without env", func(t *testing.T) {
		cfg := NewConfig("/notes", "/data")
		if err := ApplyEnv(cfg, env(nil)); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}
		if cfg.RootDir != "/notes" || cfg.Server.Port != 8001 {
			t.Errorf("config changed: root=%q port=%d", cfg.RootDir, cfg.Server.Port)
		}
	})
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mdvault.toml")
		cfg := NewConfig(filepath.Join(dir, "notes"), dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mdvault.toml")
		cfg := NewConfig(filepath.Join(dir, "notes"), dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mdvault.toml")
		cfg := NewConfig("/read/test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.RootDir != "/read/test" {
			t.Errorf("RootDir = %q, want %q", got.RootDir, "/read/test")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/mdvault.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
