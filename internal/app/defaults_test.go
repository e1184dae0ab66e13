package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		name string
		env  map[string]string
		want Paths
	}{
		{
			name: "env overrides",
			env:  map[string]string{"MDVAULT_CONFIG_PATH": "/custom/config.toml", "MDVAULT_HOME": "/custom/mdvault"},
			want: Paths{ConfigPath: "/custom/config.toml", BaseDir: "/custom/mdvault", LogDir: "/custom/mdvault/log"},
		},
		{
			name: "home defaults",
			env:  map[string]string{},
			want: Paths{
				ConfigPath: filepath.Join(home, ".config", "mdvault.toml"),
				BaseDir:    filepath.Join(home, ".local", "share", "mdvault"),
				LogDir:     filepath.Join(home, ".local", "share", "mdvault", "log"),
			},
		},
		{
			name: "only base dir set",
			env:  map[string]string{"MDVAULT_HOME": "/data"},
			want: Paths{ConfigPath: filepath.Join(home, ".config", "mdvault.toml"), BaseDir: "/data", LogDir: "/data/log"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultPaths(func(k string) string { return tt.env[k] })
			if err != nil {
				t.Fatalf("DefaultPaths() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DefaultPaths() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
