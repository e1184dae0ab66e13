package vault

import (
	"context"
	"fmt"

	"mdvault/internal/config"
	"mdvault/internal/mdv"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
// defaultRoot is used by the filesystem vault when fs_vault_root is not set;
// normally it is the reserved directory under the markdown root.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig, defaultRoot string) (mdv.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		return NewS3Vault(ctx, cfg)
	case "filesystem", "":
		root := cfg.FSVaultRoot
		if root == "" {
			root = defaultRoot
		}
		if root == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.Name, root)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
