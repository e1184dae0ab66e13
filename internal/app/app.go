package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"mdvault/internal/config"
	"mdvault/internal/database"
	"mdvault/internal/encryption"
	"mdvault/internal/fs"
	"mdvault/internal/mdv"
	"mdvault/internal/server"
	"mdvault/internal/vault"
)

// App is the application layer between the CLI and the version store.
// It constructs all dependencies from config, exposes the operations the CLI
// runs, and closes the index and log file on Close.
type App struct {
	cfg       *config.Config
	resolver  *mdv.PathResolver
	db        *database.SQLiteDatabase
	vault     mdv.Vault
	encryptor mdv.Encryptor
	store     *mdv.SnapshotStore
	files     *fs.Manager
	logger    mdv.Logger
	op        *Operation
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation names the CLI command being run (e.g. "serve", "versions list").
// passphrase is consulted only when encrypted records are configured; it may
// be nil, in which case encrypted records stay locked.
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string, passphrase PassphraseFunc) (*App, error) {
	if cfg.RootDir == "" {
		return nil, fmt.Errorf("root_dir is not configured")
	}
	if err := os.MkdirAll(cfg.RootDir, 0755); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}
	resolver, err := mdv.NewPathResolver(cfg.RootDir, cfg.Versions.ReservedDir)
	if err != nil {
		return nil, fmt.Errorf("creating path resolver: %w", err)
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	op := NewOperation(operation, time.Now())
	slogger, logFile, err := newLogger(cfg.LogDir, op.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("operation", operation)}

	a := &App{
		cfg:      cfg,
		resolver: resolver,
		logger:   logger,
		op:       op,
		logFile:  logFile,
	}
	if err := a.wire(ctx, passphrase); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, passphrase PassphraseFunc) error {
	v, err := vault.NewVaultFromConfig(ctx, a.cfg.Vault, a.resolver.ReservedDir())
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("validating vault: %w", err)
	}
	a.vault = v

	db, err := database.NewDatabaseFromConfig(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db
	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	a.encryptor = enc

	a.store = mdv.NewSnapshotStore(a.resolver, v, db, a.logger, mdv.RealClock{}, mdv.UUIDGenerator{})
	if enc != nil {
		if !enc.IsConfigured() {
			return fmt.Errorf("encryption keys not found; run `mdvault keys init` first")
		}
		dec, err := a.unlock(passphrase)
		if err != nil {
			return err
		}
		a.store.SetEncryption(enc, dec)
	}
	if _, err := a.store.SyncIndex(ctx); err != nil {
		return fmt.Errorf("syncing version index: %w", err)
	}

	ignore, err := fs.LoadIgnoreMatcher(a.resolver.Root(), a.cfg.Filesystem.Ignore)
	if err != nil {
		return fmt.Errorf("loading ignore patterns: %w", err)
	}
	limits := fs.Limits{
		MaxFileSize:   a.cfg.Server.MaxFileSize,
		MaxUploadSize: a.cfg.Server.MaxUploadSize,
		MaxImageSize:  a.cfg.Server.MaxImageSize,
	}
	a.files = fs.NewManager(a.resolver, a.store, ignore, limits, a.logger)
	return nil
}

// unlock returns a DecryptionContext, or nil when no passphrase is available.
func (a *App) unlock(passphrase PassphraseFunc) (mdv.DecryptionContext, error) {
	if passphrase == nil {
		a.logger.Info("no passphrase source; encrypted versions are locked")
		return nil, nil
	}
	p, err := passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	if p == "" {
		a.logger.Info("no passphrase given; encrypted versions are locked")
		return nil, nil
	}
	dec, err := a.encryptor.Unlock(p)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	return dec, nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Store returns the version store.
func (a *App) Store() *mdv.SnapshotStore { return a.store }

// Files returns the file manager.
func (a *App) Files() *fs.Manager { return a.files }

// Serve runs the HTTP API until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Info("serving", "root", a.resolver.Root(), "port", a.cfg.Server.Port)
	return server.New(a.cfg, a.files, a.store, a.logger).Run(ctx)
}

// SnapshotFile records the current content of the file at relativePath as a
// new version.
func (a *App) SnapshotFile(ctx context.Context, relativePath, note string) (*mdv.CreateResult, error) {
	content, err := a.files.ReadFile(relativePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", relativePath, err)
	}
	return a.store.CreateVersion(ctx, relativePath, content, note)
}

// Fail marks the operation as failed. It is reported when the App closes.
func (a *App) Fail(err error) {
	if err != nil {
		a.op.Status = StatusError
	}
}

// Close logs the outcome of the operation and closes all resources.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}

	a.logger.Info("operation finished", "status", a.op.Status, "duration", a.op.Elapsed(time.Now()))
	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}

// InitKeys generates the encryption key pair for the configured encryption
// type, sealing the private key with passphrase.
func InitKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc == nil {
		return fmt.Errorf("encryption is disabled; set [encryption] type in the config first")
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up keys: %w", err)
	}
	return nil
}
