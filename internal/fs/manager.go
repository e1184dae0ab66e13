package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"mdvault/internal/mdv"
)

// NoteAutoSave is the note on snapshots taken before a save overwrites a file.
const NoteAutoSave = "auto-save"

// ErrReservedPath is returned for paths inside the version storage directory.
var ErrReservedPath = mdv.ErrReservedPath

// File type classifications reported in tree listings.
const (
	TypeDirectory = "directory"
	TypeMarkdown  = "markdown"
	TypeText      = "text"
	TypeCode      = "code"
	TypeConfig    = "config"
	TypeUnknown   = "unknown"
)

var fileTypes = map[string]string{
	".md": TypeMarkdown, ".markdown": TypeMarkdown,
	".txt": TypeText, ".text": TypeText,
	".py": TypeCode, ".js": TypeCode, ".ts": TypeCode, ".tsx": TypeCode, ".jsx": TypeCode,
	".java": TypeCode, ".c": TypeCode, ".cpp": TypeCode, ".go": TypeCode, ".rs": TypeCode,
	".json": TypeConfig, ".yaml": TypeConfig, ".yml": TypeConfig, ".toml": TypeConfig, ".ini": TypeConfig,
}

// Snapshotter records file versions. *mdv.SnapshotStore implements it.
type Snapshotter interface {
	CreateVersion(ctx context.Context, filePath, content, note string) (*mdv.CreateResult, error)
}

// Limits bounds the size of files the Manager reads and accepts.
type Limits struct {
	MaxFileSize   int64
	MaxUploadSize int64
	MaxImageSize  int64
}

// Manager performs the file operations of the editor on the files under a
// root directory. Every client path goes through the PathResolver; hidden
// entries, ignored paths and the reserved version directory are never listed.
type Manager struct {
	resolver *mdv.PathResolver
	versions Snapshotter
	ignore   *IgnoreMatcher
	limits   Limits
	logger   mdv.Logger
}

// NewManager creates a Manager. versions may be nil, in which case saves are
// not snapshotted.
func NewManager(resolver *mdv.PathResolver, versions Snapshotter, ignore *IgnoreMatcher, limits Limits, logger mdv.Logger) *Manager {
	return &Manager{
		resolver: resolver,
		versions: versions,
		ignore:   ignore,
		limits:   limits,
		logger:   logger,
	}
}

// TreeNode is one entry of a directory tree. Children is nil for files and
// non-nil for directories.
type TreeNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     string      `json:"type"`
	Children []*TreeNode `json:"children"`
}

// RenameResult describes a completed rename.
type RenameResult struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
	NewName string `json:"new_name"`
}

// resolve maps a client path to an absolute path, rejecting the reserved
// directory.
func (m *Manager) resolve(relativePath string) (string, string, error) {
	abs, err := m.resolver.Resolve(relativePath)
	if err != nil {
		return "", "", err
	}
	rel, err := m.resolver.Relative(abs)
	if err != nil {
		return "", "", err
	}
	if m.resolver.IsReserved(rel) || isWithin(abs, m.resolver.ReservedDir()) {
		return "", "", fmt.Errorf("%w: %q", ErrReservedPath, relativePath)
	}
	return abs, rel, nil
}

func isWithin(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}

// hidden reports whether an entry is left out of listings and search.
func (m *Manager) hidden(name, rel string, isDir bool) bool {
	return strings.HasPrefix(name, ".") || m.resolver.IsReserved(rel) || m.ignore.Match(rel, isDir)
}

// Tree lists the directory at relativePath recursively. Directories come
// first, then files, each group ordered by case-insensitive name. A missing
// target yields an empty tree; a file target yields a single node.
func (m *Manager) Tree(relativePath string) ([]*TreeNode, error) {
	abs, rel, err := m.resolve(relativePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*TreeNode{}, nil
		}
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	if !info.IsDir() {
		return []*TreeNode{{Name: info.Name(), Path: rel, Type: fileType(info.Name())}}, nil
	}
	return m.walkTree(abs, rel)
}

func (m *Manager) walkTree(abs, rel string) ([]*TreeNode, error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			m.logger.Warn("skipping unreadable directory", "path", rel, "error", err)
			return []*TreeNode{}, nil
		}
		return nil, fmt.Errorf("reading directory %s: %w", rel, err)
	}
	sortEntries(entries)

	nodes := make([]*TreeNode, 0, len(entries))
	for _, e := range entries {
		childRel := joinRel(rel, e.Name())
		if m.hidden(e.Name(), childRel, e.IsDir()) {
			continue
		}
		if e.IsDir() {
			children, err := m.walkTree(filepath.Join(abs, e.Name()), childRel)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, &TreeNode{Name: e.Name(), Path: childRel, Type: TypeDirectory, Children: children})
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		nodes = append(nodes, &TreeNode{Name: e.Name(), Path: childRel, Type: fileType(e.Name())})
	}
	return nodes, nil
}

func sortEntries(entries []os.DirEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].IsDir(), entries[j].IsDir()
		if di != dj {
			return di
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func fileType(name string) string {
	if t, ok := fileTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return TypeUnknown
}

// ReadFile returns the content of a text file. Files larger than the
// configured limit and files that are not valid UTF-8 are rejected.
func (m *Manager) ReadFile(relativePath string) (string, error) {
	abs, rel, err := m.resolve(relativePath)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("file %s: %w", relativePath, mdv.ErrNotFound)
		}
		return "", fmt.Errorf("stat %s: %w", rel, err)
	}
	if m.limits.MaxFileSize > 0 && info.Size() > m.limits.MaxFileSize {
		return "", fmt.Errorf("%w: file is %d bytes, limit is %d", mdv.ErrInvalidArgument, info.Size(), m.limits.MaxFileSize)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not UTF-8 text", mdv.ErrInvalidArgument, rel)
	}
	return string(data), nil
}

// SaveFile writes content to relativePath, creating parent directories. When
// the file already exists its current content is snapshotted first; a failed
// snapshot is logged and does not block the save.
func (m *Manager) SaveFile(ctx context.Context, relativePath, content string) error {
	abs, rel, err := m.resolve(relativePath)
	if err != nil {
		return err
	}
	if rel == "" {
		return fmt.Errorf("%w: cannot save to the root directory", mdv.ErrInvalidArgument)
	}
	if m.limits.MaxFileSize > 0 && int64(len(content)) > m.limits.MaxFileSize {
		return fmt.Errorf("%w: content is %d bytes, limit is %d", mdv.ErrInvalidArgument, len(content), m.limits.MaxFileSize)
	}

	if m.versions != nil {
		if current, err := os.ReadFile(abs); err == nil {
			if _, err := m.versions.CreateVersion(ctx, rel, string(current), NoteAutoSave); err != nil {
				m.logger.Warn("auto-save snapshot failed", "path", rel, "error", err)
			}
		}
	}

	if err := mdv.WriteFileAtomic(abs, []byte(content)); err != nil {
		return fmt.Errorf("saving %s: %w", rel, err)
	}
	m.logger.Info("file saved", "path", rel, "size", len(content))
	return nil
}

// Rename gives the file or directory at relativePath a new name in the same
// directory.
func (m *Manager) Rename(relativePath, newName string) (*RenameResult, error) {
	abs, rel, err := m.resolve(relativePath)
	if err != nil {
		return nil, err
	}
	if rel == "" {
		return nil, fmt.Errorf("%w: cannot rename the root directory", mdv.ErrInvalidArgument)
	}
	if _, err := os.Lstat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file %s: %w", relativePath, mdv.ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	if err := ValidateName(newName); err != nil {
		return nil, err
	}

	target := filepath.Join(filepath.Dir(abs), newName)
	if _, err := os.Lstat(target); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", mdv.ErrInvalidArgument, newName)
	}
	if err := os.Rename(abs, target); err != nil {
		return nil, fmt.Errorf("renaming %s: %w", rel, err)
	}

	newRel, err := m.resolver.Relative(target)
	if err != nil {
		return nil, err
	}
	m.logger.Info("file renamed", "old_path", rel, "new_path", newRel)
	return &RenameResult{OldPath: rel, NewPath: newRel, NewName: newName}, nil
}

// ValidateName checks a single path component supplied by a client.
func ValidateName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return fmt.Errorf("%w: invalid file name %q", mdv.ErrInvalidArgument, name)
	case strings.ContainsAny(name, `<>:"|?*/\`):
		return fmt.Errorf(`%w: file name may not contain any of < > : " | ? * / \`, mdv.ErrInvalidArgument)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: file name may not start with a dot", mdv.ErrInvalidArgument)
	case len(name) > 200:
		return fmt.Errorf("%w: file name is longer than 200 bytes", mdv.ErrInvalidArgument)
	}
	return nil
}

// Delete removes a file, or a directory with everything below it.
func (m *Manager) Delete(relativePath string) (string, error) {
	abs, rel, err := m.resolve(relativePath)
	if err != nil {
		return "", err
	}
	if rel == "" {
		return "", fmt.Errorf("%w: cannot delete the root directory", mdv.ErrInvalidArgument)
	}

	info, err := os.Lstat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("file %s: %w", relativePath, mdv.ErrNotFound)
		}
		return "", fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		err = os.RemoveAll(abs)
	} else {
		err = os.Remove(abs)
	}
	if err != nil {
		return "", fmt.Errorf("deleting %s: %w", rel, err)
	}

	m.logger.Info("file deleted", "path", rel, "dir", info.IsDir())
	return rel, nil
}

// ImagePath returns the absolute path of an uploaded image for serving.
func (m *Manager) ImagePath(relativePath string) (string, error) {
	abs, _, err := m.resolve(relativePath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("image %s: %w", relativePath, mdv.ErrNotFound)
	}
	return abs, nil
}
