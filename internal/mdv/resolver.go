package mdv

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"syscall"
)

// DefaultReservedDir is the directory under the root that holds version data.
const DefaultReservedDir = ".versions"

// PathResolver maps client-supplied relative paths to absolute paths that are
// guaranteed to lie inside a single root directory. It never touches the
// filesystem beyond resolving symlinks.
type PathResolver struct {
	root        string // canonical (absolute, symlinks resolved)
	reservedDir string // name of the reserved storage directory directly under root
}

// NewPathResolver canonicalizes root once and returns a resolver for it.
// reservedDir names the directory under root that file operations must not
// expose; an empty value selects DefaultReservedDir.
func NewPathResolver(root, reservedDir string) (*PathResolver, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty root", ErrInvalidArgument)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	canon, err := canonicalize(abs)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing root: %w", err)
	}
	if reservedDir == "" {
		reservedDir = DefaultReservedDir
	}
	return &PathResolver{root: canon, reservedDir: reservedDir}, nil
}

// Root returns the canonical root directory.
func (r *PathResolver) Root() string { return r.root }

// ReservedDir returns the absolute path of the reserved storage directory.
func (r *PathResolver) ReservedDir() string { return filepath.Join(r.root, r.reservedDir) }

// Resolve strips leading separators from relativePath, joins it to the root
// and canonicalizes the result. Paths that do not exist yet resolve through
// their longest existing ancestor. The result is the root itself or a
// descendant of it; anything else yields ErrPathTraversal.
func (r *PathResolver) Resolve(relativePath string) (string, error) {
	trimmed := strings.TrimLeft(relativePath, `/\`)
	joined := filepath.Join(r.root, filepath.FromSlash(trimmed))

	canon, err := canonicalize(joined)
	if err != nil {
		return "", storageErr("resolving path", err)
	}
	if !r.contains(canon) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, relativePath)
	}
	return canon, nil
}

// Relative converts an absolute path under the root into a slash-separated
// root-relative path. The root itself maps to "".
func (r *PathResolver) Relative(absPath string) (string, error) {
	rel, err := filepath.Rel(r.root, absPath)
	if err != nil || !r.contains(absPath) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, absPath)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// IsReserved reports whether the slash-separated root-relative path points at
// or into the reserved storage directory.
func (r *PathResolver) IsReserved(relativePath string) bool {
	cleaned := path.Clean("/" + filepath.ToSlash(relativePath))
	first := strings.SplitN(strings.TrimPrefix(cleaned, "/"), "/", 2)[0]
	return first == r.reservedDir
}

func (r *PathResolver) contains(p string) bool {
	rel, err := filepath.Rel(r.root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// canonicalize cleans p and resolves symlinks on its longest existing prefix,
// re-appending the components that do not exist yet.
func canonicalize(p string) (string, error) {
	cur := filepath.Clean(p)
	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			parts := append([]string{resolved}, reversed(missing)...)
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return filepath.Clean(p), nil
		}
		missing = append(missing, filepath.Base(cur))
		cur = parent
	}
}

func reversed(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
