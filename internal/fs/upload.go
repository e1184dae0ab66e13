package fs

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"mdvault/internal/mdv"
)

// ImagesDir is the directory under the root that receives image uploads.
const ImagesDir = "images"

var uploadExtensions = map[string]bool{
	".md": true, ".markdown": true, ".txt": true,
	".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true, ".cfg": true, ".conf": true,
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true, ".bmp": true,
}

// UploadResult describes a stored upload. URL is set for images only.
type UploadResult struct {
	URL  string `json:"url,omitempty"`
	Path string `json:"path"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Upload stores a document in the directory relativePath (the root when
// empty), replacing any file of the same name.
func (m *Manager) Upload(filename string, content []byte, relativePath string) (*UploadResult, error) {
	name, err := uploadName(filename)
	if err != nil {
		return nil, err
	}
	if !uploadExtensions[strings.ToLower(filepath.Ext(name))] {
		return nil, fmt.Errorf("%w: file type %q is not allowed", mdv.ErrInvalidArgument, filepath.Ext(name))
	}
	if m.limits.MaxUploadSize > 0 && int64(len(content)) > m.limits.MaxUploadSize {
		return nil, fmt.Errorf("%w: upload is %d bytes, limit is %d", mdv.ErrInvalidArgument, len(content), m.limits.MaxUploadSize)
	}

	return m.store(joinRel(strings.Trim(filepath.ToSlash(relativePath), "/"), name), name, content)
}

// UploadImage stores an image under ImagesDir with a random prefix so that
// uploads never overwrite each other.
func (m *Manager) UploadImage(filename string, content []byte) (*UploadResult, error) {
	name, err := uploadName(filename)
	if err != nil {
		return nil, err
	}
	if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
		return nil, fmt.Errorf("%w: image type %q is not allowed", mdv.ErrInvalidArgument, filepath.Ext(name))
	}
	if m.limits.MaxImageSize > 0 && int64(len(content)) > m.limits.MaxImageSize {
		return nil, fmt.Errorf("%w: image is %d bytes, limit is %d", mdv.ErrInvalidArgument, len(content), m.limits.MaxImageSize)
	}

	unique := strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + "_" + name
	res, err := m.store(ImagesDir+"/"+unique, name, content)
	if err != nil {
		return nil, err
	}
	res.URL = "/api/images/" + res.Path
	return res, nil
}

func (m *Manager) store(relativePath, name string, content []byte) (*UploadResult, error) {
	abs, rel, err := m.resolve(relativePath)
	if err != nil {
		return nil, err
	}
	if err := mdv.WriteFileAtomic(abs, content); err != nil {
		return nil, fmt.Errorf("storing upload %s: %w", rel, err)
	}
	m.logger.Info("file uploaded", "path", rel, "size", len(content))
	return &UploadResult{Path: rel, Name: name, Size: len(content)}, nil
}

// uploadName reduces a client-supplied file name to its final component.
func uploadName(filename string) (string, error) {
	name := path.Base(filepath.ToSlash(filename))
	if name == "" || name == "." || name == "/" || name == ".." || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: invalid file name %q", mdv.ErrInvalidArgument, filename)
	}
	return name, nil
}
