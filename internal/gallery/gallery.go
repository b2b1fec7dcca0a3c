// Package gallery manages the local reference-image directory.
//
// Rules may point at a photo of a fired test tile by bare filename; the
// gallery resolves that name inside its directory and stores uploaded
// bytes. File contents are never inspected.
package gallery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrBadName is returned for names that are empty, contain path
	// separators, or have an unsupported extension.
	ErrBadName = errors.New("gallery: invalid image filename")
	// ErrEmpty is returned when Save is given no bytes.
	ErrEmpty = errors.New("gallery: empty image")
)

// Extensions are the accepted image file extensions.
var Extensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// Gallery is an image directory.
type Gallery struct {
	dir string
}

// New returns a gallery rooted at dir. The directory is created lazily on
// the first Save.
func New(dir string) *Gallery {
	return &Gallery{dir: dir}
}

// Dir returns the gallery directory.
func (g *Gallery) Dir() string { return g.dir }

// ValidName reports whether name is a bare filename with an accepted
// image extension.
func ValidName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return false
	}
	if name == "." || name == ".." {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Path joins name onto the gallery directory.
func (g *Gallery) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return filepath.Join(g.dir, name), nil
}

// Exists reports whether name refers to a regular file in the gallery.
func (g *Gallery) Exists(name string) bool {
	p, err := g.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Save writes data to name inside the gallery, replacing any existing file,
// and returns the written path.
func (g *Gallery) Save(name string, data []byte) (string, error) {
	p, err := g.Path(name)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("gallery: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(g.dir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("gallery: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("gallery: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("gallery: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", fmt.Errorf("gallery: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		cleanup()
		return "", fmt.Errorf("gallery: replace %s: %w", name, err)
	}
	return p, nil
}

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// MIMEType returns the image MIME type for name's extension, or "" when
// the extension is not accepted.
func MIMEType(name string) string {
	return mimeTypes[strings.ToLower(filepath.Ext(name))]
}

// Read returns the bytes stored under name.
func (g *Gallery) Read(name string) ([]byte, error) {
	p, err := g.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("gallery: read %s: %w", name, err)
	}
	return data, nil
}
