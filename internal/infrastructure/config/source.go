package config

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// packExtensions are the archive extensions a module root may carry.
var packExtensions = []string{".zip", ".xpi"}

// IsPack reports whether root names a packed module tree.
func IsPack(root string) bool {
	ext := strings.ToLower(filepath.Ext(root))
	for _, e := range packExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// OpenRoot opens a module root: a directory, or a zip/xpi pack read in
// place. The returned closer releases the pack and is a no-op for
// directories.
func OpenRoot(root string) (fs.FS, io.Closer, error) {
	if root == "" {
		root = "."
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("open module root: %w", err)
	}

	if info.IsDir() {
		return os.DirFS(root), nopCloser{}, nil
	}
	if !IsPack(root) {
		return nil, nil, fmt.Errorf("module root %s is neither a directory nor a pack", root)
	}

	pack, err := zip.OpenReader(root)
	if err != nil {
		return nil, nil, fmt.Errorf("open module pack: %w", err)
	}
	return pack, pack, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
