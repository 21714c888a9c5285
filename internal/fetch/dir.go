package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DirFetcher serves assets from a directory tree.
type DirFetcher struct {
	Root string
}

// NewDirFetcher returns a DirFetcher rooted at root.
func NewDirFetcher(root string) *DirFetcher {
	return &DirFetcher{Root: root}
}

// Fetch implements Fetcher.
func (d *DirFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := d.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(p)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return data, nil
}

// resolve maps a logical path to a file under Root, refusing paths that
// would escape it.
func (d *DirFetcher) resolve(p string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	if clean == "/" {
		return "", notFound(p)
	}
	return filepath.Join(d.Root, filepath.FromSlash(clean[1:])), nil
}
