// Package fetch provides the byte-buffer providers stage loading reads
// assets through. Paths are logical, slash separated asset paths such as
// "zack_and_wiki/Stage/STG_00_00_ALL.brres".
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound reports that no source holds the requested path. Callers test
// for it with errors.Is; every other error is a transport failure.
var ErrNotFound = errors.New("fetch: asset not found")

// Fetcher returns the contents of an asset. Implementations must be safe for
// concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Func adapts an ordinary function to the Fetcher interface.
type Func func(ctx context.Context, path string) ([]byte, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, path)
}

// MapFetcher serves assets from memory.
type MapFetcher struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMapFetcher returns a MapFetcher holding a copy of files.
func NewMapFetcher(files map[string][]byte) *MapFetcher {
	m := &MapFetcher{files: make(map[string][]byte, len(files))}
	for k, v := range files {
		m.files[k] = v
	}
	return m
}

// Set stores or replaces one asset.
func (m *MapFetcher) Set(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
}

// Fetch implements Fetcher.
func (m *MapFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, notFound(path)
	}
	return data, nil
}

// Chain tries each fetcher in order and returns the first hit. Only
// ErrNotFound moves on to the next source; other errors are returned as is.
type Chain []Fetcher

// Fetch implements Fetcher.
func (c Chain) Fetch(ctx context.Context, path string) ([]byte, error) {
	for _, f := range c {
		data, err := f.Fetch(ctx, path)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, notFound(path)
}
