package fetch

import (
	"context"
	"fmt"
	"sync"

	"github.com/Faultbox/stagegraph/pkg/pak"
)

// PackFetcher serves assets from pack files.
type PackFetcher struct {
	archives []*pak.Archive
	mu       sync.RWMutex
}

// NewPackFetcher creates an empty PackFetcher.
func NewPackFetcher() *PackFetcher {
	return &PackFetcher{}
}

// AddArchive opens a pack file and adds it to the search list.
// Archives are searched in reverse order (last added = highest priority).
func (p *PackFetcher) AddArchive(path string) error {
	archive, err := pak.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	p.Add(archive)
	return nil
}

// Add appends an already opened archive.
func (p *PackFetcher) Add(archive *pak.Archive) {
	p.mu.Lock()
	p.archives = append(p.archives, archive)
	p.mu.Unlock()
}

// Fetch implements Fetcher.
func (p *PackFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for i := len(p.archives) - 1; i >= 0; i-- {
		if !p.archives[i].Contains(path) {
			continue
		}
		return p.archives[i].Read(path)
	}
	return nil, notFound(path)
}

// List returns every path in every archive, highest priority first, without
// duplicates.
func (p *PackFetcher) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for i := len(p.archives) - 1; i >= 0; i-- {
		for _, name := range p.archives[i].List() {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// Close closes all archives.
func (p *PackFetcher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, archive := range p.archives {
		archive.Close()
	}
	p.archives = nil
}
