// Package resolve turns manifest placement records into decoded archives.
//
// Every record is fetched concurrently. A record whose archive is missing is
// replaced by the fallback archive but keeps its own transform, so one broken
// reference shows up as a placeholder instead of failing the stage.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/stagegraph/internal/fetch"
	"github.com/Faultbox/stagegraph/internal/logger"
	"github.com/Faultbox/stagegraph/pkg/layout"
	"github.com/Faultbox/stagegraph/pkg/rres"
)

// Placement is a record whose archive has been fetched and decoded.
type Placement struct {
	Archive     *rres.Archive
	Source      string // path the archive was read from
	Fallback    bool   // true when Source is the fallback path
	Translation mgl32.Vec3
	Rotation    mgl32.Vec3 // degrees
}

// Options configure Resolve.
type Options struct {
	Base         string // e.g. "zack_and_wiki"
	Ext          string // e.g. ".brres"
	FallbackPath string
	// MaxConcurrent bounds in-flight fetches. Zero means one goroutine per
	// record.
	MaxConcurrent int
}

// Resolve fetches and decodes the archive of every record. The result has
// exactly one entry per record, at the record's index.
//
// A primary fetch that reports fetch.ErrNotFound falls back to
// opts.FallbackPath; the fallback is fetched and decoded at most once per
// call and shared by every record that needs it. Any other fetch error, a
// decode error, or a failing fallback aborts the whole call.
func Resolve(ctx context.Context, records []layout.PlacementRecord, f fetch.Fetcher, opts Options) ([]Placement, error) {
	r := &resolver{
		fetcher: f,
		opts:    opts,
		log:     logger.Named("resolve"),
	}

	out := make([]Placement, len(records))
	g, gctx := errgroup.WithContext(ctx)
	if opts.MaxConcurrent > 0 {
		g.SetLimit(opts.MaxConcurrent)
	}

	for i := range records {
		rec := records[i]
		g.Go(func() error {
			p, err := r.resolveOne(gctx, rec)
			if err != nil {
				return err
			}
			// Each goroutine owns exactly one slot.
			out[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type resolver struct {
	fetcher fetch.Fetcher
	opts    Options
	log     *zap.Logger

	group    singleflight.Group
	mu       sync.Mutex
	fallback *rres.Archive
}

func (r *resolver) resolveOne(ctx context.Context, rec layout.PlacementRecord) (Placement, error) {
	path := rec.FetchPath(r.opts.Base, r.opts.Ext)
	p := Placement{
		Source:      path,
		Translation: rec.Translation,
		Rotation:    rec.Rotation,
	}

	data, err := r.fetcher.Fetch(ctx, path)
	switch {
	case err == nil:
		a, err := rres.Decode(data)
		if err != nil {
			return Placement{}, fmt.Errorf("decoding %s: %w", path, err)
		}
		p.Archive = a
		return p, nil

	case errors.Is(err, fetch.ErrNotFound):
		r.log.Warn("object archive missing, using fallback",
			zap.String("path", path),
			zap.String("fallback", r.opts.FallbackPath))
		a, err := r.loadFallback(ctx)
		if err != nil {
			return Placement{}, err
		}
		p.Archive = a
		p.Source = r.opts.FallbackPath
		p.Fallback = true
		return p, nil

	default:
		return Placement{}, fmt.Errorf("fetching %s: %w", path, err)
	}
}

// loadFallback fetches and decodes the fallback archive once. Concurrent
// callers share the in-flight request.
func (r *resolver) loadFallback(ctx context.Context) (*rres.Archive, error) {
	r.mu.Lock()
	a := r.fallback
	r.mu.Unlock()
	if a != nil {
		return a, nil
	}

	v, err, _ := r.group.Do(r.opts.FallbackPath, func() (any, error) {
		r.mu.Lock()
		cached := r.fallback
		r.mu.Unlock()
		if cached != nil {
			return cached, nil
		}

		data, err := r.fetcher.Fetch(ctx, r.opts.FallbackPath)
		if err != nil {
			return nil, fmt.Errorf("fetching fallback %s: %w", r.opts.FallbackPath, err)
		}
		a, err := rres.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decoding fallback %s: %w", r.opts.FallbackPath, err)
		}

		r.mu.Lock()
		r.fallback = a
		r.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*rres.Archive), nil
}
