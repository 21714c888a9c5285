package stage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/scene"
	"github.com/Faultbox/stagegraph/internal/fetch"
	"github.com/Faultbox/stagegraph/internal/logger"
	"github.com/Faultbox/stagegraph/internal/resolve"
	"github.com/Faultbox/stagegraph/pkg/encoding"
	"github.com/Faultbox/stagegraph/pkg/layout"
	"github.com/Faultbox/stagegraph/pkg/rres"
)

// Defaults for Loader fields left empty.
const (
	DefaultBase = GroupID
	DefaultExt  = ".brres"
)

// Assets is everything a stage needs before any GPU resource exists.
type Assets struct {
	Desc    Desc
	Stage   []scene.Archive
	Records []layout.PlacementRecord // nil for alternate stages
	Objects []resolve.Placement
}

// Loader fetches stage assets and assembles scenes from them.
type Loader struct {
	Fetcher       fetch.Fetcher
	Base          string
	Ext           string
	MaxConcurrent int

	log *zap.Logger
}

// NewLoader returns a loader reading from f with the default base and
// archive extension.
func NewLoader(f fetch.Fetcher) *Loader {
	return &Loader{
		Fetcher: f,
		Base:    DefaultBase,
		Ext:     DefaultExt,
		log:     logger.Named("stage"),
	}
}

func (l *Loader) base() string {
	if l.Base == "" {
		return DefaultBase
	}
	return l.Base
}

func (l *Loader) ext() string {
	if l.Ext == "" {
		return DefaultExt
	}
	return l.Ext
}

func (l *Loader) logger() *zap.Logger {
	if l.log == nil {
		l.log = logger.Named("stage")
	}
	return l.log
}

// Load fetches and decodes every archive the stage needs. The stage archive
// and the manifest are fetched concurrently; a missing stage archive or
// manifest fails the load, a missing object archive does not.
func (l *Loader) Load(ctx context.Context, d Desc) (*Assets, error) {
	if d.Alternate {
		return l.loadAlternate(ctx, d)
	}

	base, ext := l.base(), l.ext()
	stagePath := d.StagePath(base, ext)

	var (
		stageArc *rres.Archive
		manifest []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := l.fetchArchive(gctx, stagePath)
		stageArc = a
		return err
	})
	g.Go(func() error {
		p := d.ManifestPath(base)
		data, err := l.Fetcher.Fetch(gctx, p)
		if err != nil {
			return fmt.Errorf("fetching manifest %s: %w", p, err)
		}
		manifest = data
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records, err := layout.Parse(encoding.DecodeManifest(manifest))
	if err != nil {
		return nil, fmt.Errorf("parsing manifest for %s: %w", d.ID, err)
	}

	objects, err := resolve.Resolve(ctx, records, l.Fetcher, resolve.Options{
		Base:          base,
		Ext:           ext,
		FallbackPath:  d.SceneryPath(base, ext),
		MaxConcurrent: l.MaxConcurrent,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving objects for %s: %w", d.ID, err)
	}

	l.logger().Debug("stage loaded",
		zap.String("stage", d.ID),
		zap.Int("records", len(records)))

	return &Assets{
		Desc:    d,
		Stage:   []scene.Archive{{Key: stagePath, Archive: stageArc}},
		Records: records,
		Objects: objects,
	}, nil
}

func (l *Loader) loadAlternate(ctx context.Context, d Desc) (*Assets, error) {
	base, ext := l.base(), l.ext()
	stagePath := d.StagePath(base, ext)
	sceneryPath := d.SceneryPath(base, ext)

	var stageArc, scenery *rres.Archive
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := l.fetchArchive(gctx, stagePath)
		stageArc = a
		return err
	})
	g.Go(func() error {
		a, err := l.fetchArchive(gctx, sceneryPath)
		scenery = a
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Assets{
		Desc:  d,
		Stage: []scene.Archive{{Key: stagePath, Archive: stageArc}},
		Objects: []resolve.Placement{{
			Archive:     scenery,
			Source:      sceneryPath,
			Translation: d.Translation,
		}},
	}, nil
}

func (l *Loader) fetchArchive(ctx context.Context, path string) (*rres.Archive, error) {
	data, err := l.Fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	a, err := rres.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return a, nil
}

// CreateScene loads the stage and assembles it on device.
func (l *Loader) CreateScene(ctx context.Context, device gfx.Device, cache *gfx.RenderCache, d Desc) (*scene.Scene, error) {
	assets, err := l.Load(ctx, d)
	if err != nil {
		return nil, err
	}
	return scene.Assemble(device, cache, d.ID, assets.Stage, assets.Objects)
}
