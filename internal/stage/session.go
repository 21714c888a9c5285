package stage

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/scene"
)

// Session owns the scene currently on display and rebuilds it on demand.
type Session struct {
	loader *Loader
	device gfx.Device
	cache  *gfx.RenderCache
	panel  scene.LayerPanel

	desc    Desc
	scene   *scene.Scene
	sources map[string]bool
	log     *zap.Logger
}

// NewSession returns a session with no scene. panel may be nil.
func NewSession(l *Loader, device gfx.Device, cache *gfx.RenderCache, panel scene.LayerPanel) *Session {
	return &Session{
		loader: l,
		device: device,
		cache:  cache,
		panel:  panel,
		log:    l.logger(),
	}
}

// Open builds the scene for d. The previous scene stays on display until
// the new one is assembled and is destroyed only then; if building fails the
// previous scene is kept.
func (s *Session) Open(ctx context.Context, d Desc) error {
	assets, err := s.loader.Load(ctx, d)
	if err != nil {
		return err
	}
	sc, err := scene.Assemble(s.device, s.cache, d.ID, assets.Stage, assets.Objects)
	if err != nil {
		return err
	}

	if s.scene != nil {
		s.scene.Destroy()
	}
	s.desc = d
	s.scene = sc
	s.sources = sourcesOf(s.loader, assets)
	if s.panel != nil && !sc.BindLayerPanel(s.panel) {
		s.panel.SetLayers(nil)
	}

	s.log.Info("stage opened",
		zap.String("stage", d.ID),
		zap.String("name", d.Name),
		zap.Int("instances", len(sc.Instances())))
	return nil
}

// Reload rebuilds the current stage.
func (s *Session) Reload(ctx context.Context) error {
	if s.scene == nil {
		return nil
	}
	return s.Open(ctx, s.desc)
}

// Scene returns the scene on display, or nil.
func (s *Session) Scene() *scene.Scene {
	return s.scene
}

// Desc returns the stage on display.
func (s *Session) Desc() Desc {
	return s.desc
}

// Affects reports whether a change to path would alter the current scene.
// Record paths that fell back count too, since the file may have appeared.
func (s *Session) Affects(path string) bool {
	return s.sources[strings.TrimPrefix(path, "/")]
}

// ToggleLayer flips layer i of the current scene.
func (s *Session) ToggleLayer(i int) bool {
	if s.scene == nil {
		return false
	}
	return s.scene.ToggleLayer(i)
}

// Close destroys the current scene.
func (s *Session) Close() {
	if s.scene != nil {
		s.scene.Destroy()
		s.scene = nil
	}
	s.sources = nil
}

func sourcesOf(l *Loader, a *Assets) map[string]bool {
	base, ext := l.base(), l.ext()
	out := map[string]bool{
		a.Desc.StagePath(base, ext):   true,
		a.Desc.SceneryPath(base, ext): true,
	}
	if !a.Desc.Alternate {
		out[a.Desc.ManifestPath(base)] = true
	}
	for _, r := range a.Records {
		out[r.FetchPath(base, ext)] = true
	}
	for _, p := range a.Objects {
		out[p.Source] = true
	}
	return out
}
