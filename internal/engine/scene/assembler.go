package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/lighting"
	"github.com/Faultbox/stagegraph/internal/engine/model"
	"github.com/Faultbox/stagegraph/internal/logger"
	"github.com/Faultbox/stagegraph/internal/resolve"
	"github.com/Faultbox/stagegraph/pkg/rres"
)

// Archive is a decoded archive and the key its textures are held under,
// usually the path it was fetched from.
type Archive struct {
	Key     string
	Archive *rres.Archive
}

// archiveState is what assembly built for one archive key. Placements that
// share an archive, such as several fallbacks, share its definitions and
// light setting.
type archiveState struct {
	light *lighting.LightSetting
	defs  map[*rres.Model]*model.Definition
}

type assembler struct {
	scene    *Scene
	cache    *gfx.RenderCache
	archives map[string]*archiveState
	log      *zap.Logger
}

// Assemble builds a scene from the stage archives, which keep an identity
// transform, and the resolved object placements. Stage archives are
// assembled first. On error every resource allocated so far is released and
// no scene is returned.
func Assemble(device gfx.Device, cache *gfx.RenderCache, name string, stage []Archive, objects []resolve.Placement) (*Scene, error) {
	a := &assembler{
		scene:    newScene(device, name),
		cache:    cache,
		archives: make(map[string]*archiveState),
		log:      logger.Named("scene"),
	}

	for _, sa := range stage {
		if err := a.addArchive(sa.Key, sa.Archive, nil); err != nil {
			a.scene.Destroy()
			return nil, err
		}
	}
	for i := range objects {
		p := &objects[i]
		if err := a.addArchive(p.Source, p.Archive, p); err != nil {
			a.scene.Destroy()
			return nil, err
		}
	}

	s := a.scene
	s.state = StateAssembled
	a.log.Info("scene assembled",
		zap.String("scene", name),
		zap.Stringer("id", s.ID),
		zap.Int("archives", len(a.archives)),
		zap.Int("definitions", Count(&s.registry, Definitions)),
		zap.Int("instances", Count(&s.registry, Instances)),
		zap.Int("lightSettings", Count(&s.registry, LightSettings)),
		zap.Int("textures", s.textures.Len()))
	return s, nil
}

func (a *assembler) state(key string, arc *rres.Archive) (*archiveState, error) {
	if st, ok := a.archives[key]; ok {
		return st, nil
	}
	s := a.scene
	if err := s.textures.AddArchiveTextures(key, arc.Textures); err != nil {
		return nil, fmt.Errorf("archive %q: %w", key, err)
	}
	st := &archiveState{defs: make(map[*rres.Model]*model.Definition)}
	if len(arc.SceneAnims) > 0 {
		if len(arc.SceneAnims) > 1 {
			a.log.Debug("ignoring extra scene animations",
				zap.String("archive", key), zap.Int("count", len(arc.SceneAnims)))
		}
		st.light = &lighting.LightSetting{}
		sa := lighting.NewSceneAnimator(s.clock, arc.SceneAnims[0])
		sa.CalcLightSetting(st.light)
		Register(&s.registry, LightSettings, st.light)
		Register(&s.registry, animators, &animator{SceneAnimator: sa, setting: st.light})
	}
	a.archives[key] = st
	return st, nil
}

func (a *assembler) addArchive(key string, arc *rres.Archive, p *resolve.Placement) error {
	if arc == nil {
		return fmt.Errorf("archive %q: not loaded", key)
	}
	st, err := a.state(key, arc)
	if err != nil {
		return err
	}

	s := a.scene
	g := &Group{Archive: key, Stage: p == nil, Light: st.light}
	hacks := lighting.MaterialHacks{LightingFudge: st.light == nil}
	for _, m := range arc.Models {
		if !model.HasGeometry(m) {
			a.log.Warn("skipping model without geometry",
				zap.String("archive", key), zap.String("model", m.Name))
			continue
		}
		def, ok := st.defs[m]
		if !ok {
			if def, err = model.NewDefinition(s.device, a.cache, s.textures, key, m, hacks); err != nil {
				return fmt.Errorf("archive %q: %w", key, err)
			}
			st.defs[m] = def
			Register(&s.registry, Definitions, def)
		}

		inst := model.NewInstance(def, s.clock)
		if p != nil {
			if err := inst.ApplyPlacement(p.Translation, p.Rotation); err != nil {
				return err
			}
		}
		inst.BindAnimations(arc)
		if st.light != nil {
			inst.BindLightSetting(st.light)
		}
		Register(&s.registry, Instances, inst)
		g.Instances = append(g.Instances, inst)
	}
	s.groups = append(s.groups, g)
	return nil
}
