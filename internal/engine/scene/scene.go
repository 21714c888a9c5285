// Package scene assembles decoded archives into a renderable scene and owns
// everything the scene allocated on the device.
package scene

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Faultbox/stagegraph/internal/engine/animation"
	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/lighting"
	"github.com/Faultbox/stagegraph/internal/engine/model"
	"github.com/Faultbox/stagegraph/internal/engine/renderinst"
	"github.com/Faultbox/stagegraph/internal/engine/texture"
)

// ErrDestroyed is returned when a destroyed scene is rendered.
var ErrDestroyed = errors.New("scene: destroyed")

// State is the lifecycle state of a scene.
type State int

const (
	StateLoading State = iota
	StateAssembled
	StateRendering
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "Loading"
	case StateAssembled:
		return "Assembled"
	case StateRendering:
		return "Rendering"
	case StateDestroyed:
		return "Destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Registry tags of a scene.
var (
	Instances     = NewTag[*model.Instance]("instances")
	Definitions   = NewTag[*model.Definition]("definitions")
	LightSettings = NewTag[*lighting.LightSetting]("light-settings")
	animators     = NewTag[*animator]("animators")
)

// animator pairs a scene animator with the setting it writes.
type animator struct {
	*lighting.SceneAnimator
	setting *lighting.LightSetting
}

// Group is the set of instances built from one archive.
type Group struct {
	Archive   string
	Stage     bool
	Instances []*model.Instance
	Light     *lighting.LightSetting
}

// Scene is one assembled stage.
type Scene struct {
	ID   uuid.UUID
	Name string

	state    State
	device   gfx.Device
	clock    *animation.Clock
	textures *texture.Holder
	registry Registry
	groups   []*Group
	panel    LayerPanel
}

func newScene(device gfx.Device, name string) *Scene {
	return &Scene{
		ID:       uuid.New(),
		Name:     name,
		state:    StateLoading,
		device:   device,
		clock:    &animation.Clock{},
		textures: texture.NewHolder(device),
	}
}

// State returns the lifecycle state.
func (s *Scene) State() State {
	return s.state
}

// Clock returns the clock every animation of the scene reads.
func (s *Scene) Clock() *animation.Clock {
	return s.clock
}

// Textures returns the scene's texture holder.
func (s *Scene) Textures() *texture.Holder {
	return s.textures
}

// Instances returns every model instance in assembly order.
func (s *Scene) Instances() []*model.Instance {
	return All(&s.registry, Instances)
}

// Definitions returns every model definition in assembly order.
func (s *Scene) Definitions() []*model.Definition {
	return All(&s.registry, Definitions)
}

// LightSettings returns one setting per archive with scene animation.
func (s *Scene) LightSettings() []*lighting.LightSetting {
	return All(&s.registry, LightSettings)
}

// Groups returns the per-archive instance groups.
func (s *Scene) Groups() []*Group {
	return s.groups
}

// Bounds returns the world bounds of every instance.
func (s *Scene) Bounds() model.Bounds {
	var b model.Bounds
	for _, inst := range s.Instances() {
		b = b.Union(inst.WorldBounds())
	}
	return b
}

// CalcLightSettings recomputes every light setting from the clock.
func (s *Scene) CalcLightSettings() {
	for _, a := range All(&s.registry, animators) {
		a.CalcLightSetting(a.setting)
	}
}

// PrepareToRender submits the draws of every instance.
func (s *Scene) PrepareToRender(m *renderinst.Manager) error {
	switch s.state {
	case StateDestroyed:
		return ErrDestroyed
	case StateLoading:
		return fmt.Errorf("scene %s: render before assembly", s.Name)
	}
	s.state = StateRendering
	for _, inst := range s.Instances() {
		inst.PrepareToRender(m)
	}
	return nil
}

// Destroy releases the texture holder and every definition. Later calls
// do nothing.
func (s *Scene) Destroy() {
	if s.state == StateDestroyed {
		return
	}
	s.state = StateDestroyed
	for _, def := range s.Definitions() {
		def.Destroy(s.device)
	}
	s.textures.Destroy()
	s.registry.Reset()
	s.groups = nil
	s.panel = nil
}
