package model

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stagegraph/internal/engine/animation"
	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/lighting"
	"github.com/Faultbox/stagegraph/internal/engine/renderinst"
	"github.com/Faultbox/stagegraph/pkg/rres"
)

// ErrAlreadyPlaced is returned when a placement is applied twice.
var ErrAlreadyPlaced = errors.New("model: instance transform already set")

// Sort keys: opaque batches draw before translucent ones.
const (
	SortOpaque      uint32 = 0
	SortTranslucent uint32 = 1
)

var defaultLight = lighting.DefaultLightSetting()

// Instance is a placed, animated view of a Definition.
type Instance struct {
	def   *Definition
	clock *animation.Clock

	modelMatrix mgl32.Mat4
	placed      bool
	visible     bool

	light      *lighting.LightSetting
	transform  *transformBinding
	colors     map[int]*colorBinding
	visibility map[int]*visBinding
}

// NewInstance returns a visible instance of def at the origin.
func NewInstance(def *Definition, clock *animation.Clock) *Instance {
	return &Instance{
		def:         def,
		clock:       clock,
		modelMatrix: mgl32.Ident4(),
		visible:     true,
	}
}

// Name returns the model name.
func (i *Instance) Name() string {
	return i.def.Name
}

// Definition returns the shared definition.
func (i *Instance) Definition() *Definition {
	return i.def
}

// ApplyPlacement sets the model matrix from a placement. It may only be
// called once.
func (i *Instance) ApplyPlacement(translation, rotation mgl32.Vec3) error {
	if i.placed {
		return ErrAlreadyPlaced
	}
	i.modelMatrix = PlacementMatrix(translation, rotation)
	i.placed = true
	return nil
}

// ModelMatrix returns the placement transform.
func (i *Instance) ModelMatrix() mgl32.Mat4 {
	return i.modelMatrix
}

// WorldBounds returns the definition bounds under the placement transform.
func (i *Instance) WorldBounds() Bounds {
	return i.def.bounds.Transform(i.modelMatrix)
}

// SetVisible shows or hides the instance.
func (i *Instance) SetVisible(v bool) {
	i.visible = v
}

// Visible reports whether the instance is drawn.
func (i *Instance) Visible() bool {
	return i.visible
}

// BindLightSetting makes the instance shade with ls. The setting is owned
// by the scene and shared with the other instances of the same archive.
func (i *Instance) BindLightSetting(ls *lighting.LightSetting) {
	i.light = ls
}

// LightSetting returns the bound light setting, or nil.
func (i *Instance) LightSetting() *lighting.LightSetting {
	return i.light
}

// BindAnimations binds the CHR0, CLR0 and VIS0 tracks of a that target this
// instance's model or its materials. It returns the number of bound tracks.
func (i *Instance) BindAnimations(a *rres.Archive) int {
	n := 0
	for _, anim := range a.ModelAnims {
		if anim.Target == i.def.Name {
			i.transform = &transformBinding{anim: anim, control: frameControl(anim.AnimInfo)}
			n++
			break
		}
	}
	for idx, mat := range i.def.materials {
		for _, anim := range a.ColorAnims {
			if anim.Material == mat.name {
				if i.colors == nil {
					i.colors = make(map[int]*colorBinding)
				}
				i.colors[idx] = &colorBinding{anim: anim, control: frameControl(anim.AnimInfo)}
				n++
				break
			}
		}
		for _, anim := range a.VisAnims {
			if anim.Material == mat.name {
				if i.visibility == nil {
					i.visibility = make(map[int]*visBinding)
				}
				i.visibility[idx] = &visBinding{anim: anim, control: frameControl(anim.AnimInfo)}
				n++
				break
			}
		}
	}
	return n
}

// PrepareToRender submits one render instance per visible batch, with
// animation tracks sampled at the clock's current time.
func (i *Instance) PrepareToRender(m *renderinst.Manager) {
	if !i.visible {
		return
	}

	world := i.modelMatrix
	if i.transform != nil {
		world = world.Mul4(i.transform.matrix(i.clock))
	}
	ls := i.light
	if ls == nil {
		ls = defaultLight
	}
	fudge := i.def.hacks.LightingFudge && i.light == nil

	for _, batch := range i.def.model.Batches {
		idx := int(batch.Material)
		if vis := i.visibility[idx]; vis != nil && !vis.visible(i.clock) {
			continue
		}
		mat := i.def.materials[idx]
		color := mat.color
		if cb := i.colors[idx]; cb != nil {
			color = cb.color(i.clock, color)
		}
		if fudge {
			color = lighting.FudgeLighting(ls.Ambient, color)
		}

		ri := m.NewRenderInst()
		ri.SetProgram(i.def.program)
		ri.SetVertexInput(i.def.vertices, i.def.indices)
		ri.SetTextures(mat.texture)
		ri.SetDrawCount(int(batch.IndexCount), int(batch.IndexStart))
		if color[3] < 1 {
			ri.SetSortKey(SortTranslucent)
		}

		u := m.AllocateUniformBuffer(ri, gfx.BindingInstance, InstanceFloats)
		copy(u[InstanceModel:], world[:])
		copy(u[InstanceColor:], color[:])
		copy(u[InstanceAmbient:], ls.Ambient[:])
		if mat.lit && !fudge {
			u[InstanceParams] = float32(ls.NumEnabled())
			u[InstanceParams+1] = 1
		}
		if fudge {
			u[InstanceParams+2] = 1
		}
		ls.Fill(u[InstanceLights:])
		m.Submit(ri)
	}
}
