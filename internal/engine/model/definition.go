package model

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/lighting"
	"github.com/Faultbox/stagegraph/internal/engine/texture"
	"github.com/Faultbox/stagegraph/pkg/rres"
)

type material struct {
	name    string
	color   mgl32.Vec4
	lit     bool
	texture gfx.Texture
}

// Definition is the device side of one archive model. Textures belong to
// the texture holder and programs to the render cache; the definition owns
// only its buffers.
type Definition struct {
	Name string

	model     *rres.Model
	vertices  gfx.Buffer
	indices   gfx.Buffer
	program   gfx.Program
	materials []material
	hacks     lighting.MaterialHacks
	bounds    Bounds
	destroyed bool
}

// NewDefinition uploads m and resolves its material textures from the
// textures archive registered in holder.
func NewDefinition(device gfx.Device, cache *gfx.RenderCache, holder *texture.Holder, archive string, m *rres.Model, hacks lighting.MaterialHacks) (*Definition, error) {
	mesh, err := BuildMesh(m)
	if err != nil {
		return nil, err
	}

	d := &Definition{Name: m.Name, model: m, hacks: hacks, bounds: mesh.Bounds}
	for _, mat := range m.Materials {
		tex, ok := holder.Lookup(archive, mat.Texture)
		if !ok {
			if tex, err = holder.Fallback(); err != nil {
				return nil, err
			}
		}
		d.materials = append(d.materials, material{
			name:    mat.Name,
			color:   mgl32.Vec4(mat.Color),
			lit:     mat.Lit,
			texture: tex,
		})
	}

	if d.program, err = cache.CreateProgram(ProgramFor(hacks)); err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}
	if d.vertices, err = createBuffer(device, gfx.BufferVertex, mesh.Vertices); err != nil {
		return nil, fmt.Errorf("model %q vertices: %w", m.Name, err)
	}
	if d.indices, err = createBuffer(device, gfx.BufferIndex, mesh.Indices); err != nil {
		device.DestroyBuffer(d.vertices)
		return nil, fmt.Errorf("model %q indices: %w", m.Name, err)
	}
	return d, nil
}

func createBuffer(device gfx.Device, usage gfx.BufferUsage, data []byte) (gfx.Buffer, error) {
	b, err := device.CreateBuffer(usage, len(data))
	if err != nil {
		return gfx.Buffer{}, err
	}
	if err := device.UploadBuffer(b, 0, data); err != nil {
		device.DestroyBuffer(b)
		return gfx.Buffer{}, err
	}
	return b, nil
}

// Hacks returns the material hacks the definition was built with.
func (d *Definition) Hacks() lighting.MaterialHacks {
	return d.hacks
}

// Bounds returns the model-space bounds.
func (d *Definition) Bounds() Bounds {
	return d.bounds
}

// Model returns the archive model.
func (d *Definition) Model() *rres.Model {
	return d.model
}

// Destroy releases the buffers. Later calls do nothing.
func (d *Definition) Destroy(device gfx.Device) {
	if d.destroyed {
		return
	}
	d.destroyed = true
	device.DestroyBuffer(d.vertices)
	device.DestroyBuffer(d.indices)
}
