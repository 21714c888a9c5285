// Package renderinst records draw instructions for a frame. A RenderInst
// carries everything a single draw needs; templates let a caller set shared
// state, such as the scene uniform block, once for every instance created
// while the template is pushed.
package renderinst

import (
	"encoding/binary"
	"errors"
	"math"
	"slices"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
)

// UniformAlignment is the alignment, in floats, of every uniform
// allocation. 64 floats is the 256 byte offset alignment most drivers ask
// for.
const UniformAlignment = 64

// ErrTemplateUnderflow is returned by PopTemplate on an empty stack.
var ErrTemplateUnderflow = errors.New("renderinst: template stack underflow")

type uniformBinding struct {
	binding int
	offset  int // floats
	size    int // floats
}

// RenderInst is one draw call.
type RenderInst struct {
	program    gfx.Program
	hasProgram bool
	vertices   gfx.Buffer
	indices    gfx.Buffer
	uniforms   []uniformBinding
	textures   []gfx.Texture
	drawCount  int
	drawStart  int
	sortKey    uint32
}

func (ri *RenderInst) copyFrom(o *RenderInst) {
	*ri = *o
	ri.uniforms = slices.Clone(o.uniforms)
	ri.textures = slices.Clone(o.textures)
}

// SetProgram sets the shader program.
func (ri *RenderInst) SetProgram(p gfx.Program) {
	ri.program = p
	ri.hasProgram = true
}

// SetVertexInput sets the vertex and index buffers. A zero index buffer
// makes the draw non-indexed.
func (ri *RenderInst) SetVertexInput(vertices, indices gfx.Buffer) {
	ri.vertices = vertices
	ri.indices = indices
}

// SetTextures sets the sampled textures, unit 0 first.
func (ri *RenderInst) SetTextures(textures ...gfx.Texture) {
	ri.textures = append(ri.textures[:0], textures...)
}

// SetDrawCount sets the number of indices (or vertices) and the first one.
func (ri *RenderInst) SetDrawCount(count, start int) {
	ri.drawCount = count
	ri.drawStart = start
}

// SetSortKey orders the instance within a frame. Lower keys draw first;
// equal keys keep submission order.
func (ri *RenderInst) SetSortKey(key uint32) {
	ri.sortKey = key
}

func (ri *RenderInst) bindUniform(b uniformBinding) {
	for i := range ri.uniforms {
		if ri.uniforms[i].binding == b.binding {
			ri.uniforms[i] = b
			return
		}
	}
	ri.uniforms = append(ri.uniforms, b)
}

// Manager owns the instances and uniform data of one frame.
type Manager struct {
	templates []*RenderInst
	insts     []*RenderInst
	uniforms  []float32

	buffer  gfx.Buffer
	scratch []byte
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// PushTemplate pushes a template that starts as a copy of the current one.
// Instances created while it is on top inherit its state.
func (m *Manager) PushTemplate() *RenderInst {
	t := &RenderInst{}
	if n := len(m.templates); n > 0 {
		t.copyFrom(m.templates[n-1])
	}
	m.templates = append(m.templates, t)
	return t
}

// PopTemplate removes the top template.
func (m *Manager) PopTemplate() error {
	if len(m.templates) == 0 {
		return ErrTemplateUnderflow
	}
	m.templates = m.templates[:len(m.templates)-1]
	return nil
}

// NewRenderInst returns an instance initialized from the current template.
// It is not drawn until submitted.
func (m *Manager) NewRenderInst() *RenderInst {
	ri := &RenderInst{}
	if n := len(m.templates); n > 0 {
		ri.copyFrom(m.templates[n-1])
	}
	return ri
}

// Submit queues ri for drawing.
func (m *Manager) Submit(ri *RenderInst) {
	m.insts = append(m.insts, ri)
}

// NumSubmitted returns the number of queued instances.
func (m *Manager) NumSubmitted() int {
	return len(m.insts)
}

// AllocateUniformBuffer reserves floats for ri's uniform block at binding
// and returns them for writing. The slice is only valid until the next
// allocation.
func (m *Manager) AllocateUniformBuffer(ri *RenderInst, binding, floats int) []float32 {
	start := len(m.uniforms)
	offset := start
	if rem := offset % UniformAlignment; rem != 0 {
		offset += UniformAlignment - rem
	}
	end := offset + floats
	m.uniforms = slices.Grow(m.uniforms, end-len(m.uniforms))[:end]
	clear(m.uniforms[start:end])
	ri.bindUniform(uniformBinding{binding: binding, offset: offset, size: floats})
	return m.uniforms[offset:end]
}

// UniformFloats returns the number of floats allocated this frame,
// including alignment padding.
func (m *Manager) UniformFloats() int {
	return len(m.uniforms)
}

// UniformData returns the frame's uniform floats.
func (m *Manager) UniformData() []float32 {
	return m.uniforms
}

// Upload writes the frame's uniform data to the device, growing the
// uniform buffer when needed.
func (m *Manager) Upload(device gfx.Device) error {
	if len(m.uniforms) == 0 {
		return nil
	}
	size := len(m.uniforms) * 4
	if m.buffer.ID == 0 || m.buffer.Size < size {
		capacity := max(size, m.buffer.Size*2, UniformAlignment*4)
		b, err := device.CreateBuffer(gfx.BufferUniform, capacity)
		if err != nil {
			return err
		}
		if m.buffer.ID != 0 {
			device.DestroyBuffer(m.buffer)
		}
		m.buffer = b
	}

	m.scratch = slices.Grow(m.scratch[:0], size)[:size]
	for i, f := range m.uniforms {
		binary.LittleEndian.PutUint32(m.scratch[i*4:], math.Float32bits(f))
	}
	return device.UploadBuffer(m.buffer, 0, m.scratch)
}

// DrawOnPassRenderer issues every submitted instance, ordered by sort key.
func (m *Manager) DrawOnPassRenderer(r gfx.PassRenderer) {
	slices.SortStableFunc(m.insts, func(a, b *RenderInst) int {
		switch {
		case a.sortKey < b.sortKey:
			return -1
		case a.sortKey > b.sortKey:
			return 1
		}
		return 0
	})

	for _, ri := range m.insts {
		if ri.hasProgram {
			r.SetProgram(ri.program)
		}
		r.SetVertexInput(ri.vertices, ri.indices)
		for _, u := range ri.uniforms {
			r.SetUniformBuffer(u.binding, m.buffer, u.offset*4, u.size*4)
		}
		if len(ri.textures) > 0 {
			r.SetTextures(ri.textures)
		}
		if ri.indices.ID != 0 {
			r.DrawIndexed(ri.drawCount, ri.drawStart)
		} else {
			r.Draw(ri.drawCount, ri.drawStart)
		}
	}
}

// Reset drops the frame's instances, templates and uniform data. The
// device buffer is kept for the next frame.
func (m *Manager) Reset() {
	clear(m.insts)
	m.insts = m.insts[:0]
	m.templates = m.templates[:0]
	m.uniforms = m.uniforms[:0]
}

// Destroy releases the uniform buffer.
func (m *Manager) Destroy(device gfx.Device) {
	if m.buffer.ID != 0 {
		device.DestroyBuffer(m.buffer)
		m.buffer = gfx.Buffer{}
	}
	m.Reset()
}
