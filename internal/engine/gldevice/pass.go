package gldevice

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
)

// pass records straight into the GL context; draws execute immediately.
type pass struct {
	dev     *Device
	name    string
	err     error
	program bool
	vao     uint32
	indexed bool
}

func (p *pass) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *pass) SetProgram(prog gfx.Program) {
	id, ok := p.dev.programs[prog.ID]
	if !ok {
		p.fail(fmt.Errorf("%w: program %d", gfx.ErrUnknownResource, prog.ID))
		return
	}
	gl.UseProgram(id)
	p.program = true
}

func (p *pass) SetVertexInput(vertices, indices gfx.Buffer) {
	vao, err := p.dev.vertexArray(vertices, indices)
	if err != nil {
		p.fail(err)
		return
	}
	gl.BindVertexArray(vao)
	p.vao = vao
	p.indexed = indices.ID != 0
}

func (p *pass) SetUniformBuffer(binding int, b gfx.Buffer, offset, size int) {
	live, ok := p.dev.buffers[b.ID]
	if !ok {
		p.fail(fmt.Errorf("%w: uniform buffer %d", gfx.ErrUnknownResource, b.ID))
		return
	}
	if offset < 0 || offset+size > live.size {
		p.fail(fmt.Errorf("%w: uniform range [%d,+%d) outside buffer of %d bytes", gfx.ErrDevice, offset, size, live.size))
		return
	}
	gl.BindBufferRange(gl.UNIFORM_BUFFER, uint32(binding), live.gl, offset, size)
}

func (p *pass) SetTextures(textures []gfx.Texture) {
	for i, t := range textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		if t.ID == 0 {
			gl.BindTexture(gl.TEXTURE_2D, 0)
			continue
		}
		live, ok := p.dev.textures[t.ID]
		if !ok {
			p.fail(fmt.Errorf("%w: texture %d", gfx.ErrUnknownResource, t.ID))
			return
		}
		gl.BindTexture(gl.TEXTURE_2D, live.gl)
	}
	gl.ActiveTexture(gl.TEXTURE0)
}

func (p *pass) DrawIndexed(indexCount, firstIndex int) {
	if !p.program || p.vao == 0 || !p.indexed {
		p.fail(fmt.Errorf("%w: indexed draw in %q without program or vertex input", gfx.ErrInvalidPass, p.name))
		return
	}
	gl.DrawElementsWithOffset(gl.TRIANGLES, int32(indexCount), gl.UNSIGNED_SHORT, uintptr(firstIndex*2))
}

func (p *pass) Draw(vertexCount, firstVertex int) {
	if !p.program {
		p.fail(fmt.Errorf("%w: draw in %q without program", gfx.ErrInvalidPass, p.name))
		return
	}
	if p.vao == 0 {
		gl.BindVertexArray(p.dev.emptyVAO)
	}
	gl.DrawArrays(gl.TRIANGLES, int32(firstVertex), int32(vertexCount))
}
