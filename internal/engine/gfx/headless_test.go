package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgram = ProgramDesc{Name: "test", Vertex: "v", Fragment: "f"}

func TestHeadless_ResourceLifetime(t *testing.T) {
	d := NewHeadlessDevice()

	b, err := d.CreateBuffer(BufferVertex, 64)
	require.NoError(t, err)
	require.NoError(t, d.UploadBuffer(b, 0, make([]byte, 64)))
	assert.ErrorIs(t, d.UploadBuffer(b, 32, make([]byte, 64)), ErrDevice)

	tex, err := d.CreateTexture(TextureDesc{Width: 2, Height: 2})
	require.NoError(t, err)
	require.NoError(t, d.UploadTexture(tex, make([]byte, 16)))

	rt, err := d.CreateRenderTarget(RenderTargetDesc{Width: 4, Height: 4})
	require.NoError(t, err)

	p, err := d.CreateProgram(testProgram)
	require.NoError(t, err)

	s := d.Stats()
	assert.Equal(t, 1, s.Buffers)
	assert.Equal(t, 1, s.Textures)
	assert.Equal(t, 1, s.RenderTargets)
	assert.Equal(t, 1, s.Programs)
	assert.Equal(t, 64+16+64, s.Bytes)

	d.DestroyBuffer(b)
	d.DestroyTexture(tex)
	d.DestroyRenderTarget(rt)
	d.DestroyProgram(p)
	assert.Equal(t, Stats{Uploads: 2}, d.Stats())

	d.DestroyBuffer(b)
	assert.Equal(t, 1, d.Stats().InvalidDestroys)
	assert.ErrorIs(t, d.UploadBuffer(b, 0, nil), ErrUnknownResource)
}

func TestHeadless_Errors(t *testing.T) {
	d := NewHeadlessDevice()

	_, err := d.CreateRenderTarget(RenderTargetDesc{Width: 0, Height: 10})
	assert.ErrorIs(t, err, ErrInvalidTargetSize)
	_, err = d.CreateTexture(TextureDesc{Width: MaxTextureSize + 1, Height: 1})
	assert.ErrorIs(t, err, ErrInvalidTargetSize)

	d.MemoryLimit = 100
	_, err = d.CreateBuffer(BufferUniform, 101)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.ErrorIs(t, err, ErrDevice)

	_, err = d.CreateProgram(ProgramDesc{Name: "empty"})
	assert.ErrorIs(t, err, ErrDevice)
}

func TestHeadless_PassClearAndDraw(t *testing.T) {
	d := NewHeadlessDevice()
	color, err := d.CreateRenderTarget(RenderTargetDesc{Width: 8, Height: 8})
	require.NoError(t, err)
	depth, err := d.CreateRenderTarget(RenderTargetDesc{Width: 8, Height: 8, Format: FormatD24S8})
	require.NoError(t, err)
	prog, err := d.CreateProgram(testProgram)
	require.NoError(t, err)
	vb, err := d.CreateBuffer(BufferVertex, 32)
	require.NoError(t, err)
	out, err := d.CreateTexture(TextureDesc{Width: 8, Height: 8})
	require.NoError(t, err)

	clearColor := [4]float32{0.25, 0.5, 0.75, 1}
	pass, err := d.BeginRenderPass(RenderPassDesc{
		DebugName:    "Main",
		Color:        &Attachment{Target: color, Load: LoadOpClear, ClearColor: clearColor},
		DepthStencil: &Attachment{Target: depth, Load: LoadOpClear, ClearDepth: 1},
	})
	require.NoError(t, err)

	_, err = d.BeginRenderPass(RenderPassDesc{DebugName: "nested"})
	assert.ErrorIs(t, err, ErrInvalidPass)

	pass.SetProgram(prog)
	pass.SetVertexInput(vb, Buffer{})
	pass.DrawIndexed(3, 0)
	require.NoError(t, d.EndRenderPass(pass))

	require.NoError(t, d.CopyRenderTargetToTexture(out, color))
	c, ok := d.Contents(out.ID)
	require.True(t, ok)
	assert.True(t, c.Valid)
	assert.Equal(t, clearColor, c.Color)
	assert.Equal(t, 1, c.Draws)

	require.Len(t, d.Passes(), 1)
	assert.Equal(t, "Main", d.Passes()[0].Name)
	assert.Equal(t, []string{"test"}, d.Passes()[0].Programs)
	assert.Equal(t, []CopyRecord{{Dst: out.ID, Src: color.ID}}, d.Copies())
}

func TestHeadless_DrawWithoutProgramFailsPass(t *testing.T) {
	d := NewHeadlessDevice()
	color, err := d.CreateRenderTarget(RenderTargetDesc{Width: 1, Height: 1})
	require.NoError(t, err)

	pass, err := d.BeginRenderPass(RenderPassDesc{DebugName: "Bad", Color: &Attachment{Target: color}})
	require.NoError(t, err)
	pass.DrawIndexed(3, 0)
	assert.ErrorIs(t, d.EndRenderPass(pass), ErrInvalidPass)
}

func TestHeadless_MismatchedAttachments(t *testing.T) {
	d := NewHeadlessDevice()
	a, _ := d.CreateRenderTarget(RenderTargetDesc{Width: 4, Height: 4})
	b, _ := d.CreateRenderTarget(RenderTargetDesc{Width: 2, Height: 2, Format: FormatD24S8})

	_, err := d.BeginRenderPass(RenderPassDesc{Color: &Attachment{Target: a}, DepthStencil: &Attachment{Target: b}})
	assert.ErrorIs(t, err, ErrInvalidPass)
}

func TestRenderCache(t *testing.T) {
	d := NewHeadlessDevice()
	c := NewRenderCache(d)

	p1, err := c.CreateProgram(testProgram)
	require.NoError(t, err)
	p2, err := c.CreateProgram(testProgram)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, 1, c.NumPrograms())
	assert.Equal(t, 1, d.Stats().Programs)

	c.Destroy()
	assert.Equal(t, 0, d.Stats().Programs)
	assert.Equal(t, 0, d.Stats().InvalidDestroys)
}
