// Package gldevice implements gfx.Device on OpenGL 4.1 core. Every method
// must be called on the thread that owns the GL context.
package gldevice

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/model"
	"github.com/Faultbox/stagegraph/internal/logger"
)

// Device is an OpenGL gfx.Device.
type Device struct {
	nextID   uint32
	buffers  map[uint32]*buffer
	textures map[uint32]*texture
	targets  map[uint32]*target
	programs map[uint32]uint32
	vaos     map[[2]uint32]uint32

	passFBO  uint32
	readFBO  uint32
	drawFBO  uint32
	emptyVAO uint32
	inPass   *pass

	log *zap.Logger
}

type buffer struct {
	gl    uint32
	usage gfx.BufferUsage
	size  int
}

type texture struct {
	gl   uint32
	desc gfx.TextureDesc
}

// New initializes the GL function pointers of the current context and
// returns a device drawing into it.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}

	d := &Device{
		buffers:  make(map[uint32]*buffer),
		textures: make(map[uint32]*texture),
		targets:  make(map[uint32]*target),
		programs: make(map[uint32]uint32),
		vaos:     make(map[[2]uint32]uint32),
		log:      logger.Named("gldevice"),
	}
	gl.GenFramebuffers(1, &d.passFBO)
	gl.GenFramebuffers(1, &d.readFBO)
	gl.GenFramebuffers(1, &d.drawFBO)
	gl.GenVertexArrays(1, &d.emptyVAO)

	d.log.Info("OpenGL device ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))
	return d, nil
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func bufferTarget(u gfx.BufferUsage) uint32 {
	switch u {
	case gfx.BufferIndex:
		return gl.ELEMENT_ARRAY_BUFFER
	case gfx.BufferUniform:
		return gl.UNIFORM_BUFFER
	}
	return gl.ARRAY_BUFFER
}

// CreateBuffer implements gfx.Device.
func (d *Device) CreateBuffer(usage gfx.BufferUsage, size int) (gfx.Buffer, error) {
	if size <= 0 {
		return gfx.Buffer{}, fmt.Errorf("%w: buffer size %d", gfx.ErrDevice, size)
	}
	b := &buffer{usage: usage, size: size}
	gl.GenBuffers(1, &b.gl)
	// Index buffers are allocated through ARRAY_BUFFER so no VAO captures
	// the binding.
	gl.BindBuffer(gl.ARRAY_BUFFER, b.gl)
	gl.BufferData(gl.ARRAY_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	if e := gl.GetError(); e == gl.OUT_OF_MEMORY {
		gl.DeleteBuffers(1, &b.gl)
		return gfx.Buffer{}, fmt.Errorf("%w: buffer of %d bytes", gfx.ErrOutOfMemory, size)
	}

	id := d.id()
	d.buffers[id] = b
	return gfx.Buffer{ID: id, Usage: usage, Size: size}, nil
}

// UploadBuffer implements gfx.Device.
func (d *Device) UploadBuffer(b gfx.Buffer, offset int, data []byte) error {
	live, ok := d.buffers[b.ID]
	if !ok {
		return fmt.Errorf("%w: buffer %d", gfx.ErrUnknownResource, b.ID)
	}
	if offset < 0 || offset+len(data) > live.size {
		return fmt.Errorf("%w: upload [%d,+%d) outside buffer of %d bytes", gfx.ErrDevice, offset, len(data), live.size)
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, live.gl)
	gl.BufferSubData(gl.ARRAY_BUFFER, offset, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

// DestroyBuffer implements gfx.Device.
func (d *Device) DestroyBuffer(b gfx.Buffer) {
	live, ok := d.buffers[b.ID]
	if !ok {
		return
	}
	for key, vao := range d.vaos {
		if key[0] == b.ID || key[1] == b.ID {
			gl.DeleteVertexArrays(1, &vao)
			delete(d.vaos, key)
		}
	}
	gl.DeleteBuffers(1, &live.gl)
	delete(d.buffers, b.ID)
}

func validSize(w, h int) bool {
	return w > 0 && h > 0 && w <= gfx.MaxTextureSize && h <= gfx.MaxTextureSize
}

// CreateTexture implements gfx.Device.
func (d *Device) CreateTexture(desc gfx.TextureDesc) (gfx.Texture, error) {
	if !validSize(desc.Width, desc.Height) {
		return gfx.Texture{}, fmt.Errorf("%w: texture %dx%d", gfx.ErrInvalidTargetSize, desc.Width, desc.Height)
	}
	t := &texture{desc: desc, gl: newTexture(desc.Format, int32(desc.Width), int32(desc.Height), nil)}
	id := d.id()
	d.textures[id] = t
	return gfx.Texture{ID: id, Desc: desc}, nil
}

// UploadTexture implements gfx.Device.
func (d *Device) UploadTexture(t gfx.Texture, pixels []byte) error {
	live, ok := d.textures[t.ID]
	if !ok {
		return fmt.Errorf("%w: texture %d", gfx.ErrUnknownResource, t.ID)
	}
	want := live.desc.Width * live.desc.Height * live.desc.Format.BytesPerPixel()
	if len(pixels) != want {
		return fmt.Errorf("%w: texture upload of %d bytes, want %d", gfx.ErrDevice, len(pixels), want)
	}
	_, format, xtype := textureFormat(live.desc.Format)
	gl.BindTexture(gl.TEXTURE_2D, live.gl)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(live.desc.Width), int32(live.desc.Height), format, xtype, gl.Ptr(pixels))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// DestroyTexture implements gfx.Device.
func (d *Device) DestroyTexture(t gfx.Texture) {
	live, ok := d.textures[t.ID]
	if !ok {
		return
	}
	gl.DeleteTextures(1, &live.gl)
	delete(d.textures, t.ID)
}

// CreateRenderTarget implements gfx.Device. Multisampled targets are not
// supported; SampleCount is treated as 1.
func (d *Device) CreateRenderTarget(desc gfx.RenderTargetDesc) (gfx.RenderTarget, error) {
	if !validSize(desc.Width, desc.Height) {
		return gfx.RenderTarget{}, fmt.Errorf("%w: render target %dx%d", gfx.ErrInvalidTargetSize, desc.Width, desc.Height)
	}
	desc.SampleCount = 1
	id := d.id()
	d.targets[id] = newTarget(desc)
	return gfx.RenderTarget{ID: id, Desc: desc}, nil
}

// DestroyRenderTarget implements gfx.Device.
func (d *Device) DestroyRenderTarget(rt gfx.RenderTarget) {
	live, ok := d.targets[rt.ID]
	if !ok {
		return
	}
	live.destroy()
	delete(d.targets, rt.ID)
}

// CreateProgram implements gfx.Device.
func (d *Device) CreateProgram(desc gfx.ProgramDesc) (gfx.Program, error) {
	prog, err := compileProgram(desc.Vertex, desc.Fragment)
	if err != nil {
		return gfx.Program{}, fmt.Errorf("%w: program %q: %v", gfx.ErrDevice, desc.Name, err)
	}
	id := d.id()
	d.programs[id] = prog
	d.log.Debug("program compiled", zap.String("name", desc.Name))
	return gfx.Program{ID: id, Name: desc.Name}, nil
}

// DestroyProgram implements gfx.Device.
func (d *Device) DestroyProgram(p gfx.Program) {
	prog, ok := d.programs[p.ID]
	if !ok {
		return
	}
	gl.DeleteProgram(prog)
	delete(d.programs, p.ID)
}

// BeginRenderPass implements gfx.Device.
func (d *Device) BeginRenderPass(desc gfx.RenderPassDesc) (gfx.PassRenderer, error) {
	if d.inPass != nil {
		return nil, fmt.Errorf("%w: pass %q begun inside %q", gfx.ErrInvalidPass, desc.DebugName, d.inPass.name)
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, d.passFBO)
	detachAll(gl.FRAMEBUFFER)

	var (
		width, height int
		clearMask     uint32
	)
	for _, a := range []*gfx.Attachment{desc.Color, desc.DepthStencil} {
		if a == nil {
			continue
		}
		t, ok := d.targets[a.Target.ID]
		if !ok {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			return nil, fmt.Errorf("%w: pass %q target %d", gfx.ErrUnknownResource, desc.DebugName, a.Target.ID)
		}
		if width != 0 && (width != t.desc.Width || height != t.desc.Height) {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			return nil, fmt.Errorf("%w: pass %q attachments differ in size", gfx.ErrInvalidPass, desc.DebugName)
		}
		width, height = t.desc.Width, t.desc.Height
		t.attach(gl.FRAMEBUFFER)
	}
	if err := checkComplete(gl.FRAMEBUFFER); err != nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return nil, fmt.Errorf("pass %q: %w", desc.DebugName, err)
	}

	gl.Viewport(0, 0, int32(width), int32(height))
	if c := desc.Color; c != nil && c.Load == gfx.LoadOpClear {
		gl.ClearColor(c.ClearColor[0], c.ClearColor[1], c.ClearColor[2], c.ClearColor[3])
		clearMask |= gl.COLOR_BUFFER_BIT
	}
	if ds := desc.DepthStencil; ds != nil {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
		if ds.Load == gfx.LoadOpClear {
			gl.ClearDepth(float64(ds.ClearDepth))
			gl.ClearStencil(int32(ds.ClearStencil))
			gl.DepthMask(true)
			clearMask |= gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT
		}
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	if clearMask != 0 {
		gl.Clear(clearMask)
	}
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	d.inPass = &pass{dev: d, name: desc.DebugName}
	return d.inPass, nil
}

// EndRenderPass implements gfx.Device.
func (d *Device) EndRenderPass(p gfx.PassRenderer) error {
	gp, ok := p.(*pass)
	if !ok || gp != d.inPass {
		return fmt.Errorf("%w: ending a pass that is not current", gfx.ErrInvalidPass)
	}
	d.inPass = nil
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return gp.err
}

// CopyRenderTargetToTexture implements gfx.Device.
func (d *Device) CopyRenderTargetToTexture(dst gfx.Texture, src gfx.RenderTarget) error {
	if d.inPass != nil {
		return fmt.Errorf("%w: copy inside pass %q", gfx.ErrInvalidPass, d.inPass.name)
	}
	s, ok := d.targets[src.ID]
	if !ok {
		return fmt.Errorf("%w: render target %d", gfx.ErrUnknownResource, src.ID)
	}
	t, ok := d.textures[dst.ID]
	if !ok {
		return fmt.Errorf("%w: texture %d", gfx.ErrUnknownResource, dst.ID)
	}
	if s.desc.Width != t.desc.Width || s.desc.Height != t.desc.Height {
		return fmt.Errorf("%w: copy %dx%d into %dx%d", gfx.ErrInvalidTargetSize,
			s.desc.Width, s.desc.Height, t.desc.Width, t.desc.Height)
	}

	mask := uint32(gl.COLOR_BUFFER_BIT)
	if s.desc.Format == gfx.FormatD24S8 {
		mask = gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT
	}

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.readFBO)
	detachAll(gl.READ_FRAMEBUFFER)
	s.attach(gl.READ_FRAMEBUFFER)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, d.drawFBO)
	detachAll(gl.DRAW_FRAMEBUFFER)
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, attachmentPoint(t.desc.Format), gl.TEXTURE_2D, t.gl, 0)

	w, h := int32(s.desc.Width), int32(s.desc.Height)
	gl.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, mask, gl.NEAREST)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	return nil
}

// Present blits t to the default framebuffer, scaled to width x height.
func (d *Device) Present(t gfx.Texture, width, height int) error {
	live, ok := d.textures[t.ID]
	if !ok {
		return fmt.Errorf("%w: texture %d", gfx.ErrUnknownResource, t.ID)
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.readFBO)
	detachAll(gl.READ_FRAMEBUFFER)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, live.gl, 0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, int32(live.desc.Width), int32(live.desc.Height),
		0, 0, int32(width), int32(height), gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	return nil
}

// ReadTexture returns the RGBA pixels of t, top row first.
func (d *Device) ReadTexture(t gfx.Texture) ([]byte, error) {
	live, ok := d.textures[t.ID]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", gfx.ErrUnknownResource, t.ID)
	}
	w, h := live.desc.Width, live.desc.Height
	pixels := make([]byte, w*h*4)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.readFBO)
	detachAll(gl.READ_FRAMEBUFFER)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, live.gl, 0)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	flipRows(pixels, w, h)
	return pixels, nil
}

// vertexArray returns the VAO for a vertex and index buffer pair, creating
// it on first use.
func (d *Device) vertexArray(vertices, indices gfx.Buffer) (uint32, error) {
	if vertices.ID == 0 {
		return d.emptyVAO, nil
	}
	key := [2]uint32{vertices.ID, indices.ID}
	if vao, ok := d.vaos[key]; ok {
		return vao, nil
	}
	vb, ok := d.buffers[vertices.ID]
	if !ok {
		return 0, fmt.Errorf("%w: buffer %d", gfx.ErrUnknownResource, vertices.ID)
	}

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vb.gl)

	stride := int32(model.VertexFloats * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 6*4)

	if indices.ID != 0 {
		ib, ok := d.buffers[indices.ID]
		if !ok {
			gl.BindVertexArray(0)
			gl.DeleteVertexArrays(1, &vao)
			return 0, fmt.Errorf("%w: buffer %d", gfx.ErrUnknownResource, indices.ID)
		}
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.gl)
	}
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	d.vaos[key] = vao
	return vao, nil
}

// Destroy releases the device's own GL objects. Resources created through
// the gfx.Device methods must be destroyed by their owners first.
func (d *Device) Destroy() {
	if n := len(d.buffers) + len(d.textures) + len(d.targets) + len(d.programs); n > 0 {
		d.log.Warn("device destroyed with live resources", zap.Int("count", n))
	}
	for key, vao := range d.vaos {
		gl.DeleteVertexArrays(1, &vao)
		delete(d.vaos, key)
	}
	gl.DeleteVertexArrays(1, &d.emptyVAO)
	fbos := []uint32{d.passFBO, d.readFBO, d.drawFBO}
	gl.DeleteFramebuffers(int32(len(fbos)), &fbos[0])
}

var _ gfx.Device = (*Device)(nil)
