package gfx

import (
	"fmt"
	"strings"
)

// MaxTextureSize is the largest width or height a headless resource accepts.
const MaxTextureSize = 16384

// Contents is what the headless device knows about the pixels of a texture
// or render target: the last clear or upload color and how many draws hit it.
type Contents struct {
	Valid bool
	Color [4]float32
	Draws int
}

// PassRecord summarizes one executed pass.
type PassRecord struct {
	Name        string
	ColorTarget uint32
	DepthTarget uint32
	ColorLoad   LoadOp
	DepthLoad   LoadOp
	Draws       int
	Programs    []string
}

// CopyRecord is one CopyRenderTargetToTexture call.
type CopyRecord struct {
	Dst, Src uint32
}

// Stats counts live resources.
type Stats struct {
	Buffers, Textures, RenderTargets, Programs int
	Bytes                                      int
	Uploads                                    int
	InvalidDestroys                            int
}

// HeadlessDevice is an in-memory Device. It validates usage the way a real
// backend would and records every pass, which makes it the device used by
// tests and by offline tools.
type HeadlessDevice struct {
	// MemoryLimit bounds the bytes of live buffers, textures and targets.
	// Zero means unlimited.
	MemoryLimit int

	nextID     uint32
	buffers    map[uint32]Buffer
	textures   map[uint32]Texture
	targets    map[uint32]RenderTarget
	programs   map[uint32]Program
	contents   map[uint32]*Contents
	bytes      int
	badFrees   int
	inPass     *headlessPass
	passes     []PassRecord
	copies     []CopyRecord
	uploads    int
	commandLog []string
}

// NewHeadlessDevice returns an empty device.
func NewHeadlessDevice() *HeadlessDevice {
	return &HeadlessDevice{
		buffers:  make(map[uint32]Buffer),
		textures: make(map[uint32]Texture),
		targets:  make(map[uint32]RenderTarget),
		programs: make(map[uint32]Program),
		contents: make(map[uint32]*Contents),
	}
}

func (d *HeadlessDevice) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *HeadlessDevice) logf(format string, args ...any) {
	d.commandLog = append(d.commandLog, fmt.Sprintf(format, args...))
}

func (d *HeadlessDevice) alloc(n int) error {
	if d.MemoryLimit > 0 && d.bytes+n > d.MemoryLimit {
		return fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrOutOfMemory, n, d.bytes, d.MemoryLimit)
	}
	d.bytes += n
	return nil
}

// CreateBuffer implements Device.
func (d *HeadlessDevice) CreateBuffer(usage BufferUsage, size int) (Buffer, error) {
	if size <= 0 {
		return Buffer{}, fmt.Errorf("%w: buffer size %d", ErrDevice, size)
	}
	if err := d.alloc(size); err != nil {
		return Buffer{}, err
	}
	b := Buffer{ID: d.id(), Usage: usage, Size: size}
	d.buffers[b.ID] = b
	return b, nil
}

// UploadBuffer implements Device.
func (d *HeadlessDevice) UploadBuffer(b Buffer, offset int, data []byte) error {
	live, ok := d.buffers[b.ID]
	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownResource, b.ID)
	}
	if offset < 0 || offset+len(data) > live.Size {
		return fmt.Errorf("%w: upload [%d,+%d) outside buffer of %d bytes", ErrDevice, offset, len(data), live.Size)
	}
	d.uploads++
	return nil
}

// DestroyBuffer implements Device.
func (d *HeadlessDevice) DestroyBuffer(b Buffer) {
	live, ok := d.buffers[b.ID]
	if !ok {
		d.badFrees++
		return
	}
	d.bytes -= live.Size
	delete(d.buffers, b.ID)
}

func validSize(w, h int) bool {
	return w > 0 && h > 0 && w <= MaxTextureSize && h <= MaxTextureSize
}

// CreateTexture implements Device.
func (d *HeadlessDevice) CreateTexture(desc TextureDesc) (Texture, error) {
	if !validSize(desc.Width, desc.Height) {
		return Texture{}, fmt.Errorf("%w: texture %dx%d", ErrInvalidTargetSize, desc.Width, desc.Height)
	}
	if err := d.alloc(desc.Width * desc.Height * desc.Format.BytesPerPixel()); err != nil {
		return Texture{}, err
	}
	t := Texture{ID: d.id(), Desc: desc}
	d.textures[t.ID] = t
	d.contents[t.ID] = &Contents{}
	return t, nil
}

// UploadTexture implements Device.
func (d *HeadlessDevice) UploadTexture(t Texture, pixels []byte) error {
	live, ok := d.textures[t.ID]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownResource, t.ID)
	}
	want := live.Desc.Width * live.Desc.Height * live.Desc.Format.BytesPerPixel()
	if len(pixels) != want {
		return fmt.Errorf("%w: texture upload of %d bytes, want %d", ErrDevice, len(pixels), want)
	}
	c := d.contents[t.ID]
	c.Valid = true
	for i := 0; i < 4; i++ {
		c.Color[i] = float32(pixels[i]) / 255
	}
	d.uploads++
	return nil
}

// DestroyTexture implements Device.
func (d *HeadlessDevice) DestroyTexture(t Texture) {
	live, ok := d.textures[t.ID]
	if !ok {
		d.badFrees++
		return
	}
	d.bytes -= live.Desc.Width * live.Desc.Height * live.Desc.Format.BytesPerPixel()
	delete(d.textures, t.ID)
	delete(d.contents, t.ID)
}

// CreateRenderTarget implements Device.
func (d *HeadlessDevice) CreateRenderTarget(desc RenderTargetDesc) (RenderTarget, error) {
	if !validSize(desc.Width, desc.Height) {
		return RenderTarget{}, fmt.Errorf("%w: render target %dx%d", ErrInvalidTargetSize, desc.Width, desc.Height)
	}
	if desc.SampleCount < 1 {
		desc.SampleCount = 1
	}
	if err := d.alloc(desc.Width * desc.Height * desc.Format.BytesPerPixel() * desc.SampleCount); err != nil {
		return RenderTarget{}, err
	}
	rt := RenderTarget{ID: d.id(), Desc: desc}
	d.targets[rt.ID] = rt
	d.contents[rt.ID] = &Contents{}
	return rt, nil
}

// DestroyRenderTarget implements Device.
func (d *HeadlessDevice) DestroyRenderTarget(rt RenderTarget) {
	live, ok := d.targets[rt.ID]
	if !ok {
		d.badFrees++
		return
	}
	d.bytes -= live.Desc.Width * live.Desc.Height * live.Desc.Format.BytesPerPixel() * live.Desc.SampleCount
	delete(d.targets, rt.ID)
	delete(d.contents, rt.ID)
}

// CreateProgram implements Device.
func (d *HeadlessDevice) CreateProgram(desc ProgramDesc) (Program, error) {
	if desc.Vertex == "" || desc.Fragment == "" {
		return Program{}, fmt.Errorf("%w: program %q has no source", ErrDevice, desc.Name)
	}
	p := Program{ID: d.id(), Name: desc.Name}
	d.programs[p.ID] = p
	return p, nil
}

// DestroyProgram implements Device.
func (d *HeadlessDevice) DestroyProgram(p Program) {
	if _, ok := d.programs[p.ID]; !ok {
		d.badFrees++
		return
	}
	delete(d.programs, p.ID)
}

// BeginRenderPass implements Device.
func (d *HeadlessDevice) BeginRenderPass(desc RenderPassDesc) (PassRenderer, error) {
	if d.inPass != nil {
		return nil, fmt.Errorf("%w: pass %q begun inside %q", ErrInvalidPass, desc.DebugName, d.inPass.rec.Name)
	}
	rec := PassRecord{Name: desc.DebugName}

	var size [2]int
	for _, a := range []*Attachment{desc.Color, desc.DepthStencil} {
		if a == nil {
			continue
		}
		live, ok := d.targets[a.Target.ID]
		if !ok {
			return nil, fmt.Errorf("%w: pass %q target %d", ErrUnknownResource, desc.DebugName, a.Target.ID)
		}
		if size[0] != 0 && (size[0] != live.Desc.Width || size[1] != live.Desc.Height) {
			return nil, fmt.Errorf("%w: pass %q attachments differ in size", ErrInvalidPass, desc.DebugName)
		}
		size = [2]int{live.Desc.Width, live.Desc.Height}
		if a.Load == LoadOpClear {
			*d.contents[a.Target.ID] = Contents{Valid: true, Color: a.ClearColor}
		}
	}
	if desc.Color != nil {
		rec.ColorTarget = desc.Color.Target.ID
		rec.ColorLoad = desc.Color.Load
	}
	if desc.DepthStencil != nil {
		rec.DepthTarget = desc.DepthStencil.Target.ID
		rec.DepthLoad = desc.DepthStencil.Load
	}

	d.logf("begin %s", desc.DebugName)
	d.inPass = &headlessPass{dev: d, rec: rec}
	return d.inPass, nil
}

// EndRenderPass implements Device.
func (d *HeadlessDevice) EndRenderPass(p PassRenderer) error {
	hp, ok := p.(*headlessPass)
	if !ok || hp != d.inPass {
		return fmt.Errorf("%w: ending a pass that is not current", ErrInvalidPass)
	}
	d.inPass = nil
	d.passes = append(d.passes, hp.rec)
	d.logf("end %s draws=%d", hp.rec.Name, hp.rec.Draws)
	return hp.err
}

// CopyRenderTargetToTexture implements Device.
func (d *HeadlessDevice) CopyRenderTargetToTexture(dst Texture, src RenderTarget) error {
	if d.inPass != nil {
		return fmt.Errorf("%w: copy inside pass %q", ErrInvalidPass, d.inPass.rec.Name)
	}
	srcLive, ok := d.targets[src.ID]
	if !ok {
		return fmt.Errorf("%w: render target %d", ErrUnknownResource, src.ID)
	}
	dstLive, ok := d.textures[dst.ID]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownResource, dst.ID)
	}
	if srcLive.Desc.Width != dstLive.Desc.Width || srcLive.Desc.Height != dstLive.Desc.Height {
		return fmt.Errorf("%w: copy %dx%d into %dx%d", ErrInvalidTargetSize,
			srcLive.Desc.Width, srcLive.Desc.Height, dstLive.Desc.Width, dstLive.Desc.Height)
	}
	*d.contents[dst.ID] = *d.contents[src.ID]
	d.copies = append(d.copies, CopyRecord{Dst: dst.ID, Src: src.ID})
	d.logf("copy target %d -> texture %d", src.ID, dst.ID)
	return nil
}

// Contents returns the simulated contents of a texture or render target.
func (d *HeadlessDevice) Contents(id uint32) (Contents, bool) {
	c, ok := d.contents[id]
	if !ok {
		return Contents{}, false
	}
	return *c, true
}

// Passes returns every pass executed so far.
func (d *HeadlessDevice) Passes() []PassRecord {
	return d.passes
}

// Copies returns every copy executed so far.
func (d *HeadlessDevice) Copies() []CopyRecord {
	return d.copies
}

// ResetLog forgets recorded passes, copies and commands.
func (d *HeadlessDevice) ResetLog() {
	d.passes = nil
	d.copies = nil
	d.commandLog = nil
}

// CommandLog returns a human readable log of passes and copies.
func (d *HeadlessDevice) CommandLog() string {
	return strings.Join(d.commandLog, "\n")
}

// Stats returns live resource counts.
func (d *HeadlessDevice) Stats() Stats {
	return Stats{
		Buffers:         len(d.buffers),
		Textures:        len(d.textures),
		RenderTargets:   len(d.targets),
		Programs:        len(d.programs),
		Bytes:           d.bytes,
		Uploads:         d.uploads,
		InvalidDestroys: d.badFrees,
	}
}

type headlessPass struct {
	dev      *HeadlessDevice
	rec      PassRecord
	err      error
	program  bool
	vertices bool
	textures []Texture
}

func (p *headlessPass) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *headlessPass) SetProgram(prog Program) {
	if _, ok := p.dev.programs[prog.ID]; !ok {
		p.fail(fmt.Errorf("%w: program %d", ErrUnknownResource, prog.ID))
		return
	}
	p.program = true
	p.rec.Programs = append(p.rec.Programs, prog.Name)
}

func (p *headlessPass) SetVertexInput(vertices, indices Buffer) {
	for _, b := range []Buffer{vertices, indices} {
		if b.ID == 0 {
			continue
		}
		if _, ok := p.dev.buffers[b.ID]; !ok {
			p.fail(fmt.Errorf("%w: buffer %d", ErrUnknownResource, b.ID))
			return
		}
	}
	p.vertices = vertices.ID != 0
}

func (p *headlessPass) SetUniformBuffer(binding int, b Buffer, offset, size int) {
	live, ok := p.dev.buffers[b.ID]
	if !ok {
		p.fail(fmt.Errorf("%w: uniform buffer %d", ErrUnknownResource, b.ID))
		return
	}
	if offset < 0 || offset+size > live.Size {
		p.fail(fmt.Errorf("%w: uniform range [%d,+%d) outside buffer of %d bytes", ErrDevice, offset, size, live.Size))
	}
}

func (p *headlessPass) SetTextures(textures []Texture) {
	for _, t := range textures {
		if t.ID == 0 {
			continue
		}
		if _, ok := p.dev.textures[t.ID]; !ok {
			p.fail(fmt.Errorf("%w: texture %d", ErrUnknownResource, t.ID))
			return
		}
	}
	p.textures = append(p.textures[:0], textures...)
}

func (p *headlessPass) DrawIndexed(indexCount, firstIndex int) {
	if !p.program || !p.vertices {
		p.fail(fmt.Errorf("%w: draw in %q without program or vertex input", ErrInvalidPass, p.rec.Name))
		return
	}
	p.draw()
}

// Draw copies the contents of the first bound texture into the color
// target, which is what a fullscreen post-process pass amounts to here.
func (p *headlessPass) Draw(vertexCount, firstVertex int) {
	if !p.program {
		p.fail(fmt.Errorf("%w: draw in %q without program", ErrInvalidPass, p.rec.Name))
		return
	}
	if p.rec.ColorTarget != 0 && len(p.textures) > 0 && p.textures[0].ID != 0 {
		src := p.dev.contents[p.textures[0].ID]
		dst := p.dev.contents[p.rec.ColorTarget]
		dst.Valid = src.Valid
		dst.Color = src.Color
	}
	p.draw()
}

func (p *headlessPass) draw() {
	p.rec.Draws++
	if p.rec.ColorTarget != 0 {
		p.dev.contents[p.rec.ColorTarget].Draws++
	}
}
