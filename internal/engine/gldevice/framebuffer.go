package gldevice

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
)

// target is the GL storage behind a gfx.RenderTarget. Color targets are
// textures so they can be blitted and read back; depth targets are
// renderbuffers.
type target struct {
	desc    gfx.RenderTargetDesc
	texture uint32
	rbo     uint32
}

// textureFormat returns the internal format, format and type for a gfx
// format.
func textureFormat(f gfx.Format) (internal int32, format, xtype uint32) {
	if f == gfx.FormatD24S8 {
		return gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8
	}
	return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
}

// attachmentPoint returns the framebuffer attachment a format binds to.
func attachmentPoint(f gfx.Format) uint32 {
	if f == gfx.FormatD24S8 {
		return gl.DEPTH_STENCIL_ATTACHMENT
	}
	return gl.COLOR_ATTACHMENT0
}

func newTarget(desc gfx.RenderTargetDesc) *target {
	t := &target{desc: desc}
	w, h := int32(desc.Width), int32(desc.Height)
	if desc.Format == gfx.FormatD24S8 {
		gl.GenRenderbuffers(1, &t.rbo)
		gl.BindRenderbuffer(gl.RENDERBUFFER, t.rbo)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, w, h)
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
		return t
	}
	t.texture = newTexture(desc.Format, w, h, nil)
	return t
}

func newTexture(f gfx.Format, w, h int32, pixels []byte) uint32 {
	internal, format, xtype := textureFormat(f)
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	ptr := gl.Ptr(nil)
	if len(pixels) > 0 {
		ptr = gl.Ptr(pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, w, h, 0, format, xtype, ptr)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id
}

// attach binds t to its attachment point of the currently bound
// framebuffer.
func (t *target) attach(fbTarget uint32) {
	point := attachmentPoint(t.desc.Format)
	if t.rbo != 0 {
		gl.FramebufferRenderbuffer(fbTarget, point, gl.RENDERBUFFER, t.rbo)
		return
	}
	gl.FramebufferTexture2D(fbTarget, point, gl.TEXTURE_2D, t.texture, 0)
}

func (t *target) destroy() {
	if t.texture != 0 {
		gl.DeleteTextures(1, &t.texture)
		t.texture = 0
	}
	if t.rbo != 0 {
		gl.DeleteRenderbuffers(1, &t.rbo)
		t.rbo = 0
	}
}

// detachAll clears every attachment of the bound framebuffer.
func detachAll(fbTarget uint32) {
	gl.FramebufferTexture2D(fbTarget, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, 0, 0)
	gl.FramebufferRenderbuffer(fbTarget, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, 0)
}

func checkComplete(fbTarget uint32) error {
	status := gl.CheckFramebufferStatus(fbTarget)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: framebuffer incomplete: 0x%x", gfx.ErrInvalidPass, status)
	}
	return nil
}

// flipRows reverses the row order of an RGBA image in place. OpenGL has its
// origin at the bottom left.
func flipRows(pixels []byte, width, height int) {
	stride := width * 4
	row := make([]byte, stride)
	for y := 0; y < height/2; y++ {
		top := pixels[y*stride : (y+1)*stride]
		bottom := pixels[(height-1-y)*stride : (height-y)*stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}
