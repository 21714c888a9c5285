// Package gfx defines the graphics device boundary the engine renders
// through. The scene code only allocates buffers, textures, render targets
// and programs, declares passes and submits draws; backends such as the
// OpenGL device in gldevice own the GPU objects.
package gfx

import (
	"errors"
	"fmt"
)

// Device errors. Everything a device returns matches ErrDevice.
var (
	ErrDevice            = errors.New("gfx: device error")
	ErrInvalidTargetSize = fmt.Errorf("%w: invalid render target size", ErrDevice)
	ErrOutOfMemory       = fmt.Errorf("%w: out of memory", ErrDevice)
	ErrUnknownResource   = fmt.Errorf("%w: unknown or destroyed resource", ErrDevice)
	ErrInvalidPass       = fmt.Errorf("%w: invalid render pass", ErrDevice)
)

// Format is a pixel format.
type Format int

const (
	FormatRGBA8 Format = iota
	FormatD24S8
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatD24S8:
		return "D24S8"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// BytesPerPixel returns the storage size of one pixel.
func (f Format) BytesPerPixel() int {
	return 4
}

// BufferUsage selects how a buffer is bound.
type BufferUsage int

const (
	BufferVertex BufferUsage = iota
	BufferIndex
	BufferUniform
)

// Buffer is a device buffer handle.
type Buffer struct {
	ID    uint32
	Usage BufferUsage
	Size  int
}

// TextureDesc describes a sampled texture.
type TextureDesc struct {
	Width, Height int
	Format        Format
}

// Texture is a device texture handle. The zero Texture is never valid.
type Texture struct {
	ID   uint32
	Desc TextureDesc
}

// RenderTargetDesc describes a render target.
type RenderTargetDesc struct {
	Width, Height int
	Format        Format
	SampleCount   int
}

// RenderTarget is a device render target handle.
type RenderTarget struct {
	ID   uint32
	Desc RenderTargetDesc
}

// ProgramDesc holds the sources of a shader program. Name must be unique
// per distinct source pair; RenderCache keys programs by it.
type ProgramDesc struct {
	Name     string
	Vertex   string
	Fragment string
}

// Program is a device program handle.
type Program struct {
	ID   uint32
	Name string
}

// AttachmentSlot names an attachment point of a pass.
type AttachmentSlot int

const (
	SlotColor0 AttachmentSlot = iota
	SlotDepthStencil
)

func (s AttachmentSlot) String() string {
	if s == SlotDepthStencil {
		return "DepthStencil"
	}
	return "Color0"
}

// LoadOp says what happens to attachment contents when a pass begins.
type LoadOp int

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
)

// Attachment binds a render target to a pass slot.
type Attachment struct {
	Target       RenderTarget
	Load         LoadOp
	ClearColor   [4]float32
	ClearDepth   float32
	ClearStencil uint8
}

// RenderPassDesc describes one pass. Either attachment may be nil.
type RenderPassDesc struct {
	DebugName    string
	Color        *Attachment
	DepthStencil *Attachment
}

// Device is the graphics device. It is used from the render thread only.
type Device interface {
	CreateBuffer(usage BufferUsage, size int) (Buffer, error)
	UploadBuffer(b Buffer, offset int, data []byte) error
	DestroyBuffer(b Buffer)

	CreateTexture(desc TextureDesc) (Texture, error)
	UploadTexture(t Texture, pixels []byte) error
	DestroyTexture(t Texture)

	CreateRenderTarget(desc RenderTargetDesc) (RenderTarget, error)
	DestroyRenderTarget(rt RenderTarget)

	CreateProgram(desc ProgramDesc) (Program, error)
	DestroyProgram(p Program)

	BeginRenderPass(desc RenderPassDesc) (PassRenderer, error)
	EndRenderPass(p PassRenderer) error

	// CopyRenderTargetToTexture resolves src into dst. Sizes must match.
	CopyRenderTargetToTexture(dst Texture, src RenderTarget) error
}

// PassRenderer records draws inside a render pass.
type PassRenderer interface {
	SetProgram(p Program)
	SetVertexInput(vertices, indices Buffer)
	// SetUniformBuffer binds size bytes at offset of b to a uniform block.
	SetUniformBuffer(binding int, b Buffer, offset, size int)
	// SetTextures binds textures to sampler units 0..n-1. A zero Texture
	// leaves the unit unbound.
	SetTextures(textures []Texture)
	DrawIndexed(indexCount, firstIndex int)
	// Draw issues a non-indexed draw, used for fullscreen passes.
	Draw(vertexCount, firstVertex int)
}

// Uniform block bindings shared by every program.
const (
	BindingScene    = 0
	BindingInstance = 1
)
