// Package rendergraph schedules a frame's render passes. Passes and render
// targets are declared against a Builder using virtual IDs; Graph.Execute
// culls passes that feed no output, maps virtual targets onto pooled device
// targets, decides clear versus load per attachment and runs the passes in
// declaration order.
//
// A Builder describes exactly one frame. Its IDs mean nothing to any other
// Builder and stop being valid once the Builder has been executed.
package rendergraph

import (
	"errors"
	"fmt"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
)

var (
	// ErrStaleID is returned when a Builder is used after Execute or
	// executed by a Graph that did not create it.
	ErrStaleID = errors.New("rendergraph: stale builder or id")
	// ErrInvalidID is returned for IDs the Builder never handed out.
	ErrInvalidID = errors.New("rendergraph: invalid id")
)

// RenderTargetID names a virtual render target within one Builder.
type RenderTargetID int

// ResolveTextureID names a sampled copy of a render target within one
// Builder.
type ResolveTextureID int

// TargetDesc describes a virtual render target.
type TargetDesc struct {
	gfx.RenderTargetDesc
	DebugName string
	// Clear makes the first pass that attaches the target clear it.
	Clear        bool
	ClearColor   [4]float32
	ClearDepth   float32
	ClearStencil uint8
}

// Scope gives pass callbacks access to the physical resources of the frame.
type Scope interface {
	ResolveTexture(id ResolveTextureID) gfx.Texture
}

// PassExec records the draws of a pass.
type PassExec func(r gfx.PassRenderer, scope Scope)

type pass struct {
	name     string
	color    RenderTargetID
	depth    RenderTargetID
	resolves []ResolveTextureID
	exec     PassExec
}

type externalResolve struct {
	target  RenderTargetID
	texture gfx.Texture
}

// Builder collects the declarations of one frame.
type Builder struct {
	graph     *Graph
	targets   []TargetDesc
	passes    []*pass
	resolves  []RenderTargetID
	externals []externalResolve
	executed  bool
	err       error
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) checkTarget(id RenderTargetID) bool {
	if b.executed {
		b.fail(ErrStaleID)
		return false
	}
	if id < 0 || int(id) >= len(b.targets) {
		b.fail(fmt.Errorf("%w: render target %d", ErrInvalidID, id))
		return false
	}
	return true
}

// CreateRenderTargetID declares a render target.
func (b *Builder) CreateRenderTargetID(desc TargetDesc) RenderTargetID {
	if b.executed {
		b.fail(ErrStaleID)
		return -1
	}
	b.targets = append(b.targets, desc)
	return RenderTargetID(len(b.targets) - 1)
}

// RenderTargetDesc returns the description of a declared target.
func (b *Builder) RenderTargetDesc(id RenderTargetID) TargetDesc {
	if !b.checkTarget(id) {
		return TargetDesc{}
	}
	return b.targets[id]
}

// PushPass declares a pass. setup attaches targets and sets the callback.
func (b *Builder) PushPass(setup func(p *PassBuilder)) {
	if b.executed {
		b.fail(ErrStaleID)
		return
	}
	p := &pass{color: -1, depth: -1}
	setup(&PassBuilder{b: b, p: p})
	b.passes = append(b.passes, p)
}

// ResolveRenderTargetToColorTexture declares a sampled copy of target, taken
// right before the first pass that attaches the returned ID.
func (b *Builder) ResolveRenderTargetToColorTexture(id RenderTargetID) ResolveTextureID {
	if !b.checkTarget(id) {
		return -1
	}
	b.resolves = append(b.resolves, id)
	return ResolveTextureID(len(b.resolves) - 1)
}

// ResolveRenderTargetToExternalTexture copies target into tex after every
// pass has run. External resolves are the roots that keep passes alive.
func (b *Builder) ResolveRenderTargetToExternalTexture(id RenderTargetID, tex gfx.Texture) {
	if !b.checkTarget(id) {
		return
	}
	b.externals = append(b.externals, externalResolve{target: id, texture: tex})
}

// PassBuilder configures one pass inside Builder.PushPass.
type PassBuilder struct {
	b *Builder
	p *pass
}

// SetDebugName names the pass in device logs.
func (pb *PassBuilder) SetDebugName(name string) {
	pb.p.name = name
}

// AttachRenderTargetID binds a target to a slot of the pass.
func (pb *PassBuilder) AttachRenderTargetID(slot gfx.AttachmentSlot, id RenderTargetID) {
	if !pb.b.checkTarget(id) {
		return
	}
	switch slot {
	case gfx.SlotColor0:
		pb.p.color = id
	case gfx.SlotDepthStencil:
		pb.p.depth = id
	default:
		pb.b.fail(fmt.Errorf("%w: attachment slot %d", ErrInvalidID, slot))
	}
}

// AttachResolveTexture makes a resolve texture available to the pass
// through Scope.
func (pb *PassBuilder) AttachResolveTexture(id ResolveTextureID) {
	if pb.b.executed {
		pb.b.fail(ErrStaleID)
		return
	}
	if id < 0 || int(id) >= len(pb.b.resolves) {
		pb.b.fail(fmt.Errorf("%w: resolve texture %d", ErrInvalidID, id))
		return
	}
	pb.p.resolves = append(pb.p.resolves, id)
}

// Exec sets the callback that records the pass.
func (pb *PassBuilder) Exec(fn PassExec) {
	pb.p.exec = fn
}
