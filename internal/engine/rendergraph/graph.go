package rendergraph

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/logger"
)

type pooledTarget struct {
	rt   gfx.RenderTarget
	used bool
}

type pooledTexture struct {
	tex  gfx.Texture
	used bool
}

// Graph executes Builders and owns the device targets they run on. Targets
// and resolve textures are pooled across frames by description; anything a
// frame does not use is destroyed at the end of that frame.
type Graph struct {
	device   gfx.Device
	targets  []*pooledTarget
	textures []*pooledTexture
	log      *zap.Logger
}

// New returns a Graph allocating from device.
func New(device gfx.Device) *Graph {
	return &Graph{device: device, log: logger.Named("rendergraph")}
}

// NewBuilder starts a frame.
func (g *Graph) NewBuilder() *Builder {
	return &Builder{graph: g}
}

// NumPooledTargets returns the number of device render targets held.
func (g *Graph) NumPooledTargets() int {
	return len(g.targets)
}

type frameScope struct {
	textures map[ResolveTextureID]gfx.Texture
}

func (s *frameScope) ResolveTexture(id ResolveTextureID) gfx.Texture {
	return s.textures[id]
}

// Execute runs the frame described by b. The Builder and all of its IDs are
// invalid afterwards, whether or not Execute succeeds.
func (g *Graph) Execute(b *Builder) error {
	if b.graph != g || b.executed {
		return ErrStaleID
	}
	b.executed = true
	if b.err != nil {
		return b.err
	}

	livePasses := g.cull(b)

	physical := make(map[RenderTargetID]gfx.RenderTarget)
	acquire := func(id RenderTargetID) error {
		if _, ok := physical[id]; ok {
			return nil
		}
		rt, err := g.acquireTarget(b.targets[id].RenderTargetDesc)
		if err != nil {
			return fmt.Errorf("render target %q: %w", b.targets[id].DebugName, err)
		}
		physical[id] = rt
		return nil
	}

	scope := &frameScope{textures: make(map[ResolveTextureID]gfx.Texture)}
	for _, p := range livePasses {
		for _, id := range []RenderTargetID{p.color, p.depth} {
			if id >= 0 {
				if err := acquire(id); err != nil {
					return g.endFrame(err)
				}
			}
		}
		for _, rid := range p.resolves {
			if _, ok := scope.textures[rid]; ok {
				continue
			}
			src := b.targets[b.resolves[rid]]
			if err := acquire(b.resolves[rid]); err != nil {
				return g.endFrame(err)
			}
			tex, err := g.acquireTexture(gfx.TextureDesc{Width: src.Width, Height: src.Height, Format: src.Format})
			if err != nil {
				return g.endFrame(fmt.Errorf("resolve of %q: %w", src.DebugName, err))
			}
			scope.textures[rid] = tex
		}
	}
	for _, ext := range b.externals {
		if err := acquire(ext.target); err != nil {
			return g.endFrame(err)
		}
	}

	written := make(map[RenderTargetID]bool)
	copied := make(map[ResolveTextureID]bool)
	attachment := func(id RenderTargetID) *gfx.Attachment {
		if id < 0 {
			return nil
		}
		desc := b.targets[id]
		a := &gfx.Attachment{Target: physical[id], Load: gfx.LoadOpLoad}
		if !written[id] && desc.Clear {
			a.Load = gfx.LoadOpClear
			a.ClearColor = desc.ClearColor
			a.ClearDepth = desc.ClearDepth
			a.ClearStencil = desc.ClearStencil
		}
		written[id] = true
		return a
	}

	for _, p := range livePasses {
		for _, rid := range p.resolves {
			if copied[rid] {
				continue
			}
			if err := g.device.CopyRenderTargetToTexture(scope.textures[rid], physical[b.resolves[rid]]); err != nil {
				return g.endFrame(fmt.Errorf("pass %q resolve: %w", p.name, err))
			}
			copied[rid] = true
		}

		desc := gfx.RenderPassDesc{
			DebugName:    p.name,
			Color:        attachment(p.color),
			DepthStencil: attachment(p.depth),
		}
		r, err := g.device.BeginRenderPass(desc)
		if err != nil {
			return g.endFrame(fmt.Errorf("pass %q: %w", p.name, err))
		}
		if p.exec != nil {
			p.exec(r, scope)
		}
		if err := g.device.EndRenderPass(r); err != nil {
			return g.endFrame(fmt.Errorf("pass %q: %w", p.name, err))
		}
	}

	for _, ext := range b.externals {
		if err := g.device.CopyRenderTargetToTexture(ext.texture, physical[ext.target]); err != nil {
			return g.endFrame(fmt.Errorf("resolve %q to external texture: %w", b.targets[ext.target].DebugName, err))
		}
	}

	g.log.Debug("render graph executed",
		zap.Int("passes", len(livePasses)),
		zap.Int("culled", len(b.passes)-len(livePasses)),
		zap.Int("targets", len(physical)))
	return g.endFrame(nil)
}

// cull returns the passes that contribute to an external resolve, in
// declaration order.
func (g *Graph) cull(b *Builder) []*pass {
	needed := make([]bool, len(b.targets))
	for _, ext := range b.externals {
		needed[ext.target] = true
	}

	live := make([]bool, len(b.passes))
	for i := len(b.passes) - 1; i >= 0; i-- {
		p := b.passes[i]
		if !(p.color >= 0 && needed[p.color]) && !(p.depth >= 0 && needed[p.depth]) {
			continue
		}
		live[i] = true
		if p.color >= 0 {
			needed[p.color] = true
		}
		if p.depth >= 0 {
			needed[p.depth] = true
		}
		for _, rid := range p.resolves {
			needed[b.resolves[rid]] = true
		}
	}

	var out []*pass
	for i, p := range b.passes {
		if live[i] {
			out = append(out, p)
		}
	}
	return out
}

func (g *Graph) acquireTarget(desc gfx.RenderTargetDesc) (gfx.RenderTarget, error) {
	if desc.SampleCount < 1 {
		desc.SampleCount = 1
	}
	for _, pt := range g.targets {
		if !pt.used && pt.rt.Desc == desc {
			pt.used = true
			return pt.rt, nil
		}
	}
	rt, err := g.device.CreateRenderTarget(desc)
	if err != nil {
		return gfx.RenderTarget{}, err
	}
	g.targets = append(g.targets, &pooledTarget{rt: rt, used: true})
	return rt, nil
}

func (g *Graph) acquireTexture(desc gfx.TextureDesc) (gfx.Texture, error) {
	for _, pt := range g.textures {
		if !pt.used && pt.tex.Desc == desc {
			pt.used = true
			return pt.tex, nil
		}
	}
	tex, err := g.device.CreateTexture(desc)
	if err != nil {
		return gfx.Texture{}, err
	}
	g.textures = append(g.textures, &pooledTexture{tex: tex, used: true})
	return tex, nil
}

// endFrame releases pooled resources the frame did not touch and readies
// the rest for the next frame.
func (g *Graph) endFrame(err error) error {
	targets := g.targets[:0]
	for _, pt := range g.targets {
		if !pt.used {
			g.device.DestroyRenderTarget(pt.rt)
			continue
		}
		pt.used = false
		targets = append(targets, pt)
	}
	g.targets = targets

	textures := g.textures[:0]
	for _, pt := range g.textures {
		if !pt.used {
			g.device.DestroyTexture(pt.tex)
			continue
		}
		pt.used = false
		textures = append(textures, pt)
	}
	g.textures = textures
	return err
}

// Destroy releases every pooled device resource.
func (g *Graph) Destroy() {
	for _, pt := range g.targets {
		g.device.DestroyRenderTarget(pt.rt)
	}
	for _, pt := range g.textures {
		g.device.DestroyTexture(pt.tex)
	}
	g.targets = nil
	g.textures = nil
}
