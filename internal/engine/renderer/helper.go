// Package renderer composites a scene every frame: it sets the scene clock,
// records the draws of every instance and runs them through a render graph
// with a main pass, an antialiasing pass and a resolve to the host's
// presentation texture.
package renderer

import (
	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/rendergraph"
	"github.com/Faultbox/stagegraph/internal/engine/renderinst"
)

// Helper bundles the per-device rendering state shared by every frame.
type Helper struct {
	Device gfx.Device
	Cache  *gfx.RenderCache
	Insts  *renderinst.Manager
	Graph  *rendergraph.Graph
}

// NewHelper returns a helper for device.
func NewHelper(device gfx.Device) *Helper {
	return &Helper{
		Device: device,
		Cache:  gfx.NewRenderCache(device),
		Insts:  renderinst.NewManager(),
		Graph:  rendergraph.New(device),
	}
}

// Destroy releases the helper's device resources. Scenes built with its
// cache must be destroyed first.
func (h *Helper) Destroy() {
	h.Graph.Destroy()
	h.Insts.Destroy(h.Device)
	h.Cache.Destroy()
}
