package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/model"
	"github.com/Faultbox/stagegraph/internal/engine/rendergraph"
	"github.com/Faultbox/stagegraph/internal/engine/scene"
	"github.com/Faultbox/stagegraph/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	ClearColor   [4]float32
	Antialiasing bool
}

// DefaultConfig returns the viewer defaults.
func DefaultConfig() Config {
	return Config{
		ClearColor:   [4]float32{0.1, 0.1, 0.12, 1},
		Antialiasing: true,
	}
}

// ViewerInput is what the host provides for each frame.
type ViewerInput struct {
	// TimeMs is the elapsed time since the viewer started.
	TimeMs     float64
	Width      int
	Height     int
	Projection mgl32.Mat4
	View       mgl32.Mat4
	// Onscreen receives the final image. It must be Width x Height.
	Onscreen gfx.Texture
}

// Renderer is the frame compositor.
type Renderer struct {
	helper *Helper
	config Config
	log    *zap.Logger
	frames uint64
}

// New returns a renderer drawing through helper.
func New(helper *Helper, cfg Config) *Renderer {
	return &Renderer{
		helper: helper,
		config: cfg,
		log:    logger.Named("renderer"),
	}
}

// Helper returns the renderer's helper.
func (r *Renderer) Helper() *Helper {
	return r.helper
}

// Frames returns the number of frames rendered successfully.
func (r *Renderer) Frames() uint64 {
	return r.frames
}

// Render draws one frame of s into in.Onscreen. Frame state is reset
// whether or not rendering succeeds.
func (r *Renderer) Render(s *scene.Scene, in ViewerInput) error {
	h := r.helper
	defer h.Insts.Reset()

	if s.State() == scene.StateDestroyed {
		return scene.ErrDestroyed
	}

	s.Clock().SetTimeInMilliseconds(in.TimeMs)
	s.CalcLightSettings()

	tmpl := h.Insts.PushTemplate()
	params := h.Insts.AllocateUniformBuffer(tmpl, gfx.BindingScene, model.SceneFloats)
	copy(params[model.SceneProjection:], in.Projection[:])
	copy(params[model.SceneView:], in.View[:])
	err := s.PrepareToRender(h.Insts)
	if perr := h.Insts.PopTemplate(); err == nil {
		err = perr
	}
	if err != nil {
		return err
	}
	if err := h.Insts.Upload(h.Device); err != nil {
		return fmt.Errorf("uniform upload: %w", err)
	}

	b := h.Graph.NewBuilder()
	mainColor := b.CreateRenderTargetID(rendergraph.TargetDesc{
		RenderTargetDesc: gfx.RenderTargetDesc{Width: in.Width, Height: in.Height, Format: gfx.FormatRGBA8},
		DebugName:        "Main Color",
		Clear:            true,
		ClearColor:       r.config.ClearColor,
	})
	mainDepth := b.CreateRenderTargetID(rendergraph.TargetDesc{
		RenderTargetDesc: gfx.RenderTargetDesc{Width: in.Width, Height: in.Height, Format: gfx.FormatD24S8},
		DebugName:        "Main Depth",
		Clear:            true,
		ClearDepth:       1,
	})
	b.PushPass(func(p *rendergraph.PassBuilder) {
		p.SetDebugName("Main")
		p.AttachRenderTargetID(gfx.SlotColor0, mainColor)
		p.AttachRenderTargetID(gfx.SlotDepthStencil, mainDepth)
		p.Exec(func(pr gfx.PassRenderer, _ rendergraph.Scope) {
			h.Insts.DrawOnPassRenderer(pr)
		})
	})
	if r.config.Antialiasing {
		if err := PushAntialiasingPass(b, h.Cache, mainColor); err != nil {
			return err
		}
	}
	b.ResolveRenderTargetToExternalTexture(mainColor, in.Onscreen)

	if err := h.Graph.Execute(b); err != nil {
		return err
	}
	r.frames++
	if r.frames == 1 {
		r.log.Debug("first frame rendered",
			zap.String("scene", s.Name),
			zap.Int("width", in.Width),
			zap.Int("height", in.Height),
			zap.Bool("antialiasing", r.config.Antialiasing))
	}
	return nil
}
