// Package viewer implements the interactive stage viewer: an SDL2 window,
// the OpenGL device and the frame loop driving the renderer.
package viewer

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/stagegraph/internal/config"
	"github.com/Faultbox/stagegraph/internal/engine/camera"
	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/gldevice"
	"github.com/Faultbox/stagegraph/internal/engine/input"
	"github.com/Faultbox/stagegraph/internal/engine/renderer"
	"github.com/Faultbox/stagegraph/internal/engine/scene"
	"github.com/Faultbox/stagegraph/internal/engine/window"
	"github.com/Faultbox/stagegraph/internal/fetch"
	"github.com/Faultbox/stagegraph/internal/logger"
	"github.com/Faultbox/stagegraph/internal/stage"
)

// Viewer is the main viewer instance.
type Viewer struct {
	cfg      *config.Config
	running  bool
	window   *window.Window
	device   *gldevice.Device
	helper   *renderer.Helper
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera

	sources *fetch.Sources
	watcher *fetch.Watcher
	session *stage.Session

	onscreen gfx.Texture
	width    int
	height   int
	start    time.Time
	log      *zap.Logger
}

// logPanel is the layer panel of the viewer: it logs the layer list.
type logPanel struct {
	log *zap.Logger
}

func (p logPanel) SetLayers(layers []scene.Layer) {
	for i, l := range layers {
		p.log.Info("layer", zap.Int("key", (i+1)%10), zap.String("name", l.Name), zap.Bool("visible", l.Visible))
	}
}

// New creates the window and device and opens the configured stage.
func New(cfg *config.Config) (*Viewer, error) {
	desc, ok := stage.Find(cfg.Stage.ID)
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", cfg.Stage.ID)
	}

	v := &Viewer{
		cfg:    cfg,
		input:  input.New(),
		camera: camera.NewOrbitCamera(),
		log:    logger.Named("viewer"),
	}

	var err error
	v.sources, err = fetch.Open(cfg.Data)
	if err != nil {
		return nil, err
	}

	// Create window (this also creates the OpenGL context)
	v.window, err = window.New(window.Config{
		Title:      "stagegraph - " + desc.Name,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	v.device, err = gldevice.New()
	if err != nil {
		v.Close()
		return nil, err
	}
	v.helper = renderer.NewHelper(v.device)
	v.renderer = renderer.New(v.helper, renderer.Config{
		ClearColor:   cfg.Graphics.ClearColor,
		Antialiasing: cfg.Graphics.Antialiasing == config.AntialiasingFXAA,
	})

	loader := stage.NewLoader(v.sources)
	loader.Base = cfg.Data.Base
	loader.Ext = cfg.Data.ArchiveExt
	loader.MaxConcurrent = cfg.Data.MaxConcurrentFetches
	v.session = stage.NewSession(loader, v.device, v.helper.Cache, logPanel{log: v.log})

	if err := v.session.Open(context.Background(), desc); err != nil {
		v.Close()
		return nil, fmt.Errorf("opening %s: %w", desc.ID, err)
	}
	v.camera.FitToBounds(v.session.Scene().Bounds())

	if cfg.Data.Watch && cfg.Data.Root != "" {
		v.watcher, err = fetch.NewWatcher(cfg.Data.Root)
		if err != nil {
			v.log.Warn("hot reload disabled", zap.Error(err))
		}
	}

	w, h := v.window.DrawableSize()
	if err := v.resize(w, h); err != nil {
		v.Close()
		return nil, err
	}

	v.log.Info("viewer initialized", zap.String("stage", desc.ID))
	return v, nil
}

func (v *Viewer) resize(w, h int) error {
	if w <= 0 || h <= 0 {
		return nil
	}
	if w == v.width && h == v.height {
		return nil
	}
	if v.onscreen.ID != 0 {
		v.device.DestroyTexture(v.onscreen)
	}
	t, err := v.device.CreateTexture(gfx.TextureDesc{Width: w, Height: h, Format: gfx.FormatRGBA8})
	if err != nil {
		return fmt.Errorf("creating onscreen texture: %w", err)
	}
	v.onscreen, v.width, v.height = t, w, h
	return nil
}

// Run starts the frame loop and returns when the window is closed.
func (v *Viewer) Run() error {
	v.running = true
	v.start = time.Now()

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	var limiter <-chan time.Time
	if v.cfg.Graphics.FPSLimit > 0 {
		t := time.NewTicker(time.Second / time.Duration(v.cfg.Graphics.FPSLimit))
		defer t.Stop()
		limiter = t.C
	}

	v.log.Info("starting frame loop")

	for v.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		if v.input.Update() {
			v.running = false
			break
		}
		if err := v.handleEvents(); err != nil {
			return err
		}
		v.handleMovement(float32(dt))
		v.pollChanges()

		if err := v.render(); err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps", zap.Int("count", frameCount), zap.Float64("dtMs", dt*1000))
			frameCount = 0
			fpsTimer = time.Now()
		}
		if limiter != nil {
			<-limiter
		}
	}

	return nil
}

func (v *Viewer) handleEvents() error {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			w, h := v.window.DrawableSize()
			if err := v.resize(w, h); err != nil {
				return err
			}
		case input.EventDrag:
			v.camera.HandleDrag(event.DX, event.DY)
		case input.EventPan:
			v.camera.HandleMovement(event.DY*0.1, -event.DX*0.1, 0)
		case input.EventZoom:
			v.camera.HandleZoom(event.DY)
		case input.EventKeyDown:
			v.handleKey(event.Key)
		}
	}
	return nil
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	if i, ok := input.LayerKey(key); ok {
		v.session.ToggleLayer(i)
		return
	}
	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_R:
		v.reload()
	case sdl.SCANCODE_F:
		v.camera.FitToBounds(v.session.Scene().Bounds())
	case sdl.SCANCODE_F12:
		if err := v.screenshot(); err != nil {
			v.log.Warn("screenshot failed", zap.Error(err))
		}
	}
}

func (v *Viewer) handleMovement(dt float32) {
	var forward, right, up float32
	if input.IsKeyDown(sdl.SCANCODE_W) {
		forward++
	}
	if input.IsKeyDown(sdl.SCANCODE_S) {
		forward--
	}
	if input.IsKeyDown(sdl.SCANCODE_D) {
		right++
	}
	if input.IsKeyDown(sdl.SCANCODE_A) {
		right--
	}
	if input.IsKeyDown(sdl.SCANCODE_E) {
		up++
	}
	if input.IsKeyDown(sdl.SCANCODE_Q) {
		up--
	}
	if forward != 0 || right != 0 || up != 0 {
		scale := dt * 60
		v.camera.HandleMovement(forward*scale, right*scale, up*scale)
	}
}

// pollChanges drains the watcher and reloads when a file of the current
// stage changed.
func (v *Viewer) pollChanges() {
	if v.watcher == nil {
		return
	}
	changed := false
	for {
		select {
		case path, ok := <-v.watcher.Changes():
			if !ok {
				v.watcher = nil
				return
			}
			v.sources.Invalidate(path)
			if v.session.Affects(path) {
				v.log.Info("stage file changed", zap.String("path", path))
				changed = true
			}
		default:
			if changed {
				v.reload()
			}
			return
		}
	}
}

func (v *Viewer) reload() {
	if err := v.session.Reload(context.Background()); err != nil {
		v.log.Error("reload failed, keeping the current scene", zap.Error(err))
	}
}

// render draws the current frame.
func (v *Viewer) render() error {
	err := v.renderer.Render(v.session.Scene(), renderer.ViewerInput{
		TimeMs:     float64(time.Since(v.start).Microseconds()) / 1000,
		Width:      v.width,
		Height:     v.height,
		Projection: v.camera.ProjectionMatrix(v.width, v.height),
		View:       v.camera.ViewMatrix(),
		Onscreen:   v.onscreen,
	})
	if err != nil {
		return err
	}
	return v.device.Present(v.onscreen, v.width, v.height)
}

func (v *Viewer) screenshot() error {
	pixels, err := v.device.ReadTexture(v.onscreen)
	if err != nil {
		return err
	}
	img := &image.RGBA{
		Pix:    pixels,
		Stride: v.width * 4,
		Rect:   image.Rect(0, 0, v.width, v.height),
	}
	name := fmt.Sprintf("%s_%s.png", v.session.Desc().ID, time.Now().Format("20060102_150405"))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	v.log.Info("screenshot saved", zap.String("path", name))
	return nil
}

// Close releases everything in reverse order of creation.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.watcher != nil {
		v.watcher.Close()
	}
	if v.session != nil {
		v.session.Close()
	}
	if v.device != nil && v.onscreen.ID != 0 {
		v.device.DestroyTexture(v.onscreen)
	}
	if v.helper != nil {
		v.helper.Destroy()
	}
	if v.device != nil {
		v.device.Destroy()
	}
	if v.window != nil {
		v.window.Close()
	}
	if v.sources != nil {
		v.sources.Close()
	}
}
