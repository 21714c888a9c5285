// Package lighting computes per-frame light state. An archive that carries
// scene animation data gets one LightSetting, recomputed every frame by a
// SceneAnimator and shared by every instance built from that archive.
package lighting

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stagegraph/internal/engine/animation"
	"github.com/Faultbox/stagegraph/pkg/rres"
)

// MaxLights is the number of lights the model shaders accept.
const MaxLights = 8

// LightFloats is the size of one light in a uniform block: color then
// direction padded to a vec4.
const LightFloats = 8

// Light is a directional light.
type Light struct {
	Color     mgl32.Vec4
	Direction mgl32.Vec3 // normalized, pointing from the light
	Enabled   bool
}

// LightSetting is the lighting state of one archive for the current frame.
type LightSetting struct {
	Ambient mgl32.Vec4
	Lights  [MaxLights]Light
}

// NumEnabled returns the number of leading enabled lights.
func (ls *LightSetting) NumEnabled() int {
	n := 0
	for n < MaxLights && ls.Lights[n].Enabled {
		n++
	}
	return n
}

// Fill writes the lights into dst as MaxLights blocks of LightFloats.
// Disabled lights are written as zeros.
func (ls *LightSetting) Fill(dst []float32) {
	for i := 0; i < MaxLights; i++ {
		o := i * LightFloats
		l := ls.Lights[i]
		if !l.Enabled {
			clear(dst[o : o+LightFloats])
			continue
		}
		copy(dst[o:], l.Color[:])
		copy(dst[o+4:], l.Direction[:])
		dst[o+7] = 0
	}
}

// SceneAnimator drives a LightSetting from a scene animation.
type SceneAnimator struct {
	clock   *animation.Clock
	anim    *rres.SceneAnim
	control animation.FrameControl
}

// NewSceneAnimator binds anim to clock.
func NewSceneAnimator(clock *animation.Clock, anim *rres.SceneAnim) *SceneAnimator {
	return &SceneAnimator{
		clock: clock,
		anim:  anim,
		control: animation.FrameControl{
			Duration: float32(anim.FrameCount),
			Loop:     anim.Loop,
		},
	}
}

// Name returns the animation name.
func (a *SceneAnimator) Name() string {
	return a.anim.Name
}

// Phase returns the animation position in [0, 1].
func (a *SceneAnimator) Phase() float32 {
	return a.control.Phase(a.clock)
}

// CalcLightSetting samples the animation at the clock's current time. The
// result depends only on the clock value.
func (a *SceneAnimator) CalcLightSetting(ls *LightSetting) {
	frame := a.control.Frame(a.clock)

	for i := range ls.Ambient {
		ls.Ambient[i] = a.anim.Ambient[i].Sample(frame, 1)
	}
	for i := range ls.Lights {
		if i >= len(a.anim.Lights) {
			ls.Lights[i] = Light{}
			continue
		}
		t := &a.anim.Lights[i]
		l := Light{Enabled: true}
		for c := range l.Color {
			l.Color[c] = t.Color[c].Sample(frame, 1)
		}
		dir := mgl32.Vec3{
			t.Direction[0].Sample(frame, 0),
			t.Direction[1].Sample(frame, -1),
			t.Direction[2].Sample(frame, 0),
		}
		if dir.Len() > 1e-6 {
			dir = dir.Normalize()
		}
		l.Direction = dir
		ls.Lights[i] = l
	}
}

// SunDirection converts a longitude (around Y) and a latitude (elevation
// from the horizon), both in degrees, to a unit vector pointing at the sun.
func SunDirection(longitude, latitude float32) mgl32.Vec3 {
	lon := mgl32.DegToRad(longitude)
	lat := mgl32.DegToRad(latitude)
	return mgl32.Vec3{
		math32.Cos(lat) * math32.Sin(lon),
		math32.Sin(lat),
		math32.Cos(lat) * math32.Cos(lon),
	}
}

// DefaultLightSetting is used by instances without a bound LightSetting:
// neutral ambient and one light from the sun.
func DefaultLightSetting() *LightSetting {
	ls := &LightSetting{Ambient: mgl32.Vec4{0.5, 0.5, 0.5, 1}}
	ls.Lights[0] = Light{
		Color:     mgl32.Vec4{1, 1, 1, 1},
		Direction: SunDirection(45, 60).Mul(-1),
		Enabled:   true,
	}
	return ls
}
