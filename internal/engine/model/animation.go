package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stagegraph/internal/engine/animation"
	"github.com/Faultbox/stagegraph/pkg/rres"
)

func frameControl(info rres.AnimInfo) animation.FrameControl {
	return animation.FrameControl{Duration: float32(info.FrameCount), Loop: info.Loop}
}

// transformBinding samples a CHR0 track.
type transformBinding struct {
	anim    *rres.ModelAnim
	control animation.FrameControl
}

func (b *transformBinding) matrix(clock *animation.Clock) mgl32.Mat4 {
	frame := b.control.Frame(clock)
	var t, r, s mgl32.Vec3
	for i := 0; i < 3; i++ {
		t[i] = b.anim.Translation[i].Sample(frame, 0)
		r[i] = b.anim.Rotation[i].Sample(frame, 0)
		s[i] = b.anim.Scale[i].Sample(frame, 1)
	}
	return TRS(t, r, s)
}

// colorBinding samples a CLR0 track over a material's base color.
type colorBinding struct {
	anim    *rres.ColorAnim
	control animation.FrameControl
}

func (b *colorBinding) color(clock *animation.Clock, base mgl32.Vec4) mgl32.Vec4 {
	frame := b.control.Frame(clock)
	var c mgl32.Vec4
	for i := range c {
		c[i] = b.anim.Color[i].Sample(frame, base[i])
	}
	return c
}

// visBinding samples a VIS0 track.
type visBinding struct {
	anim    *rres.VisAnim
	control animation.FrameControl
}

func (b *visBinding) visible(clock *animation.Clock) bool {
	return b.anim.Visible.SampleStep(b.control.Frame(clock), 1) > 0.5
}
