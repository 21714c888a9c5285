// Package animation holds the clock shared by every animated binding of a
// scene. The clock never advances on its own: the frame compositor sets it
// from the host's elapsed time once per frame.
package animation

import "github.com/chewxy/math32"

// FramesPerSecond converts milliseconds to animation frames.
const FramesPerSecond = 60

// Clock is the scene's time cursor.
type Clock struct {
	timeMs float64
}

// SetTimeInMilliseconds moves the clock.
func (c *Clock) SetTimeInMilliseconds(ms float64) {
	c.timeMs = ms
}

// TimeInMilliseconds returns the current time.
func (c *Clock) TimeInMilliseconds() float64 {
	return c.timeMs
}

// Frame returns the current time in animation frames.
func (c *Clock) Frame() float32 {
	return float32(c.timeMs * FramesPerSecond / 1000)
}

// FrameControl maps the clock onto one animation's frame range.
type FrameControl struct {
	// Duration is the animation length in frames.
	Duration float32
	// Loop wraps past the end instead of holding the last frame.
	Loop bool
	// Speed scales the clock. Zero means 1.
	Speed float32
}

// Frame returns the animation frame for the clock's current time.
func (fc FrameControl) Frame(c *Clock) float32 {
	if fc.Duration <= 0 {
		return 0
	}
	speed := fc.Speed
	if speed == 0 {
		speed = 1
	}
	t := c.Frame() * speed
	if fc.Loop {
		t = math32.Mod(t, fc.Duration)
		if t < 0 {
			t += fc.Duration
		}
		return t
	}
	return math32.Max(0, math32.Min(t, fc.Duration))
}

// Phase returns Frame normalized to [0, 1].
func (fc FrameControl) Phase(c *Clock) float32 {
	if fc.Duration <= 0 {
		return 0
	}
	return fc.Frame(c) / fc.Duration
}
