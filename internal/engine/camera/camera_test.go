package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/stagegraph/internal/engine/model"
)

func TestPosition(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = mgl32.Vec3{1, 2, 3}
	c.Distance = 10
	c.Pitch = 0
	c.Yaw = 0

	p := c.Position()
	assert.InDelta(t, 1, p[0], 1e-5)
	assert.InDelta(t, 2, p[1], 1e-5)
	assert.InDelta(t, 13, p[2], 1e-5)

	// The view matrix maps the center onto the negative Z axis.
	v := c.ViewMatrix().Mul4x1(c.Center.Vec4(1))
	assert.InDelta(t, 0, v[0], 1e-4)
	assert.InDelta(t, 0, v[1], 1e-4)
	assert.InDelta(t, -10, v[2], 1e-4)
}

func TestHandleDragClampsPitch(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 1e6)
	assert.Equal(t, c.MaxPitch, c.Pitch)
	c.HandleDrag(0, -1e6)
	assert.Equal(t, c.MinPitch, c.Pitch)
}

func TestHandleZoomClampsDistance(t *testing.T) {
	c := NewOrbitCamera()
	for i := 0; i < 200; i++ {
		c.HandleZoom(1)
	}
	assert.Equal(t, c.MinDistance, c.Distance)
	for i := 0; i < 500; i++ {
		c.HandleZoom(-1)
	}
	assert.Equal(t, c.MaxDistance, c.Distance)
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	var b model.Bounds
	b = b.Extend(mgl32.Vec3{-10, 0, -10}).Extend(mgl32.Vec3{10, 4, 10})

	c.FitToBounds(b)
	assert.Equal(t, b.Center(), c.Center)
	assert.Greater(t, c.Distance, b.Radius())

	before := *c
	c.FitToBounds(model.Bounds{})
	assert.Equal(t, before, *c)
}

func TestProjectionMatrixZeroHeight(t *testing.T) {
	c := NewOrbitCamera()
	assert.NotPanics(t, func() { c.ProjectionMatrix(640, 0) })
}
