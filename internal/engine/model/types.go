// Package model turns archive models into device geometry and draws them.
// A Definition holds the buffers and materials of one archive model; any
// number of Instances share it, each with its own transform, light binding
// and animation bindings.
package model

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// VertexFloats is the size of one interleaved vertex: position, normal and
// texture coordinate.
const VertexFloats = 8

// Bounds is an axis aligned bounding box. The zero value is empty.
type Bounds struct {
	Min, Max mgl32.Vec3
	Valid    bool
}

// Extend grows b to contain p.
func (b Bounds) Extend(p mgl32.Vec3) Bounds {
	if !b.Valid {
		return Bounds{Min: p, Max: p, Valid: true}
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
	return b
}

// Union returns the box containing b and o.
func (b Bounds) Union(o Bounds) Bounds {
	if !o.Valid {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Center returns the center of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Radius returns half the diagonal of the box.
func (b Bounds) Radius() float32 {
	return b.Max.Sub(b.Min).Len() / 2
}

// Transform returns the box containing the eight transformed corners of b.
func (b Bounds) Transform(m mgl32.Mat4) Bounds {
	if !b.Valid {
		return b
	}
	var out Bounds
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out = out.Extend(mgl32.TransformCoordinate(corner, m))
	}
	return out
}
