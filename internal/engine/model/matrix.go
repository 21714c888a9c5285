package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// PlacementMatrix builds the transform of a placed object: translate, then
// rotate about X, then Y, then Z. Rotation is in degrees.
func PlacementMatrix(translation, rotation mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(translation[0], translation[1], translation[2]).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(rotation[0]))).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(rotation[1]))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(rotation[2])))
}

// TRS builds translate * rotateXYZ * scale, the local transform of an
// animated model.
func TRS(translation, rotation, scale mgl32.Vec3) mgl32.Mat4 {
	return PlacementMatrix(translation, rotation).
		Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
}
