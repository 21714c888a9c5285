package lighting

import "github.com/go-gl/mathgl/mgl32"

// Constants of the fixed lighting used for archives without scene
// animation.
const (
	FudgeScale       = 0.65
	FudgeAmbientBias = 0.5
)

// MaterialHacks adjusts how a model's materials are shaded.
type MaterialHacks struct {
	// LightingFudge replaces dynamic lighting with
	// FudgeScale * (ambient + FudgeAmbientBias) * material.
	LightingFudge bool
}

// FudgeLighting returns the fudged color of a material under ambient. Alpha
// is the material's own.
func FudgeLighting(ambient, material mgl32.Vec4) mgl32.Vec4 {
	var out mgl32.Vec4
	for i := 0; i < 3; i++ {
		out[i] = FudgeScale * (ambient[i] + FudgeAmbientBias) * material[i]
	}
	out[3] = material[3]
	return out
}
