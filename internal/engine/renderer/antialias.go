package renderer

import (
	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/rendergraph"
)

// fullscreenVertex draws a single triangle covering the screen from
// gl_VertexID; no vertex buffer is bound.
const fullscreenVertex = `#version 410 core
out vec2 vTexCoord;

void main() {
	vec2 p = vec2((gl_VertexID << 1) & 2, gl_VertexID & 2);
	vTexCoord = p;
	gl_Position = vec4(p * 2.0 - 1.0, 0.0, 1.0);
}
`

const fxaaFragment = `#version 410 core
uniform sampler2D uTexture;

in vec2 vTexCoord;
out vec4 FragColor;

const float EdgeMin = 1.0 / 128.0;
const float EdgeScale = 1.0 / 8.0;
const float SpanMax = 8.0;

float luma(vec3 c) {
	return dot(c, vec3(0.299, 0.587, 0.114));
}

void main() {
	vec2 texel = 1.0 / vec2(textureSize(uTexture, 0));
	vec3 nw = texture(uTexture, vTexCoord + vec2(-1.0, -1.0) * texel).rgb;
	vec3 ne = texture(uTexture, vTexCoord + vec2(1.0, -1.0) * texel).rgb;
	vec3 sw = texture(uTexture, vTexCoord + vec2(-1.0, 1.0) * texel).rgb;
	vec3 se = texture(uTexture, vTexCoord + vec2(1.0, 1.0) * texel).rgb;
	vec4 m = texture(uTexture, vTexCoord);

	float lNW = luma(nw), lNE = luma(ne), lSW = luma(sw), lSE = luma(se), lM = luma(m.rgb);
	float lMin = min(lM, min(min(lNW, lNE), min(lSW, lSE)));
	float lMax = max(lM, max(max(lNW, lNE), max(lSW, lSE)));

	vec2 dir = vec2(-((lNW + lNE) - (lSW + lSE)), (lNW + lSW) - (lNE + lSE));
	float reduce = max((lNW + lNE + lSW + lSE) * 0.25 * EdgeScale, EdgeMin);
	float rcp = 1.0 / (min(abs(dir.x), abs(dir.y)) + reduce);
	dir = clamp(dir * rcp, vec2(-SpanMax), vec2(SpanMax)) * texel;

	vec3 a = 0.5 * (texture(uTexture, vTexCoord + dir * (1.0 / 3.0 - 0.5)).rgb +
		texture(uTexture, vTexCoord + dir * (2.0 / 3.0 - 0.5)).rgb);
	vec3 b = a * 0.5 + 0.25 * (texture(uTexture, vTexCoord + dir * -0.5).rgb +
		texture(uTexture, vTexCoord + dir * 0.5).rgb);
	float lB = luma(b);
	FragColor = vec4((lB < lMin || lB > lMax) ? a : b, m.a);
}
`

// FXAAProgram is the antialiasing program.
var FXAAProgram = gfx.ProgramDesc{
	Name:     "fxaa",
	Vertex:   fullscreenVertex,
	Fragment: fxaaFragment,
}

// PushAntialiasingPass appends an FXAA pass that reads a resolved copy of
// target and writes the result back into it.
func PushAntialiasingPass(b *rendergraph.Builder, cache *gfx.RenderCache, target rendergraph.RenderTargetID) error {
	prog, err := cache.CreateProgram(FXAAProgram)
	if err != nil {
		return err
	}
	source := b.ResolveRenderTargetToColorTexture(target)
	b.PushPass(func(p *rendergraph.PassBuilder) {
		p.SetDebugName("FXAA")
		p.AttachRenderTargetID(gfx.SlotColor0, target)
		p.AttachResolveTexture(source)
		p.Exec(func(r gfx.PassRenderer, scope rendergraph.Scope) {
			r.SetProgram(prog)
			r.SetVertexInput(gfx.Buffer{}, gfx.Buffer{})
			r.SetTextures([]gfx.Texture{scope.ResolveTexture(source)})
			r.Draw(3, 0)
		})
	})
	return nil
}
