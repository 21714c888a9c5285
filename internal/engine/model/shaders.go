package model

import (
	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/lighting"
)

// Scene uniform block layout, in floats.
const (
	SceneProjection = 0
	SceneView       = 16
	SceneFloats     = 32
)

// Instance uniform block layout, in floats.
const (
	InstanceModel   = 0
	InstanceColor   = 16
	InstanceAmbient = 20
	// InstanceParams holds light count, lit flag and fudge flag.
	InstanceParams = 24
	InstanceLights = 28
	InstanceFloats = InstanceLights + lighting.MaxLights*lighting.LightFloats
)

const sceneBlock = `
layout (std140) uniform SceneParams {
	mat4 uProjection;
	mat4 uView;
};
`

const instanceBlock = `
struct Light {
	vec4 color;
	vec4 direction;
};

layout (std140) uniform InstanceParams {
	mat4 uModel;
	vec4 uColor;
	vec4 uAmbient;
	vec4 uParams;
	Light uLights[8];
};
`

const vertexShader = "#version 410 core\n" + sceneBlock + instanceBlock + `
layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;

out vec3 vNormal;
out vec2 vTexCoord;

void main() {
	vNormal = mat3(uModel) * aNormal;
	vTexCoord = aTexCoord;
	gl_Position = uProjection * uView * uModel * vec4(aPosition, 1.0);
}
`

const fragmentShaderBody = instanceBlock + `
uniform sampler2D uTexture;

in vec3 vNormal;
in vec2 vTexCoord;
out vec4 FragColor;

void main() {
	vec4 base = texture(uTexture, vTexCoord) * uColor;
#ifdef LIGHTING_FUDGE
	FragColor = base;
#else
	if (uParams.y < 0.5) {
		FragColor = base;
		return;
	}
	vec3 n = normalize(vNormal);
	vec3 light = uAmbient.rgb;
	for (int i = 0; i < int(uParams.x); i++) {
		light += uLights[i].color.rgb * max(dot(n, -uLights[i].direction.xyz), 0.0);
	}
	FragColor = vec4(base.rgb * min(light, vec3(1.0)), base.a);
#endif
}
`

var (
	litProgram = gfx.ProgramDesc{
		Name:     "model_lit",
		Vertex:   vertexShader,
		Fragment: "#version 410 core\n" + fragmentShaderBody,
	}
	fudgeProgram = gfx.ProgramDesc{
		Name:     "model_fudge",
		Vertex:   vertexShader,
		Fragment: "#version 410 core\n#define LIGHTING_FUDGE\n" + fragmentShaderBody,
	}
)

// ProgramFor returns the program a definition with hacks draws with.
func ProgramFor(hacks lighting.MaterialHacks) gfx.ProgramDesc {
	if hacks.LightingFudge {
		return fudgeProgram
	}
	return litProgram
}
