package gldevice

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
)

// Uniform block names bound to the shared gfx bindings at link time.
var blockBindings = map[string]uint32{
	"SceneParams":    gfx.BindingScene,
	"InstanceParams": gfx.BindingInstance,
}

// Sampler uniforms mapped to texture units.
var samplerUnits = map[string]int32{
	"uTexture": 0,
}

// compileProgram compiles vertex and fragment shaders and links them into a
// program with its uniform blocks and samplers bound.
func compileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", gl.GoStr(&log[0]))
	}

	for name, binding := range blockBindings {
		idx := gl.GetUniformBlockIndex(program, gl.Str(name+"\x00"))
		if idx != gl.INVALID_INDEX {
			gl.UniformBlockBinding(program, idx, binding)
		}
	}
	gl.UseProgram(program)
	for name, unit := range samplerUnits {
		if loc := gl.GetUniformLocation(program, gl.Str(name+"\x00")); loc >= 0 {
			gl.Uniform1i(loc, unit)
		}
	}
	gl.UseProgram(0)

	return program, nil
}

// compileShader compiles a single shader of the given type.
func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, gl.GoStr(&log[0]))
	}

	return shader, nil
}
