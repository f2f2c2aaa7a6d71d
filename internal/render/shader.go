package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/tilemesh/pkg/math"
)

// The mesh program samples uv channel 0; further channels are bound for
// programs that read them.
const meshVertexShader = `#version 410 core
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec2 aUV;

uniform mat4 uViewProj;
uniform mat4 uModel;

out vec3 vNormal;
out float vHeight;

void main() {
    vNormal = aNormal;
    vHeight = aPosition.y;
    gl_Position = uViewProj * uModel * vec4(aPosition, 1.0);
}
`

const meshFragmentShader = `#version 410 core
in vec3 vNormal;
in float vHeight;

uniform vec3 uLightDir;

out vec4 FragColor;

void main() {
    vec3 n = length(vNormal) > 0.0 ? normalize(vNormal) : vec3(0.0, 1.0, 0.0);
    float diffuse = max(dot(n, normalize(uLightDir)), 0.0);
    vec3 base = mix(vec3(0.55, 0.57, 0.62), vec3(0.85, 0.86, 0.9), clamp(vHeight / 200.0, 0.0, 1.0));
    FragColor = vec4(base * (0.35 + 0.65 * diffuse), 1.0);
}
`

// Program draws registry meshes with a single directional light.
type Program struct {
	id       uint32
	viewProj int32
	model    int32
	lightDir int32
}

// NewProgram compiles the mesh shaders. It must run on the GL thread.
func NewProgram() (*Program, error) {
	id, err := compileProgram(meshVertexShader, meshFragmentShader)
	if err != nil {
		return nil, err
	}
	return &Program{
		id:       id,
		viewProj: uniform(id, "uViewProj"),
		model:    uniform(id, "uModel"),
		lightDir: uniform(id, "uLightDir"),
	}, nil
}

// Render clears the frame and draws every mesh in r.
func (p *Program) Render(r *Registry, viewProj math.Mat4, light math.Vec3) {
	gl.Enable(gl.DEPTH_TEST)
	gl.ClearColor(0.12, 0.13, 0.16, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(p.id)
	gl.UniformMatrix4fv(p.viewProj, 1, false, viewProj.Ptr())
	gl.Uniform3f(p.lightDir, light.X, light.Y, light.Z)
	r.Draw(func(model *math.Mat4) {
		gl.UniformMatrix4fv(p.model, 1, false, model.Ptr())
	})
	gl.UseProgram(0)
}

// Delete frees the program.
func (p *Program) Delete() {
	gl.DeleteProgram(p.id)
}

// compileProgram compiles vertex and fragment shaders and links them.
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
		return 0, fmt.Errorf("link: %s", string(log))
	}
	return program, nil
}

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
		return 0, fmt.Errorf("%s shader: %s", name, string(log))
	}
	return shader, nil
}

// uniform returns the location of name, or -1 if the program does not use it.
func uniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
