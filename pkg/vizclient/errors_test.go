package vizclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShaderNameFromText(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"SHADER ERROR: foo.glsl line 12: syntax error", "foo.glsl"},
		{"SHADER ERROR: shaders/voronoi_fire.glsl line 3: bad token", "voronoi_fire.glsl"},
		{`failed to open C:\work\bg.glsl`, "bg.glsl"},
		{"plain failure without any file", ""},
		{"the shader stage crashed", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, shaderNameFromText(tc.text), tc.text)
	}
}

func TestClassify_TypedFieldWinsOverText(t *testing.T) {
	// The message mentions a shader, but the server explicitly tagged
	// the failure as generic.
	je := classify(&Status{
		Status:    "failed",
		Error:     "could not read shader cache",
		ErrorType: "generic_error",
	})
	assert.Equal(t, KindGeneric, je.Kind)
}

func TestClassify_UntaggedShaderMessage(t *testing.T) {
	je := classify(&Status{
		Status: "failed",
		Error:  "SHADER ERROR: aurora.glsl line 7: undeclared identifier",
	})
	assert.Equal(t, KindShader, je.Kind)
	assert.Equal(t, "aurora.glsl", je.ShaderName)
	assert.Equal(t, "/shader-error/aurora.glsl", je.Redirect)
}

func TestClassify_EmptyReportGetsFallbackMessage(t *testing.T) {
	je := classify(&Status{Status: "failed"})
	assert.Equal(t, KindGeneric, je.Kind)
	assert.Equal(t, "Processing failed.", je.Message)
}

func TestClassify_ServerFieldsPreserved(t *testing.T) {
	je := classify(&Status{
		Status:     "failed",
		Error:      "compile failed",
		ErrorType:  "shader_error",
		ShaderName: "plasma.glsl",
		ShaderPath: "shaders/plasma.glsl",
		Redirect:   "/shader-error/plasma.glsl",
	})
	assert.Equal(t, KindShader, je.Kind)
	assert.Equal(t, "plasma.glsl", je.ShaderName)
	assert.Equal(t, "shaders/plasma.glsl", je.ShaderPath)
	assert.Equal(t, "/shader-error/plasma.glsl", je.Redirect)
}
