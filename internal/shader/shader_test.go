package shader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileError_Message(t *testing.T) {
	err := &CompileError{Name: "foo.glsl", Line: 12, Detail: "undeclared identifier"}
	assert.Equal(t, "SHADER ERROR: foo.glsl line 12: undeclared identifier", err.Error())

	err = &CompileError{Name: "foo.glsl", Detail: "missing mainImage entry point"}
	assert.Equal(t, "SHADER ERROR: foo.glsl: missing mainImage entry point", err.Error())
}

func TestParseInfoLog(t *testing.T) {
	log := "WARNING: 0:3: extension not supported\nERROR: 0:12: 'foo' : undeclared identifier\nERROR: 0:14: syntax error"
	ce := ParseInfoLog("nebula.glsl", log)
	assert.Equal(t, "nebula.glsl", ce.Name)
	assert.Equal(t, 12, ce.Line)
	assert.Equal(t, "'foo' : undeclared identifier", ce.Detail)
}

func TestParseInfoLog_UnparseableKeptVerbatim(t *testing.T) {
	ce := ParseInfoLog("x.glsl", "internal compiler failure")
	assert.Equal(t, 0, ce.Line)
	assert.Equal(t, "internal compiler failure", ce.Detail)
}

func TestValidate(t *testing.T) {
	valid := `// Test
void mainImage(out vec4 fragColor, in vec2 fragCoord) {
	fragColor = vec4(fragCoord / iResolution.xy, 0.5, 1.0);
}`
	assert.NoError(t, Validate("ok.glsl", valid))

	cases := []struct {
		name   string
		source string
		detail string
		line   int
	}{
		{
			"missing entry point",
			"void main() { gl_FragColor = vec4(1.0); }",
			"missing mainImage entry point", 0,
		},
		{
			"unbalanced open brace",
			"void mainImage(out vec4 c, in vec2 p) {\n  c = vec4(1.0);\n",
			"unbalanced braces", 0,
		},
		{
			"stray closing brace",
			"void mainImage(out vec4 c, in vec2 p) {}\n}\n",
			"unbalanced closing brace", 2,
		},
		{
			"uniform outside the contract",
			"uniform sampler2D iChannel1;\nvoid mainImage(out vec4 c, in vec2 p) {}",
			`uniform "iChannel1" is not provided by the renderer`, 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate("bad.glsl", tc.source)
			require.Error(t, err)
			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.detail, ce.Detail)
			assert.Equal(t, tc.line, ce.Line)
		})
	}
}

func TestValidate_AllowedUniforms(t *testing.T) {
	source := `uniform vec3 iResolution;
uniform float iTime;
uniform sampler2D iChannel0;
void mainImage(out vec4 c, in vec2 p) { c = vec4(iTime); }`
	assert.NoError(t, Validate("ok.glsl", source))
}

func TestNewCatalog_BundleIsValid(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	list := c.List()
	require.NotEmpty(t, list)

	// Sorted by name and fully described.
	for i, info := range list {
		if i > 0 {
			assert.Less(t, list[i-1].Name, info.Name)
		}
		assert.NotEmpty(t, info.Title, info.Name)
		assert.NotEmpty(t, info.Category, info.Name)
		assert.Equal(t, "shaders/"+info.Name, info.Path)
	}

	entry, ok := c.Get("plasma.glsl")
	require.True(t, ok)
	assert.Contains(t, entry.Source, "mainImage")

	_, ok = c.Get("missing.glsl")
	assert.False(t, ok)
}

func TestParseMetadata(t *testing.T) {
	source := `// Plasma Waves
// category: procedural
// Slowly shifting sine-interference color field.
// Runs everywhere.

void mainImage(out vec4 c, in vec2 p) {}`
	info := parseMetadata("plasma.glsl", source)
	assert.Equal(t, "Plasma Waves", info.Title)
	assert.Equal(t, "procedural", info.Category)
	assert.Equal(t, "Slowly shifting sine-interference color field. Runs everywhere.", info.Description)
}

func TestParseMetadata_NoHeaderFallsBackToFilename(t *testing.T) {
	info := parseMetadata("tunnel.glsl", "void mainImage(out vec4 c, in vec2 p) {}")
	assert.Equal(t, "tunnel", info.Title)
}
