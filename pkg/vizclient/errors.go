package vizclient

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind discriminates job failures so callers can route shader compile
// failures to a dedicated page instead of a generic banner.
type Kind string

const (
	KindGeneric Kind = "generic_error"
	KindShader  Kind = "shader_error"
)

// JobError is a terminal job failure reported by the server.
type JobError struct {
	Kind       Kind
	Message    string
	ShaderName string
	ShaderPath string
	Redirect   string
}

func (e *JobError) Error() string {
	return e.Message
}

// IsShader reports whether err is a shader compile failure.
func IsShader(err error) bool {
	je, ok := err.(*JobError)
	return ok && je.Kind == KindShader
}

var shaderFileRe = regexp.MustCompile(`([\w./\\-]+\.glsl)`)

// classify builds a JobError from a status report. The typed error_type
// field wins when present; older servers only send a message, so shader
// failures are then recognized by their text and the shader name recovered
// from it.
func classify(st *Status) *JobError {
	message := st.Error
	if message == "" {
		message = st.Message
	}
	if message == "" {
		message = "Processing failed."
	}
	je := &JobError{
		Kind:       KindGeneric,
		Message:    message,
		ShaderName: st.ShaderName,
		ShaderPath: st.ShaderPath,
		Redirect:   st.Redirect,
	}
	switch {
	case st.ErrorType != "":
		if st.ErrorType == string(KindShader) {
			je.Kind = KindShader
		}
	case looksLikeShaderError(message):
		je.Kind = KindShader
	}
	if je.Kind == KindShader && je.ShaderName == "" {
		je.ShaderName = shaderNameFromText(message)
	}
	if je.Kind == KindShader && je.Redirect == "" && je.ShaderName != "" {
		je.Redirect = "/shader-error/" + je.ShaderName
	}
	return je
}

func looksLikeShaderError(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "shader") || strings.Contains(lower, ".glsl")
}

// shaderNameFromText pulls a shader filename out of free-form error text,
// e.g. "SHADER ERROR: foo.glsl line 12" yields "foo.glsl". Path prefixes
// are stripped so the name can address the error page route.
func shaderNameFromText(message string) string {
	m := shaderFileRe.FindString(message)
	if m == "" {
		return ""
	}
	if i := strings.LastIndexAny(m, `/\`); i >= 0 {
		m = m[i+1:]
	}
	return m
}

// ServerError is a failed upload or status request.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

func serverError(statusCode int, message string) *ServerError {
	if message == "" {
		message = fmt.Sprintf("Server error: %d", statusCode)
	}
	return &ServerError{StatusCode: statusCode, Message: message}
}
