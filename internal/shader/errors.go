package shader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CompileError describes a shader that failed validation or compilation.
// Its message format is the one the status endpoint and error pages key on.
type CompileError struct {
	Name   string
	Line   int
	Detail string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("SHADER ERROR: %s line %d: %s", e.Name, e.Line, e.Detail)
	}
	return fmt.Sprintf("SHADER ERROR: %s: %s", e.Name, e.Detail)
}

// infoLogLine matches GLSL driver info-log lines such as
// "ERROR: 0:12: 'foo' : undeclared identifier".
var infoLogLine = regexp.MustCompile(`ERROR:\s*\d+:(\d+):\s*(.+)`)

// ParseInfoLog extracts the first error from a GLSL compile info log.
// Drivers disagree on log formats, so anything unparseable is kept verbatim
// as the detail.
func ParseInfoLog(name, infoLog string) *CompileError {
	for _, line := range strings.Split(infoLog, "\n") {
		m := infoLogLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lineNo, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return &CompileError{Name: name, Line: lineNo, Detail: strings.TrimSpace(m[2])}
	}
	return &CompileError{Name: name, Detail: strings.TrimSpace(infoLog)}
}

// Uniforms the host renderer provides; anything else is a contract break.
var allowedUniforms = map[string]bool{
	"iResolution": true,
	"iTime":       true,
	"iChannel0":   true,
}

var uniformDecl = regexp.MustCompile(`uniform\s+\w+\s+(\w+)\s*;`)

// Validate performs static checks on a shader source: the mainImage entry
// point must exist, braces must balance, and uniform declarations must stay
// within the host contract. Line numbers in returned errors are 1-based.
func Validate(name, source string) error {
	if !strings.Contains(source, "mainImage") {
		return &CompileError{Name: name, Detail: "missing mainImage entry point"}
	}

	depth := 0
	for i, line := range strings.Split(source, "\n") {
		for _, r := range line {
			switch r {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth < 0 {
				return &CompileError{Name: name, Line: i + 1, Detail: "unbalanced closing brace"}
			}
		}

		if m := uniformDecl.FindStringSubmatch(line); m != nil {
			if !allowedUniforms[m[1]] {
				return &CompileError{
					Name:   name,
					Line:   i + 1,
					Detail: fmt.Sprintf("uniform %q is not provided by the renderer", m[1]),
				}
			}
		}
	}
	if depth != 0 {
		return &CompileError{Name: name, Detail: "unbalanced braces"}
	}
	return nil
}
