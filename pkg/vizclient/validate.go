package vizclient

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// stepEpsilon absorbs float drift when checking whether a value sits on a
// step boundary.
const stepEpsilon = 1e-5

// FieldSpec describes the constraints of one form field, in the order the
// fields appear in the document. Validate walks specs in slice order and
// reports the first violation only.
type FieldSpec struct {
	Name         string
	FriendlyName string
	Tab          string
	Description  string

	Numeric  bool
	Min      *float64
	Max      *float64
	Step     string // "", "any", or a decimal step size
	Required bool
	Hidden   bool
}

// ValidationError is a locally recoverable submission error. It carries
// enough context to focus the offending field in a UI.
type ValidationError struct {
	Field        string
	FriendlyName string
	Tab          string
	Message      string
	Description  string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks the form against the specs. The audio attachment is
// checked first; field rules then run in spec order with the first failure
// returned. A nil result means the form is submittable.
func Validate(form *Form, specs []FieldSpec) *ValidationError {
	if !form.HasAudio() {
		return &ValidationError{
			Field:   AudioFieldName,
			Message: "Please select an audio file before submitting.",
		}
	}
	for _, spec := range specs {
		if spec.Hidden || spec.Name == "" {
			continue
		}
		value, ok := form.Value(spec.Name)
		if verr := checkField(spec, value, ok); verr != nil {
			return verr
		}
	}
	return nil
}

func checkField(spec FieldSpec, value string, present bool) *ValidationError {
	if spec.Numeric && present && strings.TrimSpace(value) != "" {
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(n) {
			return fail(spec, fmt.Sprintf("%s must be a number.", name(spec)))
		}
		if spec.Min != nil && n < *spec.Min {
			return fail(spec, fmt.Sprintf("%s must be at least %s.", name(spec), trimFloat(*spec.Min)))
		}
		if spec.Max != nil && n > *spec.Max {
			return fail(spec, fmt.Sprintf("%s must be at most %s.", name(spec), trimFloat(*spec.Max)))
		}
		if !onStep(spec, n) {
			return fail(spec, fmt.Sprintf("%s must be a multiple of %s.", name(spec), spec.Step))
		}
	}
	if spec.Required && (!present || strings.TrimSpace(value) == "") {
		return fail(spec, fmt.Sprintf("%s is required.", name(spec)))
	}
	return nil
}

// onStep reports whether n lies on a step boundary anchored at Min (or zero
// when no Min is set). Values within stepEpsilon of a boundary on either
// side are accepted.
func onStep(spec FieldSpec, n float64) bool {
	if spec.Step == "" || spec.Step == "any" {
		return true
	}
	step, err := strconv.ParseFloat(spec.Step, 64)
	if err != nil || step <= 0 {
		return true
	}
	base := 0.0
	if spec.Min != nil {
		base = *spec.Min
	}
	rem := math.Mod(n-base, step)
	if rem < 0 {
		rem += step
	}
	return rem <= stepEpsilon || step-rem <= stepEpsilon
}

func fail(spec FieldSpec, message string) *ValidationError {
	return &ValidationError{
		Field:        spec.Name,
		FriendlyName: spec.FriendlyName,
		Tab:          spec.Tab,
		Message:      message,
		Description:  spec.Description,
	}
}

func name(spec FieldSpec) string {
	if spec.FriendlyName != "" {
		return spec.FriendlyName
	}
	return spec.Name
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
