package model

// Visualizer styles
type Visualizer string

const (
	VisualizerBars     Visualizer = "bars"
	VisualizerWave     Visualizer = "wave"
	VisualizerCircular Visualizer = "circular"
	VisualizerCurves   Visualizer = "curves"
)

var ValidVisualizers = []Visualizer{
	VisualizerBars, VisualizerWave, VisualizerCircular, VisualizerCurves,
}

// Job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
)

// IsTerminal reports whether no further status changes can happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCanceled
}

// Error kinds reported through the status endpoint
type ErrorKind string

const (
	ErrorKindGeneric ErrorKind = "generic_error"
	ErrorKindShader  ErrorKind = "shader_error"
)

// Background modes
type BackgroundMode string

const (
	BackgroundNone   BackgroundMode = "none"
	BackgroundImage  BackgroundMode = "image"
	BackgroundShader BackgroundMode = "shader"
)

// Color schemes for the drawn visualization
type ColorScheme string

const (
	ColorSchemeClassic  ColorScheme = "classic"
	ColorSchemeNeon     ColorScheme = "neon"
	ColorSchemeSunset   ColorScheme = "sunset"
	ColorSchemeMono     ColorScheme = "mono"
	ColorSchemeSpectrum ColorScheme = "spectrum"
)

var ValidColorSchemes = []ColorScheme{
	ColorSchemeClassic, ColorSchemeNeon, ColorSchemeSunset,
	ColorSchemeMono, ColorSchemeSpectrum,
}
