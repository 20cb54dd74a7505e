package model

import "time"

// Job represents a render job in the system. It is the single source of
// truth mutated by the server and worker; clients only read snapshots
// through the status endpoint.
type Job struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message,omitempty"`
	Error       *string    `json:"error,omitempty"`
	ErrorKind   ErrorKind  `json:"errorKind,omitempty"`
	ShaderName  string     `json:"shaderName,omitempty"`
	ShaderPath  string     `json:"shaderPath,omitempty"`
	Payload     []byte     `json:"-"` // Stored as JSON
	InputPath   string     `json:"-"`
	OutputPath  string     `json:"-"`
	OutputURL   string     `json:"outputUrl,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
}

// RenderJobPayload contains everything the worker needs to render a job.
type RenderJobPayload struct {
	Settings       RenderSettings `json:"settings"`
	AudioPath      string         `json:"audioPath"`
	BackgroundPath string         `json:"backgroundPath,omitempty"`
}

// RenderSettings is the visualizer configuration collected from the upload
// form. Numeric bounds mirror the min/max/step attributes the form declares.
type RenderSettings struct {
	Visualizer       Visualizer     `json:"visualizer" validate:"required,oneof=bars wave circular curves"`
	ColorScheme      ColorScheme    `json:"colorScheme" validate:"required,oneof=classic neon sunset mono spectrum"`
	Width            int            `json:"width" validate:"required,min=160,max=3840"`
	Height           int            `json:"height" validate:"required,min=120,max=2160"`
	FPS              int            `json:"fps" validate:"required,min=10,max=60"`
	BarCount         int            `json:"barCount" validate:"omitempty,min=8,max=256"`
	Smoothing        float64        `json:"smoothing" validate:"min=0,max=1"`
	Sensitivity      float64        `json:"sensitivity" validate:"min=0.1,max=10"`
	MirrorSpectrum   bool           `json:"mirrorSpectrum"`
	BackgroundMode   BackgroundMode `json:"backgroundMode" validate:"required,oneof=none image shader"`
	BackgroundShader string         `json:"backgroundShader,omitempty"`
}

// StatusResponse is the snapshot served by GET /job_status/:jobId.
// Canceled jobs are reported as failed; the public status enum has four
// values and canceled exists only internally.
type StatusResponse struct {
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorType  string    `json:"error_type,omitempty"`
	ShaderName string    `json:"shader_name,omitempty"`
	ShaderPath string    `json:"shader_path,omitempty"`
	Redirect   string    `json:"redirect,omitempty"`
}

// StatusSnapshot converts a job into its public status representation.
func (j *Job) StatusSnapshot() *StatusResponse {
	resp := &StatusResponse{
		JobID:    j.ID,
		Progress: j.Progress,
		Message:  j.Message,
	}

	switch j.Status {
	case JobStatusCanceled:
		resp.Status = JobStatusFailed
		if resp.Message == "" {
			resp.Message = "Job was canceled"
		}
	default:
		resp.Status = j.Status
	}

	if j.Error != nil {
		resp.Error = *j.Error
	}
	if j.ErrorKind != "" {
		resp.ErrorType = string(j.ErrorKind)
	}
	if j.ErrorKind == ErrorKindShader {
		resp.ShaderName = j.ShaderName
		resp.ShaderPath = j.ShaderPath
		resp.Redirect = "/shader-error/" + j.ShaderName
	}

	return resp
}

// CancelResponse is returned by POST /cancel/:jobId.
type CancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
}
