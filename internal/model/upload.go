package model

import "time"

// UploadResponse is returned by POST /upload once a job is queued.
type UploadResponse struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// AudioInfo describes a probed input file.
type AudioInfo struct {
	Format     string  `json:"format"` // "wav" or "mp3"
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sampleRate"`
	Channels   int     `json:"channels"`
}

// ShaderInfo is the catalog entry served by the shader explorer.
type ShaderInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Path        string `json:"path"`
}

// ShaderPreview is the full preview served for a single shader.
type ShaderPreview struct {
	ShaderInfo
	Source string `json:"source"`
}
