package vizclient

import (
	"context"
	"fmt"
	"time"
)

// Status is one progress report for a job.
type Status struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
	ErrorType  string `json:"error_type,omitempty"`
	ShaderName string `json:"shader_name,omitempty"`
	ShaderPath string `json:"shader_path,omitempty"`
	Redirect   string `json:"redirect,omitempty"`
}

// Terminal reports whether the job will not change state again.
func (s *Status) Terminal() bool {
	return s.Status == "completed" || s.Status == "failed"
}

// PollConfig bounds a polling loop.
type PollConfig struct {
	Interval time.Duration
	MaxWait  time.Duration
}

const (
	defaultPollInterval = 2 * time.Second
	defaultPollMaxWait  = 15 * time.Minute
)

func (pc PollConfig) withDefaults() PollConfig {
	if pc.Interval <= 0 {
		pc.Interval = defaultPollInterval
	}
	if pc.MaxWait <= 0 {
		pc.MaxWait = defaultPollMaxWait
	}
	return pc
}

// Poll fetches job status until the job reaches a terminal state, the
// context is canceled, or MaxWait elapses. onUpdate, when non-nil, is
// invoked for every report including the terminal one. A completed job
// returns its final status; a failed job returns the status together with
// the classified *JobError.
//
// Each report is read in priority order: a redirect or error field marks
// failure regardless of the status value, then the status itself decides.
func (c *Client) Poll(ctx context.Context, jobID string, cfg PollConfig, onUpdate func(*Status)) (*Status, error) {
	cfg = cfg.withDefaults()
	deadline := time.Now().Add(cfg.MaxWait)

	for {
		st, err := c.JobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if onUpdate != nil {
			onUpdate(st)
		}

		switch {
		case st.Redirect != "" && st.Status != "completed":
			return st, classify(st)
		case st.Error != "" || st.Status == "failed":
			return st, classify(st)
		case st.Status == "completed":
			return st, nil
		}

		if time.Now().After(deadline) {
			return st, fmt.Errorf("job %s still %s after %s", jobID, st.Status, cfg.MaxWait)
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}
}
