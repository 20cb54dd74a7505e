package handler

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vizwave/api/internal/client"
	"github.com/vizwave/api/internal/model"
	"github.com/vizwave/api/internal/service"
	"github.com/vizwave/api/pkg/response"
)

type JobHandler struct {
	jobs    *service.JobService
	storage client.StorageClient
}

func NewJobHandler(jobs *service.JobService, storage client.StorageClient) *JobHandler {
	return &JobHandler{jobs: jobs, storage: storage}
}

// Status handles GET /job_status/:jobId
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	snapshot, err := h.jobs.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, snapshot)
}

// Stream handles GET /stream/:jobId — serves the rendered video inline
// with range support so browsers can seek.
func (h *JobHandler) Stream(c *fiber.Ctx) error {
	job, err := h.completedJob(c)
	if job == nil {
		return err
	}

	// Prefer object storage when the video was published there.
	if h.storage != nil && job.OutputURL != "" {
		signed, err := h.storage.GetSignedURL(c.Context(), "renders/"+filepath.Base(job.OutputPath), time.Hour)
		if err == nil {
			return c.Redirect(signed, fiber.StatusTemporaryRedirect)
		}
	}

	c.Set(fiber.HeaderContentType, "video/mp4")
	return c.SendFile(job.OutputPath)
}

// Download handles GET /download/:jobId — same file, as an attachment.
func (h *JobHandler) Download(c *fiber.Ctx) error {
	job, err := h.completedJob(c)
	if job == nil {
		return err
	}
	return c.Download(job.OutputPath, fmt.Sprintf("visualization_%s.mp4", job.ID[:8]))
}

// Cancel handles POST /cancel/:jobId
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.jobs.Cancel(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ValidationError(c, err.Error(), nil)
	}

	return response.OK(c, result)
}

// completedJob loads a job that must be completed with an output file. On
// any failure it writes the response itself and returns a nil job.
func (h *JobHandler) completedJob(c *fiber.Ctx) (*model.Job, error) {
	jobID := c.Params("jobId")
	if jobID == "" {
		return nil, response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.jobs.Get(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return nil, response.NotFound(c, "Job not found")
		}
		return nil, response.ServiceError(c, err.Error())
	}

	if job.Status != model.JobStatusCompleted || job.OutputPath == "" {
		return nil, response.ValidationError(c, "Job is not completed yet", nil)
	}
	return job, nil
}
