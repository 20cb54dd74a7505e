package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/vizwave/api/internal/model"
)

const TaskTypeRender = "render:process"

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("job not found")

// jobTTL keeps finished jobs queryable for a day, matching task retention.
const jobTTL = 24 * time.Hour

// JobService manages render job state in redis and dispatch through asynq.
type JobService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
}

func NewJobService(redisClient *redis.Client, asynqClient *asynq.Client) *JobService {
	return &JobService{
		redis:       redisClient,
		asynqClient: asynqClient,
	}
}

// Create stores a new queued job and enqueues its render task.
func (s *JobService) Create(ctx context.Context, payload *model.RenderJobPayload) (*model.UploadResponse, error) {
	jobID := uuid.New().String()
	now := time.Now()

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.Job{
		ID:        jobID,
		Status:    model.JobStatusQueued,
		Progress:  0,
		Payload:   payloadBytes,
		InputPath: payload.AudioPath,
		CreatedAt: now,
	}

	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newRenderTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("render"),
		asynq.MaxRetry(1),
		asynq.Retention(jobTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.UploadResponse{
		JobID:     jobID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

// Get returns the stored job.
func (s *JobService) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return s.getJob(ctx, jobID)
}

// GetStatus returns the public status snapshot for a job.
func (s *JobService) GetStatus(ctx context.Context, jobID string) (*model.StatusResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.StatusSnapshot(), nil
}

// Cancel requests cancellation. Queued jobs flip to canceled immediately;
// processing jobs get a cancel flag the worker checks between stages.
func (s *JobService) Cancel(ctx context.Context, jobID string) (*model.CancelResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status.IsTerminal() {
		return nil, fmt.Errorf("cannot cancel job in state: %s", job.Status)
	}

	if err := s.redis.Set(ctx, cancelKey(jobID), "1", jobTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to set cancel flag: %w", err)
	}

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusCanceled
		job.Message = "Canceled by user while in queue"
		if err := s.saveJob(ctx, job); err != nil {
			return nil, err
		}
	}

	return &model.CancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  job.Status,
	}, nil
}

// CancelRequested reports whether someone asked this job to stop.
func (s *JobService) CancelRequested(ctx context.Context, jobID string) bool {
	n, err := s.redis.Exists(ctx, cancelKey(jobID)).Result()
	return err == nil && n > 0
}

// MarkProcessing transitions a job out of the queue.
func (s *JobService) MarkProcessing(ctx context.Context, jobID string) error {
	return s.mutate(ctx, jobID, func(job *model.Job) {
		now := time.Now()
		job.Status = model.JobStatusProcessing
		job.StartedAt = &now
	})
}

// UpdateProgress records render progress and a human-readable step message.
func (s *JobService) UpdateProgress(ctx context.Context, jobID string, progress int, message string) error {
	return s.mutate(ctx, jobID, func(job *model.Job) {
		job.Progress = progress
		job.Message = message
	})
}

// Complete marks a job done and records where its output lives.
func (s *JobService) Complete(ctx context.Context, jobID, outputPath, outputURL string) error {
	return s.mutate(ctx, jobID, func(job *model.Job) {
		now := time.Now()
		job.Status = model.JobStatusCompleted
		job.Progress = 100
		job.Message = "Render complete"
		job.OutputPath = outputPath
		job.OutputURL = outputURL
		job.CompletedAt = &now
	})
}

// Fail marks a job failed with a typed error.
func (s *JobService) Fail(ctx context.Context, jobID, errMsg string, kind model.ErrorKind, shaderName, shaderPath string) error {
	return s.mutate(ctx, jobID, func(job *model.Job) {
		now := time.Now()
		job.Status = model.JobStatusFailed
		job.Error = &errMsg
		job.ErrorKind = kind
		job.ShaderName = shaderName
		job.ShaderPath = shaderPath
		job.CompletedAt = &now
	})
}

// MarkCanceled records that the worker observed the cancel flag mid-render.
func (s *JobService) MarkCanceled(ctx context.Context, jobID string) error {
	return s.mutate(ctx, jobID, func(job *model.Job) {
		now := time.Now()
		job.Status = model.JobStatusCanceled
		job.Message = "Canceled by user during render"
		job.CompletedAt = &now
	})
}

func (s *JobService) mutate(ctx context.Context, jobID string, fn func(*model.Job)) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	fn(job)
	return s.saveJob(ctx, job)
}

func (s *JobService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, jobTTL).Err()
}

func (s *JobService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func jobKey(jobID string) string    { return "job:" + jobID }
func cancelKey(jobID string) string { return "job:" + jobID + ":cancel" }

func newRenderTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": json.RawMessage(payload),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRender, data), nil
}
