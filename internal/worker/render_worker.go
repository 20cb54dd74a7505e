package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/lithammer/shortuuid/v4"

	"github.com/vizwave/api/internal/capacity"
	"github.com/vizwave/api/internal/client"
	"github.com/vizwave/api/internal/config"
	"github.com/vizwave/api/internal/model"
	"github.com/vizwave/api/internal/render"
	"github.com/vizwave/api/internal/service"
	"github.com/vizwave/api/internal/shader"
	"github.com/vizwave/api/internal/websocket"
)

// cancelCheckEvery bounds how stale a cancel request can get mid-encode.
const cancelCheckEvery = 30 // frames

// RenderWorker processes render jobs pulled from the asynq queue.
type RenderWorker struct {
	jobService *service.JobService
	catalog    *shader.Catalog
	storage    client.StorageClient
	hub        *websocket.Hub
	cfg        *config.Config
}

func NewRenderWorker(jobService *service.JobService, catalog *shader.Catalog, storage client.StorageClient, hub *websocket.Hub, cfg *config.Config) *RenderWorker {
	return &RenderWorker{
		jobService: jobService,
		catalog:    catalog,
		storage:    storage,
		hub:        hub,
		cfg:        cfg,
	}
}

// ProcessTask runs the full analyze -> draw -> encode pipeline for one job.
func (w *RenderWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting render job: %s", jobID)

	var payload model.RenderJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid job payload", model.ErrorKindGeneric, "", "")
		return fmt.Errorf("failed to unmarshal render payload: %w", err)
	}

	if w.jobService.CancelRequested(ctx, jobID) {
		log.Printf("Render job %s was canceled before processing", jobID)
		return w.jobService.MarkCanceled(ctx, jobID)
	}

	if err := capacity.Check(&w.cfg.Capacity, w.cfg.Render.OutputDir); err != nil {
		// Let asynq retry once; the box may just be busy.
		log.Printf("Render job %s deferred: %v", jobID, err)
		return fmt.Errorf("insufficient capacity: %w", err)
	}

	if err := w.jobService.MarkProcessing(ctx, jobID); err != nil {
		return err
	}

	renderCtx, cancel := context.WithTimeout(ctx, time.Duration(w.cfg.Render.TimeoutSec)*time.Second)
	defer cancel()

	err := w.renderJob(renderCtx, jobID, &payload)
	switch {
	case err == nil:
		log.Printf("Render job %s completed", jobID)
		return nil
	case errors.Is(err, errCanceled):
		log.Printf("Render job %s canceled mid-render", jobID)
		return w.jobService.MarkCanceled(ctx, jobID)
	default:
		var compileErr *shader.CompileError
		if errors.As(err, &compileErr) {
			shaderPath := payload.BackgroundPath
			if shaderPath == "" {
				shaderPath = "shaders/" + compileErr.Name
			}
			w.failJob(ctx, jobID, compileErr.Error(), model.ErrorKindShader, compileErr.Name, shaderPath)
		} else {
			w.failJob(ctx, jobID, err.Error(), model.ErrorKindGeneric, "", "")
		}
		log.Printf("Render job %s failed: %v", jobID, err)
		// The failure is recorded on the job; retrying would redo a
		// deterministic pipeline, so consume the task.
		return nil
	}
}

var errCanceled = errors.New("render canceled")

func (w *RenderWorker) renderJob(ctx context.Context, jobID string, payload *model.RenderJobPayload) error {
	settings := &payload.Settings

	w.progress(ctx, jobID, 2, "Decoding audio...")
	audio, err := render.DecodeAudio(payload.AudioPath)
	if err != nil {
		return fmt.Errorf("audio decode failed: %w", err)
	}

	w.progress(ctx, jobID, 5, "Preparing background...")
	background, err := w.resolveBackground(payload)
	if err != nil {
		return err
	}

	bands := settings.BarCount
	if bands == 0 {
		bands = 64
	}
	analyzer := render.NewAnalyzer(audio, settings.FPS, bands, settings.Smoothing, settings.Sensitivity)
	drawer := render.NewDrawer(settings)
	totalFrames := analyzer.TotalFrames()
	if totalFrames == 0 {
		return fmt.Errorf("audio produced no frames")
	}

	if err := os.MkdirAll(w.cfg.Render.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(w.cfg.Render.OutputDir, fmt.Sprintf("%s_%s.mp4", jobID, shortuuid.New()))

	encoder, err := render.StartEncoder(ctx, render.EncoderOptions{
		FFmpegBin:  w.cfg.Render.FFmpegBin,
		ExtraArgs:  w.cfg.Render.FFmpegArgs,
		Width:      settings.Width,
		Height:     settings.Height,
		FPS:        settings.FPS,
		AudioPath:  payload.AudioPath,
		OutputPath: outputPath,
	})
	if err != nil {
		return err
	}

	w.progress(ctx, jobID, 8, "Rendering frames...")
	lastReported := 8
	for i := 0; i < totalFrames; i++ {
		if i%cancelCheckEvery == 0 {
			if w.jobService.CancelRequested(ctx, jobID) {
				encoder.Abort()
				os.Remove(outputPath)
				return errCanceled
			}
			if err := ctx.Err(); err != nil {
				encoder.Abort()
				os.Remove(outputPath)
				return fmt.Errorf("render timed out: %w", err)
			}
		}

		frame := analyzer.Analyze(i)
		img := drawer.Draw(frame, background)
		if err := encoder.WriteFrame(img); err != nil {
			encoder.Abort()
			os.Remove(outputPath)
			return err
		}

		// 8..90 across the frame loop, reported in whole percents only.
		p := 8 + i*82/totalFrames
		if p > lastReported {
			lastReported = p
			w.progress(ctx, jobID, p, fmt.Sprintf("Rendering frames (%d/%d)...", i+1, totalFrames))
		}
	}

	w.progress(ctx, jobID, 92, "Encoding video...")
	if err := encoder.Close(); err != nil {
		os.Remove(outputPath)
		return err
	}

	outputURL := ""
	if w.storage != nil {
		w.progress(ctx, jobID, 96, "Publishing video...")
		f, err := os.Open(outputPath)
		if err != nil {
			return fmt.Errorf("failed to reopen output: %w", err)
		}
		key := "renders/" + filepath.Base(outputPath)
		outputURL, err = w.storage.Upload(ctx, key, f, "video/mp4")
		f.Close()
		if err != nil {
			// Local file still exists; stream/download keep working.
			log.Printf("Render job %s: storage upload failed: %v", jobID, err)
			outputURL = ""
		}
	}

	if err := w.jobService.Complete(ctx, jobID, outputPath, outputURL); err != nil {
		return err
	}
	w.hub.BroadcastComplete(jobID, outputURL)
	return nil
}

// resolveBackground turns the job's background settings into a drawable
// image. Shader backgrounds must validate; a broken shader is the one
// failure that gets its own error type and redirect page.
func (w *RenderWorker) resolveBackground(payload *model.RenderJobPayload) (image.Image, error) {
	settings := &payload.Settings

	switch settings.BackgroundMode {
	case model.BackgroundImage:
		if payload.BackgroundPath == "" {
			return nil, fmt.Errorf("background mode is image but no file was uploaded")
		}
		return render.LoadBackgroundImage(payload.BackgroundPath, settings.Width, settings.Height)

	case model.BackgroundShader:
		// Uploaded .glsl file takes precedence over a catalog name.
		if strings.HasSuffix(strings.ToLower(payload.BackgroundPath), ".glsl") {
			source, err := os.ReadFile(payload.BackgroundPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read uploaded shader: %w", err)
			}
			name := filepath.Base(payload.BackgroundPath)
			if settings.BackgroundShader != "" {
				name = settings.BackgroundShader
			}
			if err := shader.Validate(name, string(source)); err != nil {
				return nil, err
			}
			return render.ShaderBackdrop(&shader.Entry{
				Info:   model.ShaderInfo{Name: name, Path: payload.BackgroundPath},
				Source: string(source),
			}, settings.Width, settings.Height), nil
		}

		entry, ok := w.catalog.Get(settings.BackgroundShader)
		if !ok {
			return nil, &shader.CompileError{
				Name:   settings.BackgroundShader,
				Detail: "shader not found in catalog",
			}
		}
		return render.ShaderBackdrop(entry, settings.Width, settings.Height), nil

	default:
		return nil, nil
	}
}

func (w *RenderWorker) progress(ctx context.Context, jobID string, progress int, message string) {
	if err := w.jobService.UpdateProgress(ctx, jobID, progress, message); err != nil {
		log.Printf("Failed to update progress for %s: %v", jobID, err)
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusProcessing, message)
}

func (w *RenderWorker) failJob(ctx context.Context, jobID, errMsg string, kind model.ErrorKind, shaderName, shaderPath string) {
	if err := w.jobService.Fail(ctx, jobID, errMsg, kind, shaderName, shaderPath); err != nil {
		log.Printf("Failed to mark job %s as failed: %v", jobID, err)
	}
	w.hub.BroadcastError(jobID, kind, errMsg, shaderName)
}
