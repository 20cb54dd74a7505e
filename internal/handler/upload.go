package handler

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/vizwave/api/internal/model"
	"github.com/vizwave/api/internal/service"
	"github.com/vizwave/api/internal/shader"
	"github.com/vizwave/api/pkg/response"
)

type UploadHandler struct {
	uploads   *service.UploadService
	jobs      *service.JobService
	catalog   *shader.Catalog
	validator *validator.Validate
	maxAudio  int64
	maxBg     int64
}

func NewUploadHandler(uploads *service.UploadService, jobs *service.JobService, catalog *shader.Catalog, v *validator.Validate, maxAudio, maxBg int64) *UploadHandler {
	return &UploadHandler{
		uploads:   uploads,
		jobs:      jobs,
		catalog:   catalog,
		validator: v,
		maxAudio:  maxAudio,
		maxBg:     maxBg,
	}
}

// Upload handles POST /upload: one required audio part, an optional
// background part, and the visualizer configuration as form fields.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	settings, err := parseSettings(c)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}

	if err := h.validator.Struct(settings); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	audioFile, err := c.FormFile("audio")
	if err != nil {
		return response.ValidationError(c, "Audio file is required", nil)
	}
	if audioFile.Size > h.maxAudio {
		return response.ValidationError(c, "Audio file exceeds size limit", map[string]interface{}{
			"maxSize":  h.maxAudio,
			"fileSize": audioFile.Size,
		})
	}

	af, err := audioFile.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open audio upload")
	}
	defer af.Close()

	audioPath, audioInfo, err := h.uploads.SaveAudio(c.Context(), audioFile.Filename, af)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}
	log.Printf("Accepted audio upload %s (%.1fs, %dHz)", audioFile.Filename, audioInfo.Duration, audioInfo.SampleRate)

	backgroundPath := ""
	if bgFile, err := c.FormFile("background"); err == nil && bgFile != nil {
		if bgFile.Size > h.maxBg {
			h.uploads.Remove(audioPath)
			return response.ValidationError(c, "Background file exceeds size limit", nil)
		}
		bf, err := bgFile.Open()
		if err != nil {
			h.uploads.Remove(audioPath)
			return response.ServiceError(c, "Failed to open background upload")
		}
		backgroundPath, err = h.uploads.SaveBackground(c.Context(), bgFile.Filename, bf)
		bf.Close()
		if err != nil {
			h.uploads.Remove(audioPath)
			return response.ValidationError(c, err.Error(), nil)
		}
	}

	if err := h.checkBackground(settings, backgroundPath); err != nil {
		h.uploads.Remove(audioPath)
		h.uploads.Remove(backgroundPath)
		return response.ValidationError(c, err.Error(), nil)
	}

	payload := &model.RenderJobPayload{
		Settings:       *settings,
		AudioPath:      audioPath,
		BackgroundPath: backgroundPath,
	}

	result, err := h.jobs.Create(c.Context(), payload)
	if err != nil {
		h.uploads.Remove(audioPath)
		h.uploads.Remove(backgroundPath)
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// checkBackground rejects configurations the worker could only fail on:
// image mode without a file, or a catalog shader that does not exist.
func (h *UploadHandler) checkBackground(settings *model.RenderSettings, backgroundPath string) error {
	switch settings.BackgroundMode {
	case model.BackgroundImage:
		if backgroundPath == "" {
			return fmt.Errorf("background mode is image but no background file was uploaded")
		}
	case model.BackgroundShader:
		if strings.HasSuffix(strings.ToLower(backgroundPath), ".glsl") {
			return nil // user-supplied shader, validated by the worker
		}
		if settings.BackgroundShader == "" {
			return fmt.Errorf("background mode is shader but no shader was selected")
		}
		if _, ok := h.catalog.Get(settings.BackgroundShader); !ok {
			return fmt.Errorf("unknown background shader %q", settings.BackgroundShader)
		}
	}
	return nil
}

// parseSettings coerces the flat form fields into render settings. Browser
// form conventions apply: checkboxes arrive as "on"/"off", numbers as
// decimal strings.
func parseSettings(c *fiber.Ctx) (*model.RenderSettings, error) {
	settings := &model.RenderSettings{
		Visualizer:       model.Visualizer(formDefault(c, "visualizer", "bars")),
		ColorScheme:      model.ColorScheme(formDefault(c, "color_scheme", "classic")),
		BackgroundMode:   model.BackgroundMode(formDefault(c, "background_mode", "none")),
		BackgroundShader: c.FormValue("background_shader"),
		MirrorSpectrum:   c.FormValue("mirror_spectrum") == "on",
	}

	var err error
	if settings.Width, err = formInt(c, "width", 1280); err != nil {
		return nil, err
	}
	if settings.Height, err = formInt(c, "height", 720); err != nil {
		return nil, err
	}
	if settings.FPS, err = formInt(c, "fps", 30); err != nil {
		return nil, err
	}
	if settings.BarCount, err = formInt(c, "bar_count", 64); err != nil {
		return nil, err
	}
	if settings.Smoothing, err = formFloat(c, "smoothing", 0.6); err != nil {
		return nil, err
	}
	if settings.Sensitivity, err = formFloat(c, "sensitivity", 1.0); err != nil {
		return nil, err
	}

	return settings, nil
}

func formDefault(c *fiber.Ctx, name, fallback string) string {
	if v := c.FormValue(name); v != "" {
		return v
	}
	return fallback
}

func formInt(c *fiber.Ctx, name string, fallback int) (int, error) {
	v := c.FormValue(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("field %q must be an integer", name)
	}
	return n, nil
}

func formFloat(c *fiber.Ctx, name string, fallback float64) (float64, error) {
	v := c.FormValue(name)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("field %q must be a number", name)
	}
	return f, nil
}

func formatValidationErrors(err error) []map[string]string {
	var details []map[string]string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, ve := range verrs {
			details = append(details, map[string]string{
				"field": ve.Field(),
				"tag":   ve.Tag(),
				"param": ve.Param(),
			})
		}
	}
	return details
}
