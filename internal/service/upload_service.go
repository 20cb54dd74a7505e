package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	"github.com/vizwave/api/internal/config"
	"github.com/vizwave/api/internal/model"
	"github.com/vizwave/api/internal/render"
)

// UploadService persists multipart uploads into the work directory and
// probes them before a job is accepted.
type UploadService struct {
	cfg *config.UploadConfig
}

func NewUploadService(cfg *config.UploadConfig) (*UploadService, error) {
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	return &UploadService{cfg: cfg}, nil
}

var audioExts = map[string]bool{".wav": true, ".mp3": true}

var backgroundExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".glsl": true,
}

// SaveAudio writes the uploaded audio part to disk and decodes it far
// enough to confirm it is actually playable audio.
func (s *UploadService) SaveAudio(ctx context.Context, filename string, src io.Reader) (string, *model.AudioInfo, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !audioExts[ext] {
		return "", nil, fmt.Errorf("unsupported audio format %q, expected WAV or MP3", ext)
	}

	path, err := s.store(filename, src)
	if err != nil {
		return "", nil, err
	}

	info, err := render.ProbeAudio(path)
	if err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("audio file could not be decoded: %w", err)
	}
	if info.Duration <= 0 {
		os.Remove(path)
		return "", nil, fmt.Errorf("audio file contains no samples")
	}

	return path, info, nil
}

// SaveBackground writes the optional background part (image or .glsl file).
func (s *UploadService) SaveBackground(ctx context.Context, filename string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !backgroundExts[ext] {
		return "", fmt.Errorf("unsupported background format %q", ext)
	}
	return s.store(filename, src)
}

// Remove deletes a stored upload; used when job creation fails after the
// parts were already written.
func (s *UploadService) Remove(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func (s *UploadService) store(filename string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	name := fmt.Sprintf("%s%s", shortuuid.New(), ext)
	path := filepath.Join(s.cfg.WorkDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}
