package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"

	"github.com/google/shlex"
)

// Encoder pipes raw RGBA frames into an ffmpeg process that muxes them with
// the source audio. One encoder per render; not safe for concurrent use.
type Encoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
}

// EncoderOptions configures a single encode.
type EncoderOptions struct {
	FFmpegBin  string
	ExtraArgs  string // shell-style, appended before the output path
	Width      int
	Height     int
	FPS        int
	AudioPath  string
	OutputPath string
}

// StartEncoder launches ffmpeg reading rawvideo from stdin. The context
// kills the process on cancel or timeout.
func StartEncoder(ctx context.Context, opts EncoderOptions) (*Encoder, error) {
	if _, err := exec.LookPath(opts.FFmpegBin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found: %s", opts.FFmpegBin)
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", strconv.Itoa(opts.FPS),
		"-i", "-",
		"-i", opts.AudioPath,
		"-c:v", "libx264",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
	}

	if opts.ExtraArgs != "" {
		extra, err := shlex.Split(opts.ExtraArgs)
		if err != nil {
			return nil, fmt.Errorf("invalid extra ffmpeg args: %w", err)
		}
		args = append(args, extra...)
	}
	args = append(args, opts.OutputPath)

	cmd := exec.CommandContext(ctx, opts.FFmpegBin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}

	enc := &Encoder{cmd: cmd, stdin: stdin}
	cmd.Stderr = &enc.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	return enc, nil
}

// WriteFrame sends one RGBA frame. The image must match the configured size.
func (e *Encoder) WriteFrame(img *image.RGBA) error {
	if _, err := e.stdin.Write(img.Pix); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close finishes the stream and waits for ffmpeg to exit. On failure the
// tail of stderr is included, which is where ffmpeg explains itself.
func (e *Encoder) Close() error {
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(e.stderr.String(), 500))
	}
	return nil
}

// Abort kills the process without waiting for a clean finish.
func (e *Encoder) Abort() {
	e.stdin.Close()
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	_ = e.cmd.Wait()
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
