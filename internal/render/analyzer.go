package render

import (
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/mjibson/go-dsp/fft"

	"github.com/vizwave/api/internal/model"
)

// fftSize is the analysis window per video frame. 2048 samples at 44.1kHz
// spans ~46ms, enough for the lowest band the visualizers draw.
const fftSize = 2048

// Audio holds decoded mono samples in [-1, 1].
type Audio struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the audio length in seconds.
func (a *Audio) Duration() float64 {
	if a.SampleRate == 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// DecodeAudio reads a WAV or MP3 file into mono samples. Stereo sources are
// averaged down; the container is picked by file extension.
func DecodeAudio(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", filepath.Ext(path))
	}
}

func decodeWAV(f *os.File) (*Audio, error) {
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, fmt.Errorf("wav file has no format chunk")
	}

	channels := buf.Format.NumChannels
	scale := math.Pow(2, float64(dec.BitDepth-1))
	if scale == 0 {
		scale = 1 << 15
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch]) / scale
		}
		samples[i] = sum / float64(channels)
	}

	return &Audio{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

func decodeMP3(f *os.File) (*Audio, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to read mp3 stream: %w", err)
	}

	// go-mp3 always yields 16-bit little-endian stereo.
	frames := len(raw) / 4
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := int16(uint16(raw[i*4]) | uint16(raw[i*4+1])<<8)
		r := int16(uint16(raw[i*4+2]) | uint16(raw[i*4+3])<<8)
		samples[i] = (float64(l) + float64(r)) / 2 / 32768
	}

	return &Audio{Samples: samples, SampleRate: dec.SampleRate()}, nil
}

// ProbeAudio decodes just enough to describe an uploaded file.
func ProbeAudio(path string) (*model.AudioInfo, error) {
	a, err := DecodeAudio(path)
	if err != nil {
		return nil, err
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return &model.AudioInfo{
		Format:     format,
		Duration:   a.Duration(),
		SampleRate: a.SampleRate,
		Channels:   1,
	}, nil
}

// Frame is the per-video-frame analysis the drawers consume.
type Frame struct {
	// Spectrum holds normalized band magnitudes in [0, 1], low to high.
	Spectrum []float64
	// Waveform holds raw samples in [-1, 1] centered on the frame time.
	Waveform []float64
	// RMS is the frame energy, used for pulse effects.
	RMS float64
}

// Analyzer slices decoded audio into per-frame spectra. Smoothing carries a
// fraction of the previous frame's bands forward, which is what keeps bar
// animation from flickering at high FPS.
type Analyzer struct {
	audio       *Audio
	fps         int
	bands       int
	smoothing   float64
	sensitivity float64
	window      []float64
	prev        []float64
}

func NewAnalyzer(audio *Audio, fps, bands int, smoothing, sensitivity float64) *Analyzer {
	if bands <= 0 {
		bands = 64
	}
	window := make([]float64, fftSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
	}
	return &Analyzer{
		audio:       audio,
		fps:         fps,
		bands:       bands,
		smoothing:   smoothing,
		sensitivity: sensitivity,
		window:      window,
		prev:        make([]float64, bands),
	}
}

// TotalFrames returns the number of video frames for the full audio length.
func (an *Analyzer) TotalFrames() int {
	return int(math.Ceil(an.audio.Duration() * float64(an.fps)))
}

// Analyze produces the spectrum and waveform for frame index i. Frames past
// the end of the audio return silence rather than an error so the encoder
// can keep a constant frame count.
func (an *Analyzer) Analyze(i int) Frame {
	center := i * an.audio.SampleRate / an.fps

	seg := make([]float64, fftSize)
	var rms float64
	for j := 0; j < fftSize; j++ {
		idx := center - fftSize/2 + j
		if idx >= 0 && idx < len(an.audio.Samples) {
			seg[j] = an.audio.Samples[idx]
		}
		rms += seg[j] * seg[j]
		seg[j] *= an.window[j]
	}
	rms = math.Sqrt(rms / fftSize)

	spectrum := fft.FFTReal(seg)

	bands := make([]float64, an.bands)
	// Log-spaced bands between ~40Hz and Nyquist match how the ear (and
	// every spectrum visualizer) groups frequencies.
	minFreq := 40.0
	maxFreq := float64(an.audio.SampleRate) / 2
	binHz := float64(an.audio.SampleRate) / fftSize
	for b := 0; b < an.bands; b++ {
		lo := minFreq * math.Pow(maxFreq/minFreq, float64(b)/float64(an.bands))
		hi := minFreq * math.Pow(maxFreq/minFreq, float64(b+1)/float64(an.bands))
		loBin := int(lo / binHz)
		hiBin := int(hi / binHz)
		if hiBin <= loBin {
			hiBin = loBin + 1
		}
		if hiBin > fftSize/2 {
			hiBin = fftSize / 2
		}

		var peak float64
		for bin := loBin; bin < hiBin; bin++ {
			mag := cmplx.Abs(spectrum[bin]) / (fftSize / 4)
			if mag > peak {
				peak = mag
			}
		}

		v := math.Min(1, peak*an.sensitivity)
		bands[b] = an.prev[b]*an.smoothing + v*(1-an.smoothing)
		an.prev[b] = bands[b]
	}

	waveform := make([]float64, 512)
	step := fftSize / len(waveform)
	for j := range waveform {
		idx := center - fftSize/2 + j*step
		if idx >= 0 && idx < len(an.audio.Samples) {
			waveform[j] = math.Max(-1, math.Min(1, an.audio.Samples[idx]*an.sensitivity))
		}
	}

	return Frame{Spectrum: bands, Waveform: waveform, RMS: rms}
}
