package render

import (
	"image"
	"math"

	"github.com/fogleman/gg"

	"github.com/vizwave/api/internal/model"
)

type rgb struct{ r, g, b float64 }

// palettes maps each color scheme to a low→high gradient pair.
var palettes = map[model.ColorScheme][2]rgb{
	model.ColorSchemeClassic:  {{0.20, 0.80, 0.40}, {0.95, 0.90, 0.20}},
	model.ColorSchemeNeon:     {{0.00, 0.90, 0.95}, {0.95, 0.10, 0.80}},
	model.ColorSchemeSunset:   {{0.95, 0.45, 0.10}, {0.80, 0.10, 0.45}},
	model.ColorSchemeMono:     {{0.85, 0.85, 0.85}, {1.00, 1.00, 1.00}},
	model.ColorSchemeSpectrum: {{0.10, 0.30, 0.95}, {0.95, 0.15, 0.15}},
}

// Drawer renders one visualization frame at a time onto an optional
// background image.
type Drawer struct {
	width, height int
	settings      *model.RenderSettings
	lo, hi        rgb
}

func NewDrawer(settings *model.RenderSettings) *Drawer {
	pal, ok := palettes[settings.ColorScheme]
	if !ok {
		pal = palettes[model.ColorSchemeClassic]
	}
	return &Drawer{
		width:    settings.Width,
		height:   settings.Height,
		settings: settings,
		lo:       pal[0],
		hi:       pal[1],
	}
}

func (d *Drawer) lerp(t float64) rgb {
	return rgb{
		d.lo.r + (d.hi.r-d.lo.r)*t,
		d.lo.g + (d.hi.g-d.lo.g)*t,
		d.lo.b + (d.hi.b-d.lo.b)*t,
	}
}

// Draw renders a frame. background may be nil, in which case a dark fill is
// used. The returned image is RGBA at the configured size.
func (d *Drawer) Draw(frame Frame, background image.Image) *image.RGBA {
	dc := gg.NewContext(d.width, d.height)

	if background != nil {
		dc.DrawImage(background, 0, 0)
	} else {
		dc.SetRGB(0.04, 0.04, 0.07)
		dc.Clear()
	}

	switch d.settings.Visualizer {
	case model.VisualizerWave:
		d.drawWave(dc, frame)
	case model.VisualizerCircular:
		d.drawCircular(dc, frame)
	case model.VisualizerCurves:
		d.drawCurves(dc, frame)
	default:
		d.drawBars(dc, frame)
	}

	return dc.Image().(*image.RGBA)
}

func (d *Drawer) drawBars(dc *gg.Context, frame Frame) {
	bands := frame.Spectrum
	n := len(bands)
	if d.settings.MirrorSpectrum {
		n *= 2
	}

	w := float64(d.width)
	h := float64(d.height)
	barW := w / float64(n)
	gap := barW * 0.15

	for i := 0; i < n; i++ {
		bi := i
		if d.settings.MirrorSpectrum {
			// Mirrored layout: high bands meet in the middle.
			if i < len(bands) {
				bi = len(bands) - 1 - i
			} else {
				bi = i - len(bands)
			}
		}
		v := bands[bi]
		barH := v * h * 0.85
		c := d.lerp(v)
		dc.SetRGB(c.r, c.g, c.b)
		dc.DrawRectangle(float64(i)*barW+gap/2, h-barH, barW-gap, barH)
		dc.Fill()
	}
}

func (d *Drawer) drawWave(dc *gg.Context, frame Frame) {
	w := float64(d.width)
	h := float64(d.height)
	mid := h / 2
	amp := h * 0.35

	if len(frame.Waveform) < 2 {
		return
	}

	c := d.lerp(math.Min(1, frame.RMS*3))
	dc.SetRGB(c.r, c.g, c.b)
	dc.SetLineWidth(2 + frame.RMS*6)

	for i, s := range frame.Waveform {
		x := float64(i) / float64(len(frame.Waveform)-1) * w
		y := mid - s*amp
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()
}

func (d *Drawer) drawCircular(dc *gg.Context, frame Frame) {
	cx := float64(d.width) / 2
	cy := float64(d.height) / 2
	base := math.Min(cx, cy) * 0.35
	reach := math.Min(cx, cy) * 0.55

	n := len(frame.Spectrum)
	for i, v := range frame.Spectrum {
		a0 := 2 * math.Pi * float64(i) / float64(n)
		r1 := base + v*reach

		c := d.lerp(v)
		dc.SetRGB(c.r, c.g, c.b)
		dc.SetLineWidth(math.Max(2, 2*math.Pi*base/float64(n)*0.6))
		dc.DrawLine(
			cx+math.Cos(a0)*base, cy+math.Sin(a0)*base,
			cx+math.Cos(a0)*r1, cy+math.Sin(a0)*r1,
		)
		dc.Stroke()
	}

	// center pulse
	pulse := base * (0.92 + frame.RMS*0.3)
	c := d.lerp(math.Min(1, frame.RMS*3))
	dc.SetRGBA(c.r, c.g, c.b, 0.5)
	dc.DrawCircle(cx, cy, pulse)
	dc.Stroke()
}

func (d *Drawer) drawCurves(dc *gg.Context, frame Frame) {
	w := float64(d.width)
	h := float64(d.height)

	bands := frame.Spectrum
	n := len(bands)
	if n < 2 {
		return
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, v := range bands {
		xs[i] = float64(i) / float64(n-1) * w
		ys[i] = h - v*h*0.8
	}

	// Smooth filled curve through band midpoints.
	dc.MoveTo(0, h)
	dc.LineTo(xs[0], ys[0])
	for i := 0; i < n-1; i++ {
		mx := (xs[i] + xs[i+1]) / 2
		my := (ys[i] + ys[i+1]) / 2
		dc.QuadraticTo(xs[i], ys[i], mx, my)
	}
	dc.LineTo(xs[n-1], ys[n-1])
	dc.LineTo(w, h)
	dc.ClosePath()

	c := d.lerp(math.Min(1, frame.RMS*3))
	dc.SetRGBA(c.r, c.g, c.b, 0.65)
	dc.FillPreserve()
	dc.SetRGB(c.r, c.g, c.b)
	dc.SetLineWidth(2)
	dc.Stroke()
}
