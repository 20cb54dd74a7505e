package render

import (
	"fmt"
	"hash/fnv"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/vizwave/api/internal/shader"
)

// LoadBackgroundImage opens a background file and fits it to the output
// size, cropping from the center.
func LoadBackgroundImage(path string, width, height int) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open background image: %w", err)
	}
	fitted := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	// Darken so the visualization stays readable on bright images.
	return imaging.AdjustBrightness(fitted, -25), nil
}

// ShaderBackdrop produces the static stand-in backdrop for a validated
// background shader. The GLSL itself runs on the viewer's GPU in the
// preview gallery; the encoded video gets a deterministic gradient derived
// from the shader so two renders of the same job match frame for frame.
func ShaderBackdrop(entry *shader.Entry, width, height int) image.Image {
	h := fnv.New32a()
	h.Write([]byte(entry.Info.Name))
	seed := h.Sum32()

	hue := float64(seed%360) / 360
	top := hsv(hue, 0.7, 0.25)
	bottom := hsv(math.Mod(hue+0.12, 1), 0.8, 0.08)

	dc := gg.NewContext(width, height)
	grad := gg.NewLinearGradient(0, 0, 0, float64(height))
	grad.AddColorStop(0, top)
	grad.AddColorStop(1, bottom)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()
	return dc.Image()
}

func hsv(h, s, v float64) colorRGB {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return colorRGB{r, g, b}
}

// colorRGB adapts a float triple to the color.Color gg's gradients need.
type colorRGB struct{ r, g, b float64 }

func (c colorRGB) RGBA() (uint32, uint32, uint32, uint32) {
	return uint32(c.r * 0xffff), uint32(c.g * 0xffff), uint32(c.b * 0xffff), 0xffff
}
