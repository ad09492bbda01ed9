package scene

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/jsuarezb/go-river-relief/elevation"
)

// reliefTexture colors the height grid with a two-color linear gradient
// quantized to a fixed number of steps. The ramp is keyed purely by elevation
// value; there is no illumination model here, the renderer adds shading.
func reliefTexture(m *elevation.HeightMatrix, low, high color.RGBA, steps int) *image.RGBA {
	if steps < 2 {
		steps = 2
	}
	span := m.Max - m.Min
	if span <= 0 {
		span = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, m.Cols, m.Rows))
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			t := (m.At(r, c) - m.Min) / span
			t = math.Floor(t*float64(steps-1)) / float64(steps-1)
			img.SetRGBA(c, r, lerpColor(low, high, t))
		}
	}
	return img
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return color.RGBA{
		R: uint8(float64(a.R) + t*(float64(b.R)-float64(a.R))),
		G: uint8(float64(a.G) + t*(float64(b.G)-float64(a.G))),
		B: uint8(float64(a.B) + t*(float64(b.B)-float64(a.B))),
		A: 255,
	}
}

// parseHexColor reads #RGB and #RRGGBB color strings.
func parseHexColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 255}
	var err error
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 4:
		_, err = fmt.Sscanf(s, "#%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	default:
		err = fmt.Errorf("scene: invalid color %q", s)
	}
	return c, err
}
