package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"os"

	"github.com/fogleman/gg"
	"go.uber.org/zap"

	"github.com/jsuarezb/go-river-relief/config"
	"github.com/jsuarezb/go-river-relief/elevation"
	"github.com/jsuarezb/go-river-relief/geoutil"
	"github.com/jsuarezb/go-river-relief/rivers"
)

// ErrGridMismatch means the overlay and the height grid disagree on
// dimensions or extent. The composer never crops or stretches to reconcile
// them; mismatches abort.
var ErrGridMismatch = errors.New("scene: overlay and height grid do not match")

// extentTolerance absorbs float noise when comparing extents that were
// produced from the same boundary value.
const extentTolerance = 1e-6

// RenderParams are the fixed camera and material settings handed to the
// external renderer together with the scene.
type RenderParams struct {
	ZScale       float64 `json:"z_scale"`
	Exaggeration float64 `json:"exaggeration"`
	CameraPhi    float64 `json:"camera_phi"`
	CameraTheta  float64 `json:"camera_theta"`
	ShadowDepth  float64 `json:"shadow_depth"`
	Solid        bool    `json:"solid"`
	Background   string  `json:"background"`
	WindowWidth  int     `json:"window_width"`
	WindowHeight int     `json:"window_height"`
	Zoom         float64 `json:"zoom"`
}

// Scene is the single hand-off artifact for the renderer: the height field,
// the composited texture, and the render parameters. Built last, consumed
// once, not mutated.
type Scene struct {
	Heights *elevation.HeightMatrix
	Texture *image.RGBA
	Params  RenderParams
}

type Composer struct {
	cfg config.SceneConfig
	log *zap.Logger
}

func NewComposer(cfg config.SceneConfig, log *zap.Logger) *Composer {
	return &Composer{cfg: cfg, log: log}
}

// Compose builds the shaded-relief texture, rasterizes the river network
// over it at identical dimensions and extent, and assembles the scene.
func (c *Composer) Compose(heights *elevation.HeightMatrix, network *rivers.Network, extent geoutil.BoundingBox) (*Scene, error) {
	if err := validateGrids(heights, network, extent); err != nil {
		return nil, err
	}

	low, err := parseHexColor(c.cfg.RampLow)
	if err != nil {
		return nil, err
	}
	high, err := parseHexColor(c.cfg.RampHigh)
	if err != nil {
		return nil, err
	}

	relief := reliefTexture(heights, low, high, c.cfg.RampSteps)

	overlay, err := c.rasterizeNetwork(network, heights.Rows, heights.Cols, extent)
	if err != nil {
		return nil, err
	}
	if !overlay.Bounds().Eq(relief.Bounds()) {
		return nil, fmt.Errorf("%w: overlay %v vs relief %v",
			ErrGridMismatch, overlay.Bounds(), relief.Bounds())
	}
	draw.Draw(relief, relief.Bounds(), overlay, image.Point{}, draw.Over)

	c.log.Info("composed scene",
		zap.Int("rows", heights.Rows),
		zap.Int("cols", heights.Cols),
		zap.Int("rivers", len(network.Features)))

	return &Scene{
		Heights: heights,
		Texture: relief,
		Params: RenderParams{
			ZScale:       heights.ZScale,
			Exaggeration: c.cfg.ExaggerationK,
			CameraPhi:    c.cfg.CameraPhi,
			CameraTheta:  c.cfg.CameraTheta,
			ShadowDepth:  c.cfg.ShadowDepth,
			Solid:        c.cfg.Solid,
			Background:   c.cfg.Background,
			WindowWidth:  c.cfg.WindowWidth,
			WindowHeight: c.cfg.WindowHeight,
			Zoom:         c.cfg.Zoom,
		},
	}, nil
}

// validateGrids enforces the consistency chain: the network, the height grid,
// and the raster extent must agree on CRS and extent before any pixel is
// drawn.
func validateGrids(heights *elevation.HeightMatrix, network *rivers.Network, extent geoutil.BoundingBox) error {
	if heights.Rows <= 0 || heights.Cols <= 0 {
		return fmt.Errorf("%w: empty height grid", ErrGridMismatch)
	}
	if len(heights.Values) != heights.Rows*heights.Cols {
		return fmt.Errorf("%w: height grid has %d values for %dx%d",
			ErrGridMismatch, len(heights.Values), heights.Rows, heights.Cols)
	}
	if network.CRS != heights.CRS {
		return fmt.Errorf("%w: network CRS %q vs height CRS %q",
			ErrGridMismatch, network.CRS, heights.CRS)
	}
	if !boxesClose(heights.Extent, extent) {
		return fmt.Errorf("%w: height extent %+v vs raster extent %+v",
			ErrGridMismatch, heights.Extent, extent)
	}
	return nil
}

func boxesClose(a, b geoutil.BoundingBox) bool {
	return math.Abs(a.MinX-b.MinX) <= extentTolerance &&
		math.Abs(a.MinY-b.MinY) <= extentTolerance &&
		math.Abs(a.MaxX-b.MaxX) <= extentTolerance &&
		math.Abs(a.MaxY-b.MaxY) <= extentTolerance
}

// rasterizeNetwork strokes every river feature onto a transparent canvas at
// the grid's pixel dimensions. Stroke width comes from the feature; color and
// opacity are fixed.
func (c *Composer) rasterizeNetwork(network *rivers.Network, rows, cols int, extent geoutil.BoundingBox) (*image.RGBA, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, cols, rows))
	dc := gg.NewContextForRGBA(canvas)
	dc.SetHexColor(c.cfg.RiverColor)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()

	sx := float64(cols) / extent.Width()
	sy := float64(rows) / extent.Height()

	for _, f := range network.Features {
		if f.Width <= 0 || len(f.Coords) < 2 {
			// Retained in the network but draws nothing.
			continue
		}
		dc.NewSubPath()
		for i, pt := range f.Coords {
			px := (pt[0] - extent.MinX) * sx
			py := (extent.MaxY - pt[1]) * sy
			if i == 0 {
				dc.MoveTo(px, py)
			} else {
				dc.LineTo(px, py)
			}
		}
		dc.SetLineWidth(f.Width)
		dc.Stroke()
	}
	return canvas, nil
}

// SaveTexture writes the composited texture for the external renderer.
func SaveTexture(path string, s *Scene) error {
	return gg.SavePNG(path, s.Texture)
}

// descriptor is the serialized form of the scene hand-off, pointing at the
// texture and height artifacts instead of embedding them.
type descriptor struct {
	Rows        int                 `json:"rows"`
	Cols        int                 `json:"cols"`
	Extent      geoutil.BoundingBox `json:"extent"`
	CRS         string              `json:"crs"`
	TexturePath string              `json:"texture_path"`
	HeightsPath string              `json:"heights_path"`
	Params      RenderParams        `json:"params"`
}

// SaveDescriptor writes the scene descriptor JSON next to its artifacts.
func SaveDescriptor(path, texturePath, heightsPath string, s *Scene) error {
	d := descriptor{
		Rows:        s.Heights.Rows,
		Cols:        s.Heights.Cols,
		Extent:      s.Heights.Extent,
		CRS:         s.Heights.CRS,
		TexturePath: texturePath,
		HeightsPath: heightsPath,
		Params:      s.Params,
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
