package geoutil

import (
	"fmt"

	"github.com/ctessum/geom/proj"
)

const geographicCRS = "+proj=longlat +ellps=WGS84 +no_defs"

// Projector converts between geographic coordinates (lon/lat, WGS84) and the
// working CRS: a local transverse Mercator projection centered on the study
// region, unit scale, meters.
type Projector struct {
	definition string
	forward    proj.Transformer
	inverse    proj.Transformer
}

func NewProjector(originLat, originLon float64) (*Projector, error) {
	definition := fmt.Sprintf(
		"+proj=tmerc +lat_0=%g +lon_0=%g +k=1 +x_0=0 +y_0=0 +ellps=WGS84 +units=m +no_defs",
		originLat, originLon)

	src, err := proj.Parse(geographicCRS)
	if err != nil {
		return nil, fmt.Errorf("parsing geographic CRS: %w", err)
	}
	dst, err := proj.Parse(definition)
	if err != nil {
		return nil, fmt.Errorf("parsing working CRS: %w", err)
	}

	forward, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("creating forward transform: %w", err)
	}
	inverse, err := dst.NewTransform(src)
	if err != nil {
		return nil, fmt.Errorf("creating inverse transform: %w", err)
	}

	return &Projector{
		definition: definition,
		forward:    forward,
		inverse:    inverse,
	}, nil
}

// Definition returns the proj4 string of the working CRS.
func (p *Projector) Definition() string {
	return p.definition
}

// Forward projects a lon/lat coordinate into the working CRS.
func (p *Projector) Forward(lon, lat float64) (x, y float64, err error) {
	return p.forward(lon, lat)
}

// Inverse converts a working-CRS coordinate back to lon/lat.
func (p *Projector) Inverse(x, y float64) (lon, lat float64, err error) {
	return p.inverse(x, y)
}

// ForwardBox projects a geographic box into the working CRS. Edges are
// sampled because straight box edges curve under the projection.
func (p *Projector) ForwardBox(b BoundingBox) (BoundingBox, error) {
	const samples = 16

	var out BoundingBox
	first := true
	for i := 0; i <= samples; i++ {
		t := float64(i) / samples
		edge := []struct{ lon, lat float64 }{
			{b.MinX + t*b.Width(), b.MinY},
			{b.MinX + t*b.Width(), b.MaxY},
			{b.MinX, b.MinY + t*b.Height()},
			{b.MaxX, b.MinY + t*b.Height()},
		}
		for _, pt := range edge {
			x, y, err := p.Forward(pt.lon, pt.lat)
			if err != nil {
				return BoundingBox{}, err
			}
			if first {
				out = BoundingBox{MinX: x, MinY: y, MaxX: x, MaxY: y}
				first = false
				continue
			}
			out = out.Expand(BoundingBox{MinX: x, MinY: y, MaxX: x, MaxY: y})
		}
	}
	return out, nil
}
