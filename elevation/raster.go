package elevation

import (
	"math"

	"github.com/umahmood/haversine"

	"github.com/jsuarezb/go-river-relief/geoutil"
)

// Raster is a dense gridded elevation surface. Values are row-major with row
// zero at the northern (top) edge and column zero at the western (left) edge.
type Raster struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Values []float64 `json:"values"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`

	// CRS and Extent describe the grid itself; GeoExtent is the original
	// geographic (lon/lat) extent and survives reprojection so ground
	// distances stay computable.
	CRS       string              `json:"crs"`
	Extent    geoutil.BoundingBox `json:"extent"`
	GeoExtent geoutil.BoundingBox `json:"geo_extent"`

	// OriginPX/OriginPY/Zoom position a native tile-grid raster inside the
	// global mercator pixel plane. Zero for reprojected rasters.
	OriginPX float64 `json:"origin_px,omitempty"`
	OriginPY float64 `json:"origin_py,omitempty"`
	Zoom     int     `json:"zoom,omitempty"`
}

func (r *Raster) At(row, col int) float64 {
	return r.Values[row*r.Cols+col]
}

// Bilinear samples the raster at a fractional pixel position measured from
// the top-left cell center. Coordinates are clamped to the grid.
func (r *Raster) Bilinear(px, py float64) float64 {
	px = clamp(px, 0, float64(r.Cols-1))
	py = clamp(py, 0, float64(r.Rows-1))

	c0 := int(math.Floor(px))
	r0 := int(math.Floor(py))
	c1 := c0 + 1
	r1 := r0 + 1
	if c1 > r.Cols-1 {
		c1 = r.Cols - 1
	}
	if r1 > r.Rows-1 {
		r1 = r.Rows - 1
	}
	fx := px - float64(c0)
	fy := py - float64(r0)

	top := r.At(r0, c0)*(1-fx) + r.At(r0, c1)*fx
	bottom := r.At(r1, c0)*(1-fx) + r.At(r1, c1)*fx
	return top*(1-fy) + bottom*fy
}

// HeightMatrix is the dense height grid handed to the scene composer. Same
// orientation contract as Raster: row zero north, column zero west.
type HeightMatrix struct {
	Rows   int                 `json:"rows"`
	Cols   int                 `json:"cols"`
	Values []float64           `json:"values"`
	Min    float64             `json:"min"`
	Max    float64             `json:"max"`
	CRS    string              `json:"crs"`
	Extent geoutil.BoundingBox `json:"extent"`

	// ZScale relates one elevation meter to one ground pixel, the ratio the
	// renderer divides elevations by before applying vertical exaggeration.
	ZScale float64 `json:"z_scale"`
}

func (m *HeightMatrix) At(row, col int) float64 {
	return m.Values[row*m.Cols+col]
}

// ToHeightMatrix converts a reprojected raster into the render height grid.
// Row and column counts carry over exactly.
func ToHeightMatrix(r *Raster) *HeightMatrix {
	values := make([]float64, len(r.Values))
	copy(values, r.Values)

	return &HeightMatrix{
		Rows:   r.Rows,
		Cols:   r.Cols,
		Values: values,
		Min:    r.Min,
		Max:    r.Max,
		CRS:    r.CRS,
		Extent: r.Extent,
		ZScale: zScale(r),
	}
}

// zScale measures the ground footprint of the raster with haversine and
// relates the elevation range to the average ground size of one pixel.
func zScale(r *Raster) float64 {
	g := r.GeoExtent
	_, lrKm := haversine.Distance(
		haversine.Coord{Lat: g.MinY, Lon: g.MinX},
		haversine.Coord{Lat: g.MinY, Lon: g.MaxX})
	_, tbKm := haversine.Distance(
		haversine.Coord{Lat: g.MinY, Lon: g.MinX},
		haversine.Coord{Lat: g.MaxY, Lon: g.MinX})

	xMetersPerPixel := lrKm * 1000 / float64(r.Cols)
	yMetersPerPixel := tbKm * 1000 / float64(r.Rows)
	avg := (xMetersPerPixel + yMetersPerPixel) / 2
	if avg == 0 {
		return 1
	}
	scale := (r.Max - r.Min) / avg
	if scale <= 0 {
		return 1
	}
	return scale
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
