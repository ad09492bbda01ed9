package rivers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/jsuarezb/go-river-relief/boundary"
	"github.com/jsuarezb/go-river-relief/config"
	"github.com/jsuarezb/go-river-relief/geoutil"
)

// ErrSourceMissing means the river dataset is absent from its configured
// local path and no fetch URL is configured.
var ErrSourceMissing = errors.New("rivers: dataset missing and no archive URL configured")

// Feature is one clipped river segment in the working CRS. Width is assigned
// once, at classification time, from the flow-order code.
type Feature struct {
	Coords    [][]float64 `json:"coords"`
	FlowOrder int         `json:"flow_order"`
	Width     float64     `json:"width"`
}

// Network is the extracted river network. An empty network is a valid
// result, not an error; the caller decides whether to treat it as fatal.
type Network struct {
	Features []Feature `json:"features"`
	CRS      string    `json:"crs"`
}

type Extractor struct {
	cfg  config.RiversConfig
	proj *geoutil.Projector
	log  *zap.Logger
}

func NewExtractor(cfg config.RiversConfig, proj *geoutil.Projector, log *zap.Logger) *Extractor {
	return &Extractor{cfg: cfg, proj: proj, log: log}
}

// Extract runs the full river pipeline against the boundary: bounding-box
// prefilter, line-type filter, clip to the boundary, width classification,
// and reprojection into the working CRS.
func (e *Extractor) Extract(b *boundary.Geometry) (*Network, error) {
	box, err := b.Box()
	if err != nil {
		return nil, fmt.Errorf("rivers: boundary box: %w", err)
	}

	path, err := e.ensureSource()
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rivers: opening %s: %w", path, err)
	}
	defer reader.Close()

	orderField, err := fieldIndex(reader.Fields(), e.cfg.FlowOrderField)
	if err != nil {
		return nil, err
	}

	index := partIndex(b, box)

	var (
		features  []Feature
		scanned   int
		candidate int
	)
	for reader.Next() {
		row, shape := reader.Shape()
		scanned++

		// Only line geometries belong to a river network.
		line, ok := shape.(*shp.PolyLine)
		if !ok {
			continue
		}

		// Spatial prefilter: skip anything outside the boundary extent
		// without materializing it.
		lineBox := geoutil.BoundingBox{
			MinX: line.Box.MinX, MinY: line.Box.MinY,
			MaxX: line.Box.MaxX, MaxY: line.Box.MaxY,
		}
		if !box.Intersects(lineBox) {
			continue
		}
		if len(index.Search(lineBox)) == 0 {
			continue
		}
		candidate++

		order := parseFlowOrder(reader.ReadAttribute(row, orderField))
		width := WidthForOrder(order)

		for _, part := range polylineParts(line) {
			segments, err := clipLine(part, b.Geom)
			if err != nil {
				return nil, fmt.Errorf("rivers: clipping feature %d: %w", row, err)
			}
			for _, segment := range segments {
				projected, err := e.projectCoords(segment)
				if err != nil {
					return nil, fmt.Errorf("rivers: reprojecting feature %d: %w", row, err)
				}
				features = append(features, Feature{
					Coords:    projected,
					FlowOrder: order,
					Width:     width,
				})
			}
		}
	}

	e.log.Info("extracted river network",
		zap.Int("scanned", scanned),
		zap.Int("in_extent", candidate),
		zap.Int("segments", len(features)))

	return &Network{Features: features, CRS: e.proj.Definition()}, nil
}

// partIndex builds a grid index over the component polygons of the boundary
// so the prefilter can skip features that only touch the union's empty span.
func partIndex(b *boundary.Geometry, box geoutil.BoundingBox) *geoutil.SpatialIndex {
	cell := box.Width()
	if box.Height() > cell {
		cell = box.Height()
	}
	if cell <= 0 {
		cell = 1
	}
	index := geoutil.NewSpatialIndex(cell / 8)

	n := b.Geom.NumGeometries()
	for i := 0; i < n; i++ {
		partBox, err := geoutil.BoxOf(b.Geom.Geometry(i))
		if err != nil {
			continue
		}
		index.Insert(i, partBox)
	}
	return index
}

// polylineParts splits a shapefile polyline into its coordinate parts.
func polylineParts(line *shp.PolyLine) [][][]float64 {
	parts := make([][][]float64, 0, line.NumParts)
	for p := 0; p < int(line.NumParts); p++ {
		start := int(line.Parts[p])
		end := int(line.NumPoints)
		if p+1 < int(line.NumParts) {
			end = int(line.Parts[p+1])
		}
		if end-start < 2 {
			continue
		}
		coords := make([][]float64, 0, end-start)
		for i := start; i < end; i++ {
			coords = append(coords, []float64{line.Points[i].X, line.Points[i].Y})
		}
		parts = append(parts, coords)
	}
	return parts
}

// clipLine intersects one line part with the boundary geometry and returns
// the surviving sub-segments. A line fully inside comes back unchanged; a
// line fully outside comes back as nothing.
func clipLine(coords [][]float64, clip *geos.Geom) ([][][]float64, error) {
	line := geos.NewLineString(coords)
	if line == nil {
		return nil, fmt.Errorf("could not build line with %d points", len(coords))
	}

	clipped := line.Intersection(clip)
	if clipped == nil {
		return nil, fmt.Errorf("intersection failed")
	}
	if clipped.IsEmpty() {
		return nil, nil
	}
	return collectLines(clipped), nil
}

// collectLines pulls every linestring out of an intersection result, which
// can be a single line, a multi-line, or a mixed collection when the line
// grazes the boundary at isolated points.
func collectLines(g *geos.Geom) [][][]float64 {
	var lines [][][]float64
	switch g.TypeID() {
	case geos.TypeIDLineString, geos.TypeIDLinearRing:
		seq := g.CoordSeq()
		coords := make([][]float64, 0, seq.Size())
		for i := 0; i < seq.Size(); i++ {
			coords = append(coords, []float64{seq.X(i), seq.Y(i)})
		}
		if len(coords) >= 2 {
			lines = append(lines, coords)
		}
	case geos.TypeIDMultiLineString, geos.TypeIDGeometryCollection:
		for i := 0; i < g.NumGeometries(); i++ {
			lines = append(lines, collectLines(g.Geometry(i))...)
		}
	}
	return lines
}

func (e *Extractor) projectCoords(coords [][]float64) ([][]float64, error) {
	out := make([][]float64, len(coords))
	for i, c := range coords {
		x, y, err := e.proj.Forward(c[0], c[1])
		if err != nil {
			return nil, err
		}
		out[i] = []float64{x, y}
	}
	return out, nil
}

func fieldIndex(fields []shp.Field, name string) (int, error) {
	for i, f := range fields {
		if strings.EqualFold(f.String(), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("rivers: attribute %q not found in shapefile", name)
}

// parseFlowOrder reads the flow-order attribute, which DBF stores as text
// and some distributions format as a float.
func parseFlowOrder(raw string) int {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return -1
}
