package elevation

import (
	"github.com/fogleman/maps"
	"github.com/fogleman/terrarium"
	"github.com/twpayne/go-geos"

	"github.com/jsuarezb/go-river-relief/boundary"
)

// maskShapes converts the boundary polygons into the shape form the tile
// masker consumes. Interior rings ride along as extra polylines; the even-odd
// fill keeps holes open.
func maskShapes(bound *boundary.Geometry) []maps.Shape {
	var shapes []maps.Shape
	g := bound.Geom

	switch g.TypeID() {
	case geos.TypeIDPolygon:
		if s, ok := polygonShape(g); ok {
			shapes = append(shapes, s)
		}
	case geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
		for i := 0; i < g.NumGeometries(); i++ {
			part := g.Geometry(i)
			if part.TypeID() != geos.TypeIDPolygon {
				continue
			}
			if s, ok := polygonShape(part); ok {
				shapes = append(shapes, s)
			}
		}
	}
	return shapes
}

func polygonShape(polygon *geos.Geom) (maps.Shape, bool) {
	exterior := polygon.ExteriorRing()
	if exterior == nil {
		return maps.Shape{}, false
	}

	var bounds maps.Bounds
	lines := []*maps.Polyline{ringPolyline(exterior, &bounds, true)}
	for r := 0; r < polygon.NumInteriorRings(); r++ {
		lines = append(lines, ringPolyline(polygon.InteriorRing(r), &bounds, false))
	}

	return maps.Shape{Bounds: bounds, Lines: lines, Tags: nil}, true
}

// ringPolyline converts one ring to a polyline, growing bounds as it walks.
// The first ring of a shape seeds the bounds.
func ringPolyline(ring *geos.Geom, bounds *maps.Bounds, seed bool) *maps.Polyline {
	seq := ring.CoordSeq()
	points := make([]maps.Point, 0, seq.Size())
	for i := 0; i < seq.Size(); i++ {
		p := maps.Point(terrarium.LatLng(seq.Y(i), seq.X(i)))
		if seed && i == 0 {
			*bounds = maps.Bounds{Min: p, Max: p}
		} else {
			if p.X < bounds.Min.X {
				bounds.Min.X = p.X
			}
			if p.Y < bounds.Min.Y {
				bounds.Min.Y = p.Y
			}
			if p.X > bounds.Max.X {
				bounds.Max.X = p.X
			}
			if p.Y > bounds.Max.Y {
				bounds.Max.Y = p.Y
			}
		}
		points = append(points, p)
	}
	return maps.NewPolyline(points)
}
