package boundary

import (
	"github.com/twpayne/go-geos"

	"github.com/jsuarezb/go-river-relief/geoutil"
)

// roundGeometry rebuilds a polygon or multipolygon with coordinates rounded
// to the persistence precision. Returns nil when the geometry is not a
// polygon type, leaving the caller to fall back to the original.
func roundGeometry(g *geos.Geom) *geos.Geom {
	if g == nil {
		return nil
	}

	switch g.TypeID() {
	case geos.TypeIDPolygon:
		return roundPolygon(g)
	case geos.TypeIDMultiPolygon:
		parts := make([]*geos.Geom, 0, g.NumGeometries())
		for i := 0; i < g.NumGeometries(); i++ {
			if p := roundPolygon(g.Geometry(i)); p != nil {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			return nil
		}
		if len(parts) == 1 {
			return parts[0]
		}
		return geos.NewCollection(geos.TypeIDMultiPolygon, parts)
	default:
		return nil
	}
}

func roundPolygon(polygon *geos.Geom) *geos.Geom {
	exterior := polygon.ExteriorRing()
	if exterior == nil || exterior.CoordSeq().Size() <= 3 {
		return nil
	}

	var rings [][][]float64
	rings = append(rings, roundRing(exterior))

	for r := 0; r < polygon.NumInteriorRings(); r++ {
		ring := polygon.InteriorRing(r)
		if ring.CoordSeq().Size() <= 3 {
			continue
		}
		coords := roundRing(ring)
		hole := geos.NewPolygon([][][]float64{coords})
		if hole.IsValid() {
			rings = append(rings, coords)
		}
	}

	return geos.NewPolygon(rings)
}

func roundRing(ring *geos.Geom) [][]float64 {
	seq := ring.CoordSeq()
	coords := make([][]float64, 0, seq.Size())
	for i := 0; i < seq.Size(); i++ {
		x, y := geoutil.RoundCoord(seq.X(i), seq.Y(i))
		coords = append(coords, []float64{x, y})
	}
	return coords
}
