package geoutil

import (
	"fmt"

	"github.com/twpayne/go-geos"
)

// BoundingBox is an axis-aligned extent in the coordinate system of whatever
// produced it.
type BoundingBox struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func BoxOf(g *geos.Geom) (BoundingBox, error) {
	if g == nil {
		return BoundingBox{}, fmt.Errorf("geometry is nil")
	}
	bounds := g.Bounds()
	if bounds == nil {
		return BoundingBox{}, fmt.Errorf("geometry has nil bounds")
	}
	return BoundingBox{
		MinX: bounds.MinX,
		MinY: bounds.MinY,
		MaxX: bounds.MaxX,
		MaxY: bounds.MaxY,
	}, nil
}

func (b BoundingBox) Width() float64 {
	return b.MaxX - b.MinX
}

func (b BoundingBox) Height() float64 {
	return b.MaxY - b.MinY
}

func (b BoundingBox) Contains(o BoundingBox) bool {
	return o.MinX >= b.MinX && o.MinY >= b.MinY && o.MaxX <= b.MaxX && o.MaxY <= b.MaxY
}

func (b BoundingBox) ContainsPoint(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX && b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Expand grows the box to include o.
func (b BoundingBox) Expand(o BoundingBox) BoundingBox {
	if o.MinX < b.MinX {
		b.MinX = o.MinX
	}
	if o.MinY < b.MinY {
		b.MinY = o.MinY
	}
	if o.MaxX > b.MaxX {
		b.MaxX = o.MaxX
	}
	if o.MaxY > b.MaxY {
		b.MaxY = o.MaxY
	}
	return b
}
