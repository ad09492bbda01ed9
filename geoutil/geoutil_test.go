package geoutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"
)

func TestBoundingBoxContains(t *testing.T) {
	outer := BoundingBox{MinX: -74.3, MinY: 4.3, MaxX: -73.9, MaxY: 5.1}

	assert.True(t, outer.Contains(BoundingBox{MinX: -74.2, MinY: 4.5, MaxX: -74.0, MaxY: 4.9}))
	assert.True(t, outer.Contains(outer))
	assert.False(t, outer.Contains(BoundingBox{MinX: -74.4, MinY: 4.5, MaxX: -74.0, MaxY: 4.9}))

	assert.True(t, outer.ContainsPoint(-74.0, 4.7))
	assert.False(t, outer.ContainsPoint(-75.0, 4.7))
}

func TestBoundingBoxIntersects(t *testing.T) {
	a := BoundingBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}

	assert.True(t, a.Intersects(BoundingBox{MinX: 5, MinY: 5, MaxX: 15, MaxY: 15}))
	assert.True(t, a.Intersects(BoundingBox{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20}), "touching boxes intersect")
	assert.False(t, a.Intersects(BoundingBox{MinX: 11, MinY: 0, MaxX: 20, MaxY: 10}))
}

func TestBoundingBoxExpand(t *testing.T) {
	a := BoundingBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	b := BoundingBox{MinX: -1, MinY: 0.5, MaxX: 0.5, MaxY: 2}

	merged := a.Expand(b)
	assert.Equal(t, BoundingBox{MinX: -1, MinY: 0, MaxX: 1, MaxY: 2}, merged)
	assert.True(t, merged.Contains(a))
	assert.True(t, merged.Contains(b))
}

func TestBoxOf(t *testing.T) {
	poly := geos.NewPolygon([][][]float64{{{0, 0}, {4, 0}, {4, 3}, {0, 3}, {0, 0}}})
	require.NotNil(t, poly)

	box, err := BoxOf(poly)
	require.NoError(t, err)
	assert.Equal(t, BoundingBox{MinX: 0, MinY: 0, MaxX: 4, MaxY: 3}, box)

	_, err = BoxOf(nil)
	assert.Error(t, err)
}

func TestCascadedUnionBoxContainsInputs(t *testing.T) {
	squares := []*geos.Geom{
		geos.NewPolygon([][][]float64{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}),
		geos.NewPolygon([][][]float64{{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}}}),
		geos.NewPolygon([][][]float64{{{5, 5}, {6, 5}, {6, 6}, {5, 6}, {5, 5}}}),
	}

	var inputBoxes []BoundingBox
	for _, s := range squares {
		box, err := BoxOf(s)
		require.NoError(t, err)
		inputBoxes = append(inputBoxes, box)
	}

	union, err := CascadedUnion(squares)
	require.NoError(t, err)
	require.True(t, union.IsValid())
	require.False(t, union.IsEmpty())

	unionBox, err := BoxOf(union)
	require.NoError(t, err)
	for i, box := range inputBoxes {
		assert.True(t, unionBox.Contains(box), "union box must contain input %d", i)
	}
}

func TestCascadedUnionEmptyInput(t *testing.T) {
	_, err := CascadedUnion(nil)
	assert.Error(t, err)
}

func TestSpatialIndexSearch(t *testing.T) {
	index := NewSpatialIndex(1.0)
	index.Insert(0, BoundingBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1})
	index.Insert(1, BoundingBox{MinX: 5, MinY: 5, MaxX: 6, MaxY: 6})
	index.Insert(2, BoundingBox{MinX: 0.5, MinY: 0.5, MaxX: 5.5, MaxY: 5.5})
	require.Equal(t, 3, index.Len())

	hits := index.Search(BoundingBox{MinX: 0.25, MinY: 0.25, MaxX: 0.75, MaxY: 0.75})
	assert.ElementsMatch(t, []int{0, 2}, hits)

	hits = index.Search(BoundingBox{MinX: 10, MinY: 10, MaxX: 11, MaxY: 11})
	assert.Empty(t, hits)
}

func TestRoundCoord(t *testing.T) {
	x, y := RoundCoord(-74.12345678912, 4.98765432198)
	assert.Equal(t, -74.1234568, x)
	assert.Equal(t, 4.9876543, y)
}

func TestProjectorRoundTrip(t *testing.T) {
	proj, err := NewProjector(4.7, -74.1)
	require.NoError(t, err)

	points := [][2]float64{
		{-74.1, 4.7},
		{-74.3, 4.3},
		{-73.9, 5.1},
		{-74.1234567, 4.7654321},
	}
	for _, pt := range points {
		x, y, err := proj.Forward(pt[0], pt[1])
		require.NoError(t, err)

		lon, lat, err := proj.Inverse(x, y)
		require.NoError(t, err)
		assert.InDelta(t, pt[0], lon, 1e-6, "longitude round trip")
		assert.InDelta(t, pt[1], lat, 1e-6, "latitude round trip")
	}
}

func TestProjectorOriginMapsNearZero(t *testing.T) {
	proj, err := NewProjector(4.7, -74.1)
	require.NoError(t, err)

	x, y, err := proj.Forward(-74.1, 4.7)
	require.NoError(t, err)
	assert.InDelta(t, 0, x, 1)
	assert.InDelta(t, 0, y, 1)
}

func TestProjectorForwardBox(t *testing.T) {
	proj, err := NewProjector(4.7, -74.1)
	require.NoError(t, err)

	box := BoundingBox{MinX: -74.3, MinY: 4.3, MaxX: -73.9, MaxY: 5.1}
	work, err := proj.ForwardBox(box)
	require.NoError(t, err)

	assert.Less(t, work.MinX, work.MaxX)
	assert.Less(t, work.MinY, work.MaxY)

	// Every projected corner must land inside the projected box.
	for _, pt := range [][2]float64{
		{box.MinX, box.MinY}, {box.MaxX, box.MinY},
		{box.MinX, box.MaxY}, {box.MaxX, box.MaxY},
	} {
		x, y, err := proj.Forward(pt[0], pt[1])
		require.NoError(t, err)
		assert.True(t, work.ContainsPoint(x, y))
	}
}
