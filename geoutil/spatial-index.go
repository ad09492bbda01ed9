package geoutil

import (
	"fmt"
	"math"
)

// SpatialIndex is a uniform-grid index over bounding boxes. Items are
// referenced by the integer index the caller assigned at insertion time.
type SpatialIndex struct {
	cellSize float64
	boxes    map[int]BoundingBox
	grid     map[string][]int
}

func NewSpatialIndex(cellSize float64) *SpatialIndex {
	return &SpatialIndex{
		cellSize: cellSize,
		boxes:    make(map[int]BoundingBox),
		grid:     make(map[string][]int),
	}
}

func (si *SpatialIndex) Insert(index int, box BoundingBox) {
	si.boxes[index] = box

	minCellX := int(math.Floor(box.MinX / si.cellSize))
	minCellY := int(math.Floor(box.MinY / si.cellSize))
	maxCellX := int(math.Floor(box.MaxX / si.cellSize))
	maxCellY := int(math.Floor(box.MaxY / si.cellSize))

	for x := minCellX; x <= maxCellX; x++ {
		for y := minCellY; y <= maxCellY; y++ {
			key := cellKey(x, y)
			si.grid[key] = append(si.grid[key], index)
		}
	}
}

// Search returns the indices of all items whose box intersects the query box.
func (si *SpatialIndex) Search(box BoundingBox) []int {
	minCellX := int(math.Floor(box.MinX / si.cellSize))
	minCellY := int(math.Floor(box.MinY / si.cellSize))
	maxCellX := int(math.Floor(box.MaxX / si.cellSize))
	maxCellY := int(math.Floor(box.MaxY / si.cellSize))

	seen := make(map[int]bool)
	var hits []int
	for x := minCellX; x <= maxCellX; x++ {
		for y := minCellY; y <= maxCellY; y++ {
			for _, idx := range si.grid[cellKey(x, y)] {
				if seen[idx] {
					continue
				}
				seen[idx] = true
				if si.boxes[idx].Intersects(box) {
					hits = append(hits, idx)
				}
			}
		}
	}
	return hits
}

func (si *SpatialIndex) Len() int {
	return len(si.boxes)
}

func cellKey(x, y int) string {
	return fmt.Sprintf("%d,%d", x, y)
}
