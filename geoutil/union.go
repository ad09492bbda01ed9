package geoutil

import (
	"fmt"

	"github.com/twpayne/go-geos"
)

// CascadedUnion merges the geometries pairwise, divide-and-conquer, which
// keeps intermediate unions small compared to a left fold.
func CascadedUnion(geometries []*geos.Geom) (*geos.Geom, error) {
	if len(geometries) == 0 {
		return nil, fmt.Errorf("no geometries to union")
	}
	if len(geometries) == 1 {
		return geometries[0], nil
	}

	mid := len(geometries) / 2
	left, err := CascadedUnion(geometries[:mid])
	if err != nil {
		return nil, err
	}
	right, err := CascadedUnion(geometries[mid:])
	if err != nil {
		return nil, err
	}

	result := left.Union(right)
	if result == nil {
		return nil, fmt.Errorf("union returned nil geometry")
	}
	return result, nil
}
