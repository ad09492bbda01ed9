package rivers

import (
	"encoding/json"
	"fmt"
	"os"

	shp "github.com/jonas-p/go-shp"
)

// Save writes the network checkpoint as JSON, preserving the CRS and the
// assigned widths exactly.
func Save(path string, n *Network) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a network checkpoint.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var n Network
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("rivers: decoding artifact %s: %w", path, err)
	}
	return &n, nil
}

// Export writes the network as a shapefile (.shp/.shx/.dbf) with the flow
// order and width carried as attributes, for consumers outside the pipeline.
func Export(path string, n *Network) error {
	if len(n.Features) == 0 {
		return fmt.Errorf("rivers: nothing to export")
	}

	out, err := shp.Create(path, shp.POLYLINE)
	if err != nil {
		return fmt.Errorf("rivers: creating shapefile: %w", err)
	}
	defer out.Close()

	fields := []shp.Field{
		shp.NumberField("ORD_FLOW", 10),
		shp.FloatField("WIDTH", 15, 5),
	}
	out.SetFields(fields)

	for i, f := range n.Features {
		points := make([]shp.Point, len(f.Coords))
		for j, c := range f.Coords {
			points[j] = shp.Point{X: c[0], Y: c[1]}
		}
		out.Write(shp.NewPolyLine([][]shp.Point{points}))

		if err := out.WriteAttribute(i, 0, f.FlowOrder); err != nil {
			return fmt.Errorf("rivers: writing attribute for feature %d: %w", i, err)
		}
		if err := out.WriteAttribute(i, 1, f.Width); err != nil {
			return fmt.Errorf("rivers: writing attribute for feature %d: %w", i, err)
		}
	}
	return nil
}
