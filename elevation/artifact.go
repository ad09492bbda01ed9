package elevation

import (
	"encoding/json"
	"fmt"
	"os"
)

// SaveRaster and LoadRaster checkpoint a raster stage artifact.
func SaveRaster(path string, r *Raster) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func LoadRaster(path string) (*Raster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Raster
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("elevation: decoding raster artifact %s: %w", path, err)
	}
	return &r, nil
}

// SaveHeights and LoadHeights checkpoint the height matrix.
func SaveHeights(path string, m *HeightMatrix) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func LoadHeights(path string) (*HeightMatrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m HeightMatrix
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("elevation: decoding height artifact %s: %w", path, err)
	}
	return &m, nil
}
