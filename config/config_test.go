package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "COL", cfg.Boundary.Country)
	assert.Equal(t, 1, cfg.Boundary.Level)
	assert.Equal(t, []string{"Cundinamarca", "Bogotá D.C."}, cfg.Boundary.Regions)
	assert.Equal(t, "NAME_1", cfg.Boundary.NameField)

	assert.Equal(t, "ORD_FLOW", cfg.Rivers.FlowOrderField)
	assert.NotEmpty(t, cfg.Rivers.ShapefilePath)

	assert.Equal(t, 10, cfg.Elevation.Zoom)
	assert.Equal(t, 16, cfg.Elevation.MaxDownloads)
	assert.Contains(t, cfg.Elevation.TileURLTemplate, "{z}/{x}/{y}")

	assert.Equal(t, 128, cfg.Scene.RampSteps)
	assert.Equal(t, 89.0, cfg.Scene.CameraPhi)
	assert.Equal(t, 0.0, cfg.Scene.CameraTheta)
	assert.Equal(t, 1.0, cfg.Scene.ShadowDepth)
	assert.False(t, cfg.Scene.Solid)
	assert.Equal(t, "#FFFFFF", cfg.Scene.Background)

	assert.InDelta(t, 4.7, cfg.CRS.OriginLat, 1e-9)
	assert.InDelta(t, -74.1, cfg.CRS.OriginLon, 1e-9)

	assert.Equal(t, "output", cfg.WorkDir)
	assert.Equal(t, "info", cfg.LogLevel)
}
