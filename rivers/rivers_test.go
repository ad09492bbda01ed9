package rivers

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/jsuarezb/go-river-relief/boundary"
	"github.com/jsuarezb/go-river-relief/config"
	"github.com/jsuarezb/go-river-relief/geoutil"
)

func TestWidthForOrderTable(t *testing.T) {
	expected := map[int]float64{
		2: 18, 3: 16, 4: 14, 5: 12, 6: 10, 7: 6, 8: 3,
	}
	for order := -10; order <= 20; order++ {
		want, listed := expected[order]
		if !listed {
			want = 0
		}
		assert.Equal(t, want, WidthForOrder(order), "order %d", order)
	}
}

func TestParseFlowOrder(t *testing.T) {
	assert.Equal(t, 4, parseFlowOrder("4"))
	assert.Equal(t, 4, parseFlowOrder(" 4 "))
	assert.Equal(t, 4, parseFlowOrder("4.0"))
	assert.Equal(t, -1, parseFlowOrder(""))
	assert.Equal(t, -1, parseFlowOrder("n/a"))
}

// studyBoundary builds a rectangular boundary covering the study bbox.
func studyBoundary(t *testing.T) *boundary.Geometry {
	t.Helper()
	poly := geos.NewPolygon([][][]float64{{
		{-74.3, 4.3}, {-73.9, 4.3}, {-73.9, 5.1}, {-74.3, 5.1}, {-74.3, 4.3},
	}})
	require.NotNil(t, poly)
	return &boundary.Geometry{Geom: poly, CRS: boundary.GeographicCRS}
}

// writeRiverShapefile writes a polyline shapefile with an ORD_FLOW column.
func writeRiverShapefile(t *testing.T, path string, lines [][][]float64, orders []int) {
	t.Helper()
	out, err := shp.Create(path, shp.POLYLINE)
	require.NoError(t, err)
	out.SetFields([]shp.Field{shp.NumberField("ORD_FLOW", 10)})

	for i, line := range lines {
		points := make([]shp.Point, len(line))
		for j, c := range line {
			points[j] = shp.Point{X: c[0], Y: c[1]}
		}
		out.Write(shp.NewPolyLine([][]shp.Point{points}))
		// DBF numeric fields are right-justified and space-padded; go-shp's
		// writer leaves NUL padding for raw ints, which no DBF reader trims.
		require.NoError(t, out.WriteAttribute(i, 0, fmt.Sprintf("%10d", orders[i])))
	}
	out.Close()
}

func newTestExtractor(t *testing.T, shapefilePath string) (*Extractor, *geoutil.Projector) {
	t.Helper()
	proj, err := geoutil.NewProjector(4.7, -74.1)
	require.NoError(t, err)
	cfg := config.RiversConfig{
		ShapefilePath:  shapefilePath,
		FlowOrderField: "ORD_FLOW",
	}
	return NewExtractor(cfg, proj, zap.NewNop()), proj
}

func TestExtractInsideFeatureRetainedUnclipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rivers.shp")
	inside := [][]float64{{-74.2, 4.5}, {-74.1, 4.6}, {-74.0, 4.9}}
	writeRiverShapefile(t, path, [][][]float64{inside}, []int{4})

	extractor, proj := newTestExtractor(t, path)
	network, err := extractor.Extract(studyBoundary(t))
	require.NoError(t, err)

	require.Len(t, network.Features, 1)
	feature := network.Features[0]
	assert.Equal(t, 4, feature.FlowOrder)
	assert.Equal(t, 14.0, feature.Width)
	assert.Equal(t, proj.Definition(), network.CRS)

	// Fully inside the boundary: retained unclipped, every vertex matching
	// the input and none outside the box.
	require.Len(t, feature.Coords, len(inside))
	for i, c := range feature.Coords {
		lon, lat, err := proj.Inverse(c[0], c[1])
		require.NoError(t, err)
		assert.InDelta(t, inside[i][0], lon, 1e-6)
		assert.InDelta(t, inside[i][1], lat, 1e-6)
		assert.True(t, lon >= -74.3 && lon <= -73.9)
		assert.True(t, lat >= 4.3 && lat <= 5.1)
	}
}

func TestExtractClipsCrossingFeature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rivers.shp")
	// Starts inside, runs east well past the boundary.
	crossing := [][]float64{{-74.0, 4.7}, {-73.0, 4.7}}
	writeRiverShapefile(t, path, [][][]float64{crossing}, []int{5})

	extractor, proj := newTestExtractor(t, path)
	network, err := extractor.Extract(studyBoundary(t))
	require.NoError(t, err)

	require.NotEmpty(t, network.Features)
	for _, feature := range network.Features {
		assert.Equal(t, 12.0, feature.Width)
		for _, c := range feature.Coords {
			lon, lat, err := proj.Inverse(c[0], c[1])
			require.NoError(t, err)
			assert.LessOrEqual(t, lon, -73.9+1e-6, "clipped coordinate outside boundary")
			assert.GreaterOrEqual(t, lon, -74.3-1e-6)
			assert.InDelta(t, 4.7, lat, 1e-6)
		}
	}
}

func TestExtractDiscardsFeaturesOutsideExtent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rivers.shp")
	outside := [][]float64{{-70.0, 10.0}, {-69.0, 10.5}}
	writeRiverShapefile(t, path, [][][]float64{outside}, []int{2})

	extractor, _ := newTestExtractor(t, path)
	network, err := extractor.Extract(studyBoundary(t))
	require.NoError(t, err, "empty intersection is a valid result, not an error")
	assert.Empty(t, network.Features)
}

func TestExtractRetainsUnlistedOrderWithZeroWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rivers.shp")
	inside := [][]float64{{-74.2, 4.5}, {-74.1, 4.6}}
	writeRiverShapefile(t, path, [][][]float64{inside}, []int{1})

	extractor, _ := newTestExtractor(t, path)
	network, err := extractor.Extract(studyBoundary(t))
	require.NoError(t, err)

	require.Len(t, network.Features, 1, "zero-width features stay in the network")
	assert.Equal(t, 0.0, network.Features[0].Width)
	assert.Equal(t, 1, network.Features[0].FlowOrder)
}

func TestExtractSourceMissing(t *testing.T) {
	extractor, _ := newTestExtractor(t, filepath.Join(t.TempDir(), "absent.shp"))
	_, err := extractor.Extract(studyBoundary(t))
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestExtractPresentFileSkipsFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rivers.shp")
	inside := [][]float64{{-74.2, 4.5}, {-74.1, 4.6}}
	writeRiverShapefile(t, path, [][][]float64{inside}, []int{3})

	proj, err := geoutil.NewProjector(4.7, -74.1)
	require.NoError(t, err)
	// The archive URL points nowhere reachable; a present file must be used
	// without any fetch attempt.
	cfg := config.RiversConfig{
		ShapefilePath:  path,
		ArchiveURL:     "http://127.0.0.1:1/never.zip",
		FlowOrderField: "ORD_FLOW",
	}
	extractor := NewExtractor(cfg, proj, zap.NewNop())

	network, err := extractor.Extract(studyBoundary(t))
	require.NoError(t, err)
	assert.Len(t, network.Features, 1)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	network := &Network{
		CRS: "+proj=tmerc +lat_0=4.7 +lon_0=-74.1 +k=1 +x_0=0 +y_0=0 +ellps=WGS84 +units=m +no_defs",
		Features: []Feature{
			{Coords: [][]float64{{0, 0}, {100, 200}}, FlowOrder: 4, Width: 14},
			{Coords: [][]float64{{-50, 10}, {-20, 40}, {0, 80}}, FlowOrder: 99, Width: 0},
		},
	}

	path := filepath.Join(t.TempDir(), "rivers.json")
	require.NoError(t, Save(path, network))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, network, loaded)
}

func TestExportWritesShapefileTrio(t *testing.T) {
	network := &Network{
		CRS: "EPSG:4326",
		Features: []Feature{
			{Coords: [][]float64{{0, 0}, {1, 1}}, FlowOrder: 4, Width: 14},
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "rivers.shp")
	require.NoError(t, Export(path, network))

	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		_, err := os.Stat(filepath.Join(dir, "rivers"+ext))
		assert.NoError(t, err, "missing %s", ext)
	}
}

func TestExportEmptyNetwork(t *testing.T) {
	err := Export(filepath.Join(t.TempDir(), "rivers.shp"), &Network{})
	assert.Error(t, err)
}
