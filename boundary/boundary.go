package boundary

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/jsuarezb/go-river-relief/config"
	"github.com/jsuarezb/go-river-relief/geoutil"
)

var (
	// ErrDataUnavailable means the administrative source could not be
	// fetched or returned nothing usable.
	ErrDataUnavailable = errors.New("boundary: administrative data unavailable")

	// ErrEmptySelection means no polygon matched the region-name filter.
	ErrEmptySelection = errors.New("boundary: no regions matched the filter")
)

// GeographicCRS identifies the CRS administrative sources deliver in.
const GeographicCRS = "EPSG:4326"

// Geometry is the unioned administrative boundary. It is computed once and
// shared by every downstream stage; treat it as immutable.
type Geometry struct {
	Geom *geos.Geom
	CRS  string
}

// Box returns the axis-aligned extent of the boundary.
func (g *Geometry) Box() (geoutil.BoundingBox, error) {
	return geoutil.BoxOf(g.Geom)
}

// Feature and FeatureCollection mirror the GeoJSON layout of the
// administrative source.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Source delivers the raw admin-polygon payload for a country and level.
type Source interface {
	Fetch(country string, level int) ([]byte, error)
}

type Resolver struct {
	cfg    config.BoundaryConfig
	source Source
	log    *zap.Logger
}

func NewResolver(cfg config.BoundaryConfig, source Source, log *zap.Logger) *Resolver {
	return &Resolver{cfg: cfg, source: source, log: log}
}

// Resolve fetches the admin polygons, keeps the rows whose name attribute
// exactly matches one of the configured regions, and unions them into a
// single valid geometry.
func (r *Resolver) Resolve() (*Geometry, error) {
	payload, err := r.source.Fetch(r.cfg.Country, r.cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDataUnavailable)
	}

	var collection FeatureCollection
	if err := json.Unmarshal(payload, &collection); err != nil {
		return nil, fmt.Errorf("%w: decoding payload: %v", ErrDataUnavailable, err)
	}
	if len(collection.Features) == 0 {
		return nil, fmt.Errorf("%w: source returned zero features", ErrDataUnavailable)
	}

	wanted := make(map[string]bool, len(r.cfg.Regions))
	for _, name := range r.cfg.Regions {
		wanted[name] = true
	}

	var selected []*geos.Geom
	for i := range collection.Features {
		name, _ := collection.Features[i].Properties[r.cfg.NameField].(string)
		if !wanted[name] {
			continue
		}
		geo, err := geos.NewGeomFromGeoJSON(string(collection.Features[i].Geometry))
		if err != nil {
			return nil, fmt.Errorf("%w: parsing geometry for %q: %v", ErrDataUnavailable, name, err)
		}
		if !geo.IsValid() {
			r.log.Warn("repairing invalid admin polygon",
				zap.String("region", name),
				zap.String("reason", geo.IsValidReason()))
			geo = geo.MakeValid()
		}
		selected = append(selected, geo)
		r.log.Debug("selected admin polygon", zap.String("region", name))
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: wanted %v", ErrEmptySelection, r.cfg.Regions)
	}

	union, err := geoutil.CascadedUnion(selected)
	if err != nil {
		return nil, fmt.Errorf("boundary: unioning %d polygons: %w", len(selected), err)
	}
	if !union.IsValid() {
		union = union.MakeValid()
	}
	if union.IsEmpty() {
		return nil, fmt.Errorf("%w: union is empty", ErrEmptySelection)
	}

	box, err := geoutil.BoxOf(union)
	if err != nil {
		return nil, fmt.Errorf("boundary: %w", err)
	}
	r.log.Info("resolved boundary",
		zap.Int("regions", len(selected)),
		zap.Float64("min_x", box.MinX),
		zap.Float64("min_y", box.MinY),
		zap.Float64("max_x", box.MaxX),
		zap.Float64("max_y", box.MaxY))

	return &Geometry{Geom: union, CRS: GeographicCRS}, nil
}

// Save writes the boundary as GeoJSON with coordinates rounded to the
// persistence precision.
func Save(path string, g *Geometry) error {
	rounded := roundGeometry(g.Geom)
	if rounded == nil {
		rounded = g.Geom
	}
	return os.WriteFile(path, []byte(rounded.ToGeoJSON(-1)), 0644)
}

// Load reads a previously saved boundary artifact.
func Load(path string) (*Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	geo, err := geos.NewGeomFromGeoJSON(string(data))
	if err != nil {
		return nil, fmt.Errorf("boundary: decoding artifact %s: %w", path, err)
	}
	return &Geometry{Geom: geo, CRS: GeographicCRS}, nil
}
