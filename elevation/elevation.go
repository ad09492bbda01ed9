package elevation

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/fogleman/terrarium"
	"go.uber.org/zap"

	"github.com/jsuarezb/go-river-relief/boundary"
	"github.com/jsuarezb/go-river-relief/config"
	"github.com/jsuarezb/go-river-relief/geoutil"
)

var (
	// ErrAcquisition means the elevation tile service could not deliver the
	// samples covering the boundary.
	ErrAcquisition = errors.New("elevation: sample acquisition failed")

	// ErrReprojection means the CRS transform is undefined somewhere over
	// the extent.
	ErrReprojection = errors.New("elevation: reprojection failed")
)

type Builder struct {
	cfg  config.ElevationConfig
	proj *geoutil.Projector
	log  *zap.Logger
}

func NewBuilder(cfg config.ElevationConfig, proj *geoutil.Projector, log *zap.Logger) *Builder {
	return &Builder{cfg: cfg, proj: proj, log: log}
}

// Acquire downloads (or reuses from the tile cache, by presence) the
// elevation tiles covering the boundary, masks them to the boundary shape,
// and stitches them into a raster cropped to the boundary extent.
func (b *Builder) Acquire(bound *boundary.Geometry) (*Raster, error) {
	box, err := bound.Box()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}

	zoom := b.cfg.Zoom
	min := terrarium.LatLng(box.MinY, box.MinX)
	max := terrarium.LatLng(box.MaxY, box.MaxX)

	p0 := terrarium.TileXY(zoom, min)
	p1 := terrarium.TileXY(zoom, max)
	x0, x1 := p0.X, p1.X
	y0, y1 := p0.Y, p1.Y
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	x1++
	y1++

	tileCount := (x1 - x0 + 1) * (y1 - y0 + 1)
	b.log.Info("acquiring elevation tiles",
		zap.Int("zoom", zoom),
		zap.Int("tiles", tileCount),
		zap.String("cache_dir", b.cfg.TileCacheDir))

	cache := terrarium.NewCache(b.cfg.TileURLTemplate, b.cfg.TileCacheDir, b.cfg.MaxDownloads)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			cache.EnsureTile(zoom, x, y)
		}
	}
	cache.Wait()

	// Elevation range over all tiles fixes the gray encoding scale.
	lo := math.MaxFloat64
	hi := -lo
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			tile, err := cache.GetTile(zoom, x, y)
			if err != nil {
				return nil, fmt.Errorf("%w: tile %d/%d/%d: %v", ErrAcquisition, zoom, x, y, err)
			}
			lo = math.Min(lo, tile.MinElevation)
			hi = math.Max(hi, tile.MaxElevation)
		}
	}
	if hi <= lo {
		hi = lo + 1
	}

	shapes := maskShapes(bound)

	const tileSize = terrarium.TileSize
	w := (x1 - x0 + 1) * tileSize
	h := (y1 - y0 + 1) * tileSize
	gray := image.NewGray16(image.Rect(0, 0, w, h))
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			tile, err := cache.GetTile(zoom, x, y)
			if err != nil {
				return nil, fmt.Errorf("%w: tile %d/%d/%d: %v", ErrAcquisition, zoom, x, y, err)
			}
			tile.MaskShapes(shapes)
			tx0 := (x - x0) * tileSize
			ty0 := (y - y0) * tileSize
			r := image.Rect(tx0, ty0, tx0+tileSize, ty0+tileSize)
			draw.DrawMask(gray, r, tile.AsGray16(lo, hi), image.Point{}, tile.Mask, image.Point{}, draw.Src)
			draw.Draw(mask, r, tile.Mask, image.Point{}, draw.Src)
		}
	}

	// Crop to the exact boundary extent in the global mercator pixel plane.
	stitchPX := float64(x0 * tileSize)
	stitchPY := float64(y0 * tileSize)
	cx0 := int(math.Floor(mercX(box.MinX, zoom)*tileSize - stitchPX))
	cx1 := int(math.Ceil(mercX(box.MaxX, zoom)*tileSize - stitchPX))
	cy0 := int(math.Floor(mercY(box.MaxY, zoom)*tileSize - stitchPY))
	cy1 := int(math.Ceil(mercY(box.MinY, zoom)*tileSize - stitchPY))
	cx0 = clampInt(cx0, 0, w-1)
	cy0 = clampInt(cy0, 0, h-1)
	cx1 = clampInt(cx1, cx0+1, w)
	cy1 = clampInt(cy1, cy0+1, h)

	rows := cy1 - cy0
	cols := cx1 - cx0
	values := make([]float64, rows*cols)
	vmin := math.MaxFloat64
	vmax := -vmin
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var elev float64
			if mask.AlphaAt(cx0+c, cy0+r).A == 0 {
				// Outside the boundary; pinned to the regional floor so the
				// relief ramp renders it as lowland.
				elev = lo
			} else {
				g := float64(gray.Gray16At(cx0+c, cy0+r).Y)
				elev = lo + g/65535*(hi-lo)
			}
			values[r*cols+c] = elev
			vmin = math.Min(vmin, elev)
			vmax = math.Max(vmax, elev)
		}
	}

	b.log.Info("stitched elevation raster",
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Float64("min_elevation", vmin),
		zap.Float64("max_elevation", vmax))

	return &Raster{
		Rows:      rows,
		Cols:      cols,
		Values:    values,
		Min:       vmin,
		Max:       vmax,
		CRS:       fmt.Sprintf("terrarium-z%d", zoom),
		Extent:    box,
		GeoExtent: box,
		OriginPX:  stitchPX + float64(cx0),
		OriginPY:  stitchPY + float64(cy0),
		Zoom:      zoom,
	}, nil
}

// Reproject resamples a native tile-grid raster into the working CRS. Every
// output cell center is inverse-projected to lon/lat and bilinearly sampled
// from the source. Grid dimensions carry over.
func (b *Builder) Reproject(raw *Raster) (*Raster, error) {
	workBox, err := b.proj.ForwardBox(raw.GeoExtent)
	if err != nil {
		return nil, fmt.Errorf("%w: projecting extent: %v", ErrReprojection, err)
	}

	rows, cols := raw.Rows, raw.Cols
	dx := workBox.Width() / float64(cols)
	dy := workBox.Height() / float64(rows)

	values := make([]float64, rows*cols)
	vmin := math.MaxFloat64
	vmax := -vmin
	for r := 0; r < rows; r++ {
		y := workBox.MaxY - (float64(r)+0.5)*dy
		for c := 0; c < cols; c++ {
			x := workBox.MinX + (float64(c)+0.5)*dx
			lon, lat, err := b.proj.Inverse(x, y)
			if err != nil {
				return nil, fmt.Errorf("%w: at cell (%d,%d): %v", ErrReprojection, r, c, err)
			}
			px := mercX(lon, raw.Zoom)*terrarium.TileSize - raw.OriginPX - 0.5
			py := mercY(lat, raw.Zoom)*terrarium.TileSize - raw.OriginPY - 0.5
			elev := raw.Bilinear(px, py)
			values[r*cols+c] = elev
			vmin = math.Min(vmin, elev)
			vmax = math.Max(vmax, elev)
		}
	}

	b.log.Info("reprojected elevation raster",
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.String("crs", b.proj.Definition()))

	return &Raster{
		Rows:      rows,
		Cols:      cols,
		Values:    values,
		Min:       vmin,
		Max:       vmax,
		CRS:       b.proj.Definition(),
		Extent:    workBox,
		GeoExtent: raw.GeoExtent,
	}, nil
}

// mercX and mercY convert lon/lat to fractional tile coordinates at a zoom
// level, the usual spherical-mercator tiling math.
func mercX(lon float64, zoom int) float64 {
	n := math.Exp2(float64(zoom))
	return (lon + 180) / 360 * n
}

func mercY(lat float64, zoom int) float64 {
	n := math.Exp2(float64(zoom))
	rad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2 * n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
