package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	spin "github.com/tj/go-spin"
	"go.uber.org/zap"

	"github.com/jsuarezb/go-river-relief/boundary"
	"github.com/jsuarezb/go-river-relief/bundle"
	"github.com/jsuarezb/go-river-relief/config"
	"github.com/jsuarezb/go-river-relief/elevation"
	"github.com/jsuarezb/go-river-relief/geoutil"
	"github.com/jsuarezb/go-river-relief/logger"
	"github.com/jsuarezb/go-river-relief/rivers"
	"github.com/jsuarezb/go-river-relief/scene"
)

const (
	boundaryArtifact   = "boundary.json"
	riversArtifact     = "rivers.json"
	rawRasterArtifact  = "raster_raw.json"
	projRasterArtifact = "raster_proj.json"
	heightsArtifact    = "heights.json"
	textureArtifact    = "texture.png"
	sceneArtifact      = "scene.json"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("pipeline aborted", zap.Error(err))
	}
}

// run executes the four stages in order. Each stage checkpoints its artifact
// under the work dir; an artifact already present is reused as-is so a
// restarted run resumes from the last completed stage.
func run(cfg *config.Config, log *zap.Logger) error {
	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return err
	}

	proj, err := geoutil.NewProjector(cfg.CRS.OriginLat, cfg.CRS.OriginLon)
	if err != nil {
		return err
	}
	log.Info("working CRS", zap.String("definition", proj.Definition()))

	// Stage 1: boundary. Resolved once; the same value feeds both
	// downstream stages.
	bound, err := resolveBoundary(cfg, log)
	if err != nil {
		return err
	}

	// Stage 2: river network.
	network, err := extractRivers(cfg, proj, bound, log)
	if err != nil {
		return err
	}
	if len(network.Features) == 0 {
		// An empty intersection is a valid result; the scene just has no
		// river overlay.
		log.Warn("river network is empty inside the boundary")
	}

	// Stage 3: elevation grid.
	raw, projected, heights, err := buildElevation(cfg, proj, bound, log)
	if err != nil {
		return err
	}

	// Stage 4: scene composition.
	composer := scene.NewComposer(cfg.Scene, log)
	var composed *scene.Scene
	err = withSpinner("composing scene", func() (err error) {
		composed, err = composer.Compose(heights, network, projected.Extent)
		return err
	})
	if err != nil {
		return err
	}

	texturePath := filepath.Join(cfg.WorkDir, textureArtifact)
	if err := scene.SaveTexture(texturePath, composed); err != nil {
		return err
	}
	heightsPath := filepath.Join(cfg.WorkDir, heightsArtifact)
	scenePath := filepath.Join(cfg.WorkDir, sceneArtifact)
	if err := scene.SaveDescriptor(scenePath, texturePath, heightsPath, composed); err != nil {
		return err
	}

	if err := bundle.Pack(cfg.WorkDir, raw, network, projected, heights); err != nil {
		return err
	}

	log.Info("pipeline complete",
		zap.String("texture", texturePath),
		zap.String("scene", scenePath),
		zap.String("bundle", filepath.Join(cfg.WorkDir, bundle.Name)))
	return nil
}

func resolveBoundary(cfg *config.Config, log *zap.Logger) (*boundary.Geometry, error) {
	path := filepath.Join(cfg.WorkDir, boundaryArtifact)
	if _, err := os.Stat(path); err == nil {
		log.Info("reusing boundary artifact", zap.String("path", path))
		return boundary.Load(path)
	}

	resolver := boundary.NewResolver(cfg.Boundary, boundary.NewHTTPSource(cfg.Boundary, log), log)
	var bound *boundary.Geometry
	err := withSpinner("resolving boundary", func() (err error) {
		bound, err = resolver.Resolve()
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := boundary.Save(path, bound); err != nil {
		return nil, err
	}
	return bound, nil
}

func extractRivers(cfg *config.Config, proj *geoutil.Projector, bound *boundary.Geometry, log *zap.Logger) (*rivers.Network, error) {
	path := filepath.Join(cfg.WorkDir, riversArtifact)
	if _, err := os.Stat(path); err == nil {
		log.Info("reusing river artifact", zap.String("path", path))
		return rivers.Load(path)
	}

	extractor := rivers.NewExtractor(cfg.Rivers, proj, log)
	var network *rivers.Network
	err := withSpinner("extracting rivers", func() (err error) {
		network, err = extractor.Extract(bound)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := rivers.Save(path, network); err != nil {
		return nil, err
	}
	return network, nil
}

func buildElevation(cfg *config.Config, proj *geoutil.Projector, bound *boundary.Geometry, log *zap.Logger) (raw, projected *elevation.Raster, heights *elevation.HeightMatrix, err error) {
	rawPath := filepath.Join(cfg.WorkDir, rawRasterArtifact)
	projPath := filepath.Join(cfg.WorkDir, projRasterArtifact)
	heightsPath := filepath.Join(cfg.WorkDir, heightsArtifact)

	builder := elevation.NewBuilder(cfg.Elevation, proj, log)

	if _, statErr := os.Stat(rawPath); statErr == nil {
		log.Info("reusing raw raster artifact", zap.String("path", rawPath))
		raw, err = elevation.LoadRaster(rawPath)
	} else {
		err = withSpinner("acquiring elevation", func() (err error) {
			raw, err = builder.Acquire(bound)
			return err
		})
		if err == nil {
			err = elevation.SaveRaster(rawPath, raw)
		}
	}
	if err != nil {
		return nil, nil, nil, err
	}

	if _, statErr := os.Stat(projPath); statErr == nil {
		log.Info("reusing reprojected raster artifact", zap.String("path", projPath))
		projected, err = elevation.LoadRaster(projPath)
	} else {
		err = withSpinner("reprojecting elevation", func() (err error) {
			projected, err = builder.Reproject(raw)
			return err
		})
		if err == nil {
			err = elevation.SaveRaster(projPath, projected)
		}
	}
	if err != nil {
		return nil, nil, nil, err
	}

	heights = elevation.ToHeightMatrix(projected)
	if err := elevation.SaveHeights(heightsPath, heights); err != nil {
		return nil, nil, nil, err
	}
	return raw, projected, heights, nil
}

// withSpinner shows progress on the terminal while fn blocks. The pipeline
// itself stays sequential; this only animates the wait.
func withSpinner(name string, fn func() error) error {
	s := spin.New()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(100 * time.Millisecond):
				fmt.Printf("\r%s %s", s.Next(), name)
			}
		}
	}()

	err := fn()
	close(done)
	fmt.Printf("\r")
	return err
}
