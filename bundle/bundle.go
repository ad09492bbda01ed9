// Package bundle packs the pipeline's intermediate artifacts into a single
// fixed-name zip so a consumer (or a restarted run) gets the raw raster, the
// classified river network, the reprojected raster, and the height matrix in
// one file.
package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jsuarezb/go-river-relief/elevation"
	"github.com/jsuarezb/go-river-relief/rivers"
)

// Name is the fixed bundle file name.
const Name = "relief_bundle.zip"

const (
	rawRasterEntry  = "raster_raw.json"
	riversEntry     = "rivers.json"
	projRasterEntry = "raster_proj.json"
	heightsEntry    = "heights.json"
	shapefileStem   = "rivers"
)

// Pack writes the bundle into dir under the fixed name. The river network is
// stored twice: as the exact JSON checkpoint and as a shapefile for external
// GIS consumers.
func Pack(dir string, raw *elevation.Raster, network *rivers.Network, projected *elevation.Raster, heights *elevation.HeightMatrix) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries := []struct {
		name    string
		marshal func(string) error
	}{
		{rawRasterEntry, func(p string) error { return elevation.SaveRaster(p, raw) }},
		{riversEntry, func(p string) error { return rivers.Save(p, network) }},
		{projRasterEntry, func(p string) error { return elevation.SaveRaster(p, projected) }},
		{heightsEntry, func(p string) error { return elevation.SaveHeights(p, heights) }},
	}

	tempDir, err := os.MkdirTemp("", "bundle_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tempDir)

	for _, e := range entries {
		tempPath := filepath.Join(tempDir, e.name)
		if err := e.marshal(tempPath); err != nil {
			return fmt.Errorf("bundle: writing %s: %w", e.name, err)
		}
		if err := addFileToZip(zw, tempPath, e.name); err != nil {
			return err
		}
	}

	if len(network.Features) > 0 {
		if err := addShapefileToZip(zw, tempDir, network); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, Name), buf.Bytes(), 0644)
}

// addShapefileToZip exports the network as a shapefile in a scratch dir and
// copies the .shp/.shx/.dbf trio into the archive.
func addShapefileToZip(zw *zip.Writer, tempDir string, network *rivers.Network) error {
	shpPath := filepath.Join(tempDir, shapefileStem+".shp")
	if err := rivers.Export(shpPath, network); err != nil {
		return fmt.Errorf("bundle: exporting shapefile: %w", err)
	}

	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		path := strings.TrimSuffix(shpPath, ".shp") + ext
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := addFileToZip(zw, path, shapefileStem+ext); err != nil {
			return err
		}
	}
	return nil
}

func addFileToZip(zw *zip.Writer, path, name string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("bundle: reading %s: %w", path, err)
	}
	entry, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("bundle: creating zip entry %s: %w", name, err)
	}
	if _, err := entry.Write(content); err != nil {
		return fmt.Errorf("bundle: writing zip entry %s: %w", name, err)
	}
	return nil
}

// Unpack restores the four artifacts from a bundle file.
func Unpack(path string) (raw *elevation.Raster, network *rivers.Network, projected *elevation.Raster, heights *elevation.HeightMatrix, err error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	defer zr.Close()

	tempDir, err := os.MkdirTemp("", "bundle_")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	defer os.RemoveAll(tempDir)

	extracted := make(map[string]string)
	for _, entry := range zr.File {
		name := filepath.Base(entry.Name)
		dest := filepath.Join(tempDir, name)
		if err := extractEntry(entry, dest); err != nil {
			return nil, nil, nil, nil, err
		}
		extracted[name] = dest
	}

	for _, required := range []string{rawRasterEntry, riversEntry, projRasterEntry, heightsEntry} {
		if _, ok := extracted[required]; !ok {
			return nil, nil, nil, nil, fmt.Errorf("bundle: %s missing entry %s", path, required)
		}
	}

	if raw, err = elevation.LoadRaster(extracted[rawRasterEntry]); err != nil {
		return nil, nil, nil, nil, err
	}
	if network, err = rivers.Load(extracted[riversEntry]); err != nil {
		return nil, nil, nil, nil, err
	}
	if projected, err = elevation.LoadRaster(extracted[projRasterEntry]); err != nil {
		return nil, nil, nil, nil, err
	}
	if heights, err = elevation.LoadHeights(extracted[heightsEntry]); err != nil {
		return nil, nil, nil, nil, err
	}
	return raw, network, projected, heights, nil
}

func extractEntry(entry *zip.File, dest string) error {
	in, err := entry.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
