package rivers

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ensureSource returns the shapefile path, downloading and unpacking the
// archive only when the file is absent. Presence is the only check; a stale
// file is reused as-is.
func (e *Extractor) ensureSource() (string, error) {
	path := e.cfg.ShapefilePath
	if _, err := os.Stat(path); err == nil {
		e.log.Info("using local river dataset", zap.String("path", path))
		return path, nil
	}

	if e.cfg.ArchiveURL == "" {
		return "", fmt.Errorf("%w: %s", ErrSourceMissing, path)
	}

	e.log.Info("fetching river archive", zap.String("url", e.cfg.ArchiveURL))
	if err := e.fetchArchive(); err != nil {
		return "", fmt.Errorf("rivers: fetching archive: %w", err)
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("rivers: archive did not contain %s", path)
	}
	return path, nil
}

func (e *Extractor) fetchArchive() error {
	resp, err := http.Get(e.cfg.ArchiveURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "rivers_*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	destDir := filepath.Dir(e.cfg.ShapefilePath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	return unzipFlat(tmp.Name(), destDir)
}

// unzipFlat extracts every regular file in the archive directly into destDir,
// dropping any directory components the archive carries.
func unzipFlat(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(entry.Name)
		out, err := os.Create(filepath.Join(destDir, name))
		if err != nil {
			return err
		}
		in, err := entry.Open()
		if err != nil {
			out.Close()
			return err
		}
		_, err = io.Copy(out, in)
		in.Close()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	return nil
}
